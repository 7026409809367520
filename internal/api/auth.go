package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"spinify/internal/config"
)

const initDataHeader = "X-Telegram-Init-Data"

var (
	errMissingInitData = errors.New("missing init_data")
	errMissingHash     = errors.New("missing hash")
	errBadSignature    = errors.New("bad signature")
	errNoUser          = errors.New("no user in init_data")
)

// WebAppAuth validates Telegram WebApp initData payloads. The signing
// secret is SHA256 of the bot token; the data-check-string is all
// key=value pairs except hash, sorted by key and joined with newlines.
type WebAppAuth struct {
	secret []byte
}

func NewWebAppAuth(botToken string) *WebAppAuth {
	sum := sha256.Sum256([]byte(botToken))
	return &WebAppAuth{secret: sum[:]}
}

type initDataUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Verify checks the initData signature and extracts the user identity.
func (a *WebAppAuth) Verify(initData string) (int64, string, error) {
	if strings.TrimSpace(initData) == "" {
		return 0, "", errMissingInitData
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return 0, "", errMissingInitData
	}

	theirHash := values.Get("hash")
	if theirHash == "" {
		return 0, "", errMissingHash
	}
	values.Del("hash")

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	dataCheckString := strings.Join(pairs, "\n")

	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(dataCheckString))
	computed := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(computed), []byte(theirHash)) {
		return 0, "", errBadSignature
	}

	var user initDataUser
	if raw := values.Get("user"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &user)
	}
	if user.ID == 0 {
		return 0, "", errNoUser
	}

	return user.ID, user.Username, nil
}

// Sign computes the initData hash for a prepared value set. Exported
// for test fixtures and the login handoff.
func (a *WebAppAuth) Sign(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}

	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

// ServiceAuth provides API-key auth and per-key rate limiting for the
// service endpoints.
type ServiceAuth struct {
	cfg     config.APIConfig
	clients map[string]config.APIClientKey
	limiter *clientLimiter
}

func NewServiceAuth(cfg config.APIConfig) *ServiceAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &ServiceAuth{cfg: cfg, clients: m, limiter: newClientLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)}
}

func (a *ServiceAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.Auth.Enabled {
			if err := a.checkAuth(r); err != nil {
				statusCode := http.StatusUnauthorized
				if err == errPermissionDenied {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
		}

		if err := a.checkRateLimit(r); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

var errPermissionDenied = fmt.Errorf("permission denied")

func (a *ServiceAuth) checkAuth(r *http.Request) error {
	apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader()))
	extra := strings.TrimSpace(r.Header.Get(a.extraHeader()))
	if apiKey == "" || extra == "" {
		return fmt.Errorf("missing api key headers")
	}

	client, ok := a.clients[apiKey]
	if !ok {
		return fmt.Errorf("invalid api key")
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return fmt.Errorf("invalid extra header")
	}

	return a.checkPermissions(client, r)
}

func (a *ServiceAuth) checkPermissions(client config.APIClientKey, r *http.Request) error {
	required := requiredPermissionHTTP(r)
	if required == "" {
		return nil
	}
	// An empty permissions list means allow-all.
	if len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

func requiredPermissionHTTP(r *http.Request) string {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/nonce/"),
		strings.HasPrefix(path, "/api/v1/session/"):
		return "write:sessions"
	case strings.HasPrefix(path, "/api/v1/users/"),
		strings.HasPrefix(path, "/api/v1/groups/"):
		return "manage:users"
	case path == "/api/v1/stats", path == "/api/v1/export/users":
		return "read:stats"
	}
	return ""
}

func (a *ServiceAuth) checkRateLimit(r *http.Request) error {
	if a.cfg.RateLimit.RPS <= 0 {
		return nil
	}

	if !a.limiter.allow(a.clientKey(r)) {
		return fmt.Errorf("rate limit exceeded")
	}
	return nil
}

func (a *ServiceAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader())); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (a *ServiceAuth) apiKeyHeader() string {
	if h := strings.TrimSpace(a.cfg.Auth.HeaderAPIKey); h != "" {
		return h
	}
	return "x-api-key"
}

func (a *ServiceAuth) extraHeader() string {
	if h := strings.TrimSpace(a.cfg.Auth.HeaderExtra); h != "" {
		return h
	}
	return "x-api-extra"
}
