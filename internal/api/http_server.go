package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"spinify/internal/config"
	"spinify/internal/database"
	"spinify/internal/metrics"
	"spinify/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HTTPServer exposes the panel (WebApp) and service endpoints.
type HTTPServer struct {
	cfg    config.APIConfig
	users  *service.UserService
	groups *service.GroupService
	sess   *service.SessionService
	nonces *service.NonceService
	stats  StatsProvider
	export UsersExporter
	logger *zerolog.Logger
	server *http.Server

	webAuth     *WebAppAuth
	serviceAuth *ServiceAuth
	userLimit   int
	userWindow  time.Duration
}

// StatsProvider reports aggregate row counts for /api/v1/stats and /sync.
// *database.DB satisfies it.
type StatsProvider interface {
	GetStats(ctx context.Context) (*database.Stats, error)
}

// UsersExporter renders the user roster as an xlsx workbook.
type UsersExporter interface {
	ExportUsers(ctx context.Context) ([]byte, string, error)
}

type Options struct {
	Config     config.APIConfig
	BotToken   string
	Users      *service.UserService
	Groups     *service.GroupService
	Sessions   *service.SessionService
	Nonces     *service.NonceService
	Stats      StatsProvider
	Export     UsersExporter
	UserLimit  int
	UserWindow time.Duration
	Logger     *zerolog.Logger
}

func NewHTTPServer(opts Options) *HTTPServer {
	srv := &HTTPServer{
		cfg:         opts.Config,
		users:       opts.Users,
		groups:      opts.Groups,
		sess:        opts.Sessions,
		nonces:      opts.Nonces,
		stats:       opts.Stats,
		export:      opts.Export,
		logger:      opts.Logger,
		webAuth:     NewWebAppAuth(opts.BotToken),
		serviceAuth: NewServiceAuth(opts.Config),
		userLimit:   opts.UserLimit,
		userWindow:  opts.UserWindow,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", srv.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())

	// Panel endpoints authenticated by Telegram WebApp initData.
	mux.Handle("/api/v1/sync", srv.web(srv.handleSync))
	mux.Handle("/api/v1/ad", srv.web(srv.handleSaveAd))
	mux.Handle("/api/v1/interval", srv.web(srv.handleSetInterval))
	mux.Handle("/api/v1/groups/bulk", srv.web(srv.handleAddGroupsBulk))
	mux.Handle("/api/v1/groups/remove", srv.web(srv.handleRemoveGroup))
	mux.Handle("/api/v1/groups/clear", srv.web(srv.handleClearGroups))

	// Service endpoints authenticated by API key pairs.
	mux.Handle("/api/v1/nonce/", srv.svc(srv.handleIssueNonce))
	mux.Handle("/api/v1/session/bind", srv.svc(srv.handleSessionBind))
	mux.Handle("/api/v1/session/revoke", srv.svc(srv.handleSessionRevoke))
	mux.Handle("/api/v1/users/", srv.svc(srv.handleUserByID))
	mux.Handle("/api/v1/stats", srv.svc(srv.handleStats))
	mux.Handle("/api/v1/export/users", srv.svc(srv.handleExportUsers))

	// POST /api/v1/groups is panel-auth; GET /api/v1/groups/{id} is service-auth.
	mux.HandleFunc("/api/v1/groups", func(w http.ResponseWriter, r *http.Request) {
		srv.web(srv.handleAddGroup).ServeHTTP(w, r)
	})
	mux.Handle("/api/v1/groups/", srv.svc(srv.handleListGroupsByID))

	handler := srv.loggingMiddleware(mux)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Config.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("http api listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the full middleware chain for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// web wraps a panel handler with initData auth and the per-user limiter.
func (s *HTTPServer) web(h func(w http.ResponseWriter, r *http.Request, userID int64)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, username, err := s.webAuth.Verify(r.Header.Get(initDataHeader))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		if s.userLimit > 0 {
			allowed, err := s.nonces.CheckRateLimit(r.Context(), userID, s.userLimit, s.userWindow)
			if err != nil {
				s.logger.Warn().Err(err).Msg("rate limit check failed")
			} else if !allowed {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}

		// Panel access upserts the user row so first contact via the
		// WebApp behaves like /start in the bot.
		if _, err := s.users.Register(r.Context(), userID, username); err != nil {
			s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to register user")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		h(w, r, userID)
	})
}

// svc wraps a service handler with API-key auth.
func (s *HTTPServer) svc(h http.HandlerFunc) http.Handler {
	return s.serviceAuth.Wrap(h)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(endpointLabel(r.URL.Path))

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// endpointLabel collapses path parameters to keep metric cardinality flat.
func endpointLabel(path string) string {
	for _, prefix := range []string{"/api/v1/nonce/", "/api/v1/users/", "/api/v1/groups/"} {
		if strings.HasPrefix(path, prefix) && len(path) > len(prefix) {
			rest := strings.TrimPrefix(path, prefix)
			if _, err := parseID(strings.SplitN(rest, "/", 2)[0]); err == nil {
				return prefix + ":id"
			}
		}
	}
	return path
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
