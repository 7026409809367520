package service

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidGroupLink = errors.New("invalid group link")

// groupLinkRx accepts t.me URLs (public, +invite, joinchat), bare
// @usernames and raw chat IDs like -1001234567890.
var groupLinkRx = regexp.MustCompile(`^(?:https?://)?t\.me/((?:\+|joinchat/)?[A-Za-z0-9_\-+]+)$|^(@[A-Za-z0-9_]{4,})$|^(-?\d{5,})$`)

// NormalizeGroupLink validates a raw user-supplied group reference and
// brings it to canonical form so duplicates compare equal:
//
//	t.me/Name, https://t.me/Name, @Name  -> https://t.me/Name
//	t.me/joinchat/Hash, t.me/+Hash       -> https://t.me/+Hash
//	-1001234567890                       -> unchanged
func NormalizeGroupLink(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidGroupLink
	}

	m := groupLinkRx.FindStringSubmatch(trimmed)
	if m == nil {
		return "", ErrInvalidGroupLink
	}

	switch {
	case m[1] != "": // t.me path
		path := m[1]
		if strings.HasPrefix(path, "joinchat/") {
			return "https://t.me/+" + strings.TrimPrefix(path, "joinchat/"), nil
		}
		return "https://t.me/" + path, nil
	case m[2] != "": // @username
		return "https://t.me/" + strings.TrimPrefix(m[2], "@"), nil
	default: // numeric chat ID
		return m[3], nil
	}
}

// SplitLinks breaks a pasted multi-line message into candidate link lines.
func SplitLinks(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
		}
	}
	return out
}
