package admin

import (
	"encoding/json"
	"strings"

	"github.com/RaikyD/storefront-orders/internal/logger"
	"github.com/RaikyD/storefront-orders/internal/storefront/storage"
)

// Session keeps the admin bearer token in client storage.
type Session struct {
	st storage.Storage
}

func NewSession(st storage.Storage) *Session {
	return &Session{st: st}
}

// Token returns the stored token, or "" when none is stored or the payload is
// unreadable.
func (s *Session) Token() string {
	raw, ok, err := s.st.Get(storage.AdminTokenKey)
	if err != nil || !ok {
		return ""
	}
	var tok string
	if err := json.Unmarshal(raw, &tok); err != nil {
		logger.Warn("admin token payload corrupt, ignoring")
		return ""
	}
	return strings.TrimSpace(tok)
}

func (s *Session) SetToken(tok string) error {
	b, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return s.st.Set(storage.AdminTokenKey, b)
}

func (s *Session) Logout() error {
	return s.st.Delete(storage.AdminTokenKey)
}
