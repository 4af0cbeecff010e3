package app

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"jobfolio/web/internal/backend"
	"jobfolio/web/internal/export"
	"jobfolio/web/internal/rbac"
	"jobfolio/web/internal/route"
	"jobfolio/web/internal/session"
	"jobfolio/web/internal/store"
)

// Backend is the subset of the REST backend the web tier calls.
type Backend interface {
	Login(ctx context.Context, req backend.LoginRequest) (backend.LoginResponse, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, token string) (backend.User, error)
	GetIntroduce(ctx context.Context, token, id string) (export.Document, error)
}

type Exporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

// History lists past exports. It is nil when no database is configured.
type History interface {
	ListExportRecords(ctx context.Context, userID string, limit int) ([]store.ExportRecord, error)
	ListAllExportRecords(ctx context.Context, limit int) ([]store.ExportRecord, error)
}

// Check is one dependency probed by the readiness endpoint.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type Service struct {
	backend  Backend
	exporter Exporter
	history  History
	checks   []Check
}

func NewService(b Backend, exporter Exporter, history History, checks ...Check) *Service {
	return &Service{backend: b, exporter: exporter, history: history, checks: checks}
}

// Login exchanges credentials with the backend and writes the result through
// to every substrate of creds.
func (s *Service) Login(ctx context.Context, creds *session.Store, email, password string) (session.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return session.Session{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "email and password are required", nil)
	}

	res, err := s.backend.Login(ctx, backend.LoginRequest{Email: email, Password: password})
	if err != nil {
		if errors.Is(err, backend.ErrLoginRequired) {
			return session.Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
		}
		return session.Session{}, err
	}

	role := rbac.Normalize(res.User.Role)
	if err := creds.Save(ctx, session.Credentials{
		UserID:   res.User.ID,
		UserName: res.User.Name,
		UserRole: string(role),
		Token:    res.Token,
	}); err != nil {
		// a partial write leaves nothing usable behind
		_ = creds.Clear(ctx)
		return session.Session{}, domainError(http.StatusServiceUnavailable, "SESSION_UNAVAILABLE", "Could not store session", nil)
	}

	zerolog.Ctx(ctx).Info().Str("user_id", res.User.ID).Str("role", string(role)).Msg("login")
	return session.Session{
		Status:   session.StatusAuthenticated,
		UserID:   res.User.ID,
		UserName: res.User.Name,
		UserRole: string(role),
		Token:    res.Token,
	}, nil
}

// Logout tells the backend best-effort and always clears local credentials.
func (s *Service) Logout(ctx context.Context, creds *session.Store, sess session.Session) error {
	if sess.Token != "" {
		if err := s.backend.Logout(ctx, sess.Token); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("backend logout failed")
		}
	}
	return creds.Clear(ctx)
}

// ErrIdentityMismatch means the stored user id is not the one the backend
// associates with the stored token.
var ErrIdentityMismatch = errors.New("stored identity does not match token owner")

// VerifySession replaces the stored identity of sess with the one the backend
// reports for its token.
func (s *Service) VerifySession(ctx context.Context, sess session.Session) (session.Session, error) {
	user, err := s.backend.Me(ctx, sess.Token)
	if err != nil {
		return session.Session{}, err
	}
	if user.ID != sess.UserID {
		zerolog.Ctx(ctx).Warn().Str("stored_user_id", sess.UserID).Str("user_id", user.ID).Msg("session identity mismatch")
		return session.Session{}, ErrIdentityMismatch
	}
	sess.UserName = user.Name
	sess.UserRole = string(rbac.Normalize(user.Role))
	return sess, nil
}

func (s *Service) ExportDocument(ctx context.Context, sess session.Session, doc export.Document, format export.Format) (*export.Result, error) {
	if !rbac.Can(rbac.Role(sess.UserRole), rbac.ActionExport) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	return s.exporter.Export(ctx, export.Request{Document: doc, Format: format, UserID: sess.UserID})
}

// ExportIntroduce loads a saved document from the backend and exports it.
func (s *Service) ExportIntroduce(ctx context.Context, sess session.Session, id string, format export.Format) (*export.Result, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "introduce id is required", nil)
	}
	doc, err := s.backend.GetIntroduce(ctx, sess.Token, id)
	if err != nil {
		return nil, err
	}
	return s.ExportDocument(ctx, sess, doc, format)
}

func (s *Service) ListExports(ctx context.Context, sess session.Session, all bool, limit int) ([]store.ExportRecord, error) {
	if s.history == nil {
		return nil, domainError(http.StatusNotFound, "HISTORY_DISABLED", "Export history is not enabled", nil)
	}
	if all {
		if !rbac.Can(rbac.Role(sess.UserRole), rbac.ActionReadAll) {
			return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
		}
		return s.history.ListAllExportRecords(ctx, limit)
	}
	if !rbac.Can(rbac.Role(sess.UserRole), rbac.ActionReadHistory) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	return s.history.ListExportRecords(ctx, sess.UserID, limit)
}

// Ready pings every dependency and reports each result.
func (s *Service) Ready(ctx context.Context) (bool, map[string]any) {
	ok := true
	checks := map[string]any{}
	for _, check := range s.checks {
		if err := check.Ping(ctx); err != nil {
			ok = false
			checks[check.Name] = map[string]any{"status": "error", "error": err.Error()}
			continue
		}
		checks[check.Name] = map[string]any{"status": "ok"}
	}
	return ok, checks
}

// safeRedirect keeps post-login redirects on this site.
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return route.DashboardPath
	}
	if route.Classify(target) == route.AuthOnly {
		return route.DashboardPath
	}
	return target
}
