package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"jobfolio/web/internal/backend"
	"jobfolio/web/internal/export"
	"jobfolio/web/internal/gate"
	"jobfolio/web/internal/session"
	"jobfolio/web/internal/util"
)

type HTTPServer struct {
	service     *Service
	resolver    *gate.Resolver
	edge        *gate.Edge
	pages       *Pages
	corsOrigins []string
	logger      zerolog.Logger
}

func NewHTTPServer(service *Service, resolver *gate.Resolver, corsOrigins []string, logger zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		service:     service,
		resolver:    resolver,
		edge:        gate.NewEdge(resolver),
		pages:       NewPages(service, resolver),
		corsOrigins: corsOrigins,
		logger:      logger,
	}
}

// Handler wires the edge gate in front of both the API and the pages. Pages
// additionally pass the mount gate.
func (s *HTTPServer) Handler() http.Handler {
	api := cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
	}).Handler(http.HandlerFunc(s.handleAPI))

	mux := http.NewServeMux()
	mux.Handle("/api/", api)
	mux.Handle("/", s.pages.Handler())

	return s.withMiddleware(s.recoverer(s.edge.Middleware(mux)))
}

func (s *HTTPServer) handleAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		ok, checks := s.service.Ready(ctx)
		status, statusCode := "ready", http.StatusOK
		if !ok {
			status, statusCode = "not_ready", http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, map[string]any{"ok": ok, "status": status, "checks": checks})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		sess, err := s.resolver.Resolve(r.Context(), s.resolver.ClientStore(w, r))
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "SESSION_UNAVAILABLE", "Session store unavailable", nil)
			return
		}
		writeJSON(w, http.StatusOK, sessionPayload(sess))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/login" {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Redirect string `json:"redirect"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		sess, err := s.service.Login(r.Context(), s.resolver.ClientStore(w, r), body.Email, body.Password)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		payload := sessionPayload(sess)
		payload["redirect"] = safeRedirect(body.Redirect)
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/logout" {
		creds := s.resolver.ClientStore(w, r)
		sess, _ := s.resolver.Resolve(r.Context(), creds)
		if err := s.service.Logout(r.Context(), creds, sess); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("clear credentials failed")
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	parts := splitPath(r.URL.Path)

	if r.Method == http.MethodPost && r.URL.Path == "/api/export" {
		sess, creds, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body struct {
			Document export.Document `json:"document"`
			Format   string          `json:"format"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.ExportDocument(r.Context(), sess, body.Document, export.Format(strings.ToLower(body.Format)))
		s.writeExport(w, r, creds, result, err)
		return
	}

	// GET /api/introduce/{id}/export?format=pdf|docx
	if r.Method == http.MethodGet && len(parts) == 4 && parts[1] == "introduce" && parts[3] == "export" {
		sess, creds, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		format := export.Format(strings.ToLower(r.URL.Query().Get("format")))
		if format == "" {
			format = export.FormatPDF
		}
		result, err := s.service.ExportIntroduce(r.Context(), sess, parts[2], format)
		s.writeExport(w, r, creds, result, err)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/exports" {
		sess, _, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		all := r.URL.Query().Get("all") == "1"
		records, err := s.service.ListExports(r.Context(), sess, all, limit)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": records})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// requireSession resolves the caller from the client store and confirms the
// identity with the backend. Handlers only see the backend's user id and role.
func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (session.Session, *session.Store, bool) {
	creds := s.resolver.ClientStore(w, r)
	sess, err := s.resolver.Resolve(r.Context(), creds)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "SESSION_UNAVAILABLE", "Session store unavailable", nil)
		return session.Session{}, nil, false
	}
	if !sess.Authenticated() {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", map[string]any{
			"redirect": gate.LoginURL(refererPath(r)),
		})
		return session.Session{}, nil, false
	}

	verified, err := s.service.VerifySession(r.Context(), sess)
	if err != nil {
		s.writeBackendError(w, r, creds, err)
		return session.Session{}, nil, false
	}
	// set by the edge from the same cookies, or by the caller
	if forwarded := r.Header.Get(gate.UserIDHeader); forwarded != "" && forwarded != verified.UserID {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Forwarded user does not match the session", nil)
		return session.Session{}, nil, false
	}
	return verified, creds, true
}

// writeBackendError clears local credentials when the backend no longer
// accepts them.
func (s *HTTPServer) writeBackendError(w http.ResponseWriter, r *http.Request, creds *session.Store, err error) {
	if errors.Is(err, backend.ErrLoginRequired) || errors.Is(err, ErrIdentityMismatch) {
		if clearErr := creds.Clear(r.Context()); clearErr != nil {
			zerolog.Ctx(r.Context()).Warn().Err(clearErr).Msg("clear credentials failed")
		}
		writeError(w, http.StatusUnauthorized, "LOGIN_REQUIRED", "Login required", map[string]any{
			"redirect": gate.LoginURL(refererPath(r)),
		})
		return
	}
	s.writeMappedError(w, r, err)
}

func (s *HTTPServer) writeExport(w http.ResponseWriter, r *http.Request, creds *session.Store, result *export.Result, err error) {
	if err != nil {
		s.writeBackendError(w, r, creds, err)
		return
	}

	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	if result.Pages > 0 {
		w.Header().Set("X-Export-Pages", strconv.Itoa(result.Pages))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) writeMappedError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("code", code).Msg("request failed")
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = util.NewID("req")
		}
		logger := s.logger.With().Str("request_id", requestID).Logger()
		r = r.WithContext(logger.WithContext(r.Context()))

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", writer.status).
			Int64("duration_ms", time.Since(started).Milliseconds()).
			Msg("request")
	})
}

func (s *HTTPServer) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				zerolog.Ctx(r.Context()).Error().
					Str("panic", fmt.Sprint(rec)).
					Bytes("stack", debug.Stack()).
					Msg("handler panic")
				writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func sessionPayload(sess session.Session) map[string]any {
	return map[string]any{
		"authenticated": sess.Authenticated(),
		"status":        sess.Status,
		"userId":        sess.UserID,
		"userName":      sess.UserName,
		"userRole":      sess.UserRole,
	}
}

// refererPath is the in-site page an API call was made from, used as the
// return target of a login redirect.
func refererPath(r *http.Request) string {
	ref, err := url.Parse(r.Header.Get("Referer"))
	if err != nil || ref.Path == "" || !strings.HasPrefix(ref.Path, "/") || strings.HasPrefix(ref.Path, "//") {
		return "/"
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 4<<20))
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
