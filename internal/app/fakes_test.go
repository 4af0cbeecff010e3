package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/rs/zerolog"

	"jobfolio/web/internal/backend"
	"jobfolio/web/internal/export"
	"jobfolio/web/internal/gate"
	"jobfolio/web/internal/session"
	"jobfolio/web/internal/store"
)

type fakeBackend struct {
	loginFn        func(context.Context, backend.LoginRequest) (backend.LoginResponse, error)
	logoutFn       func(context.Context, string) error
	getIntroduceFn func(context.Context, string, string) (export.Document, error)

	// users maps accepted tokens to their owners.
	users   map[string]backend.User
	meCalls int
}

func (f *fakeBackend) Login(ctx context.Context, req backend.LoginRequest) (backend.LoginResponse, error) {
	if f.loginFn != nil {
		return f.loginFn(ctx, req)
	}
	return backend.LoginResponse{}, errors.New("not implemented")
}

func (f *fakeBackend) Logout(ctx context.Context, token string) error {
	if f.logoutFn != nil {
		return f.logoutFn(ctx, token)
	}
	return nil
}

func (f *fakeBackend) Me(_ context.Context, token string) (backend.User, error) {
	f.meCalls++
	user, ok := f.users[token]
	if !ok {
		return backend.User{}, backend.ErrLoginRequired
	}
	return user, nil
}

func (f *fakeBackend) GetIntroduce(ctx context.Context, token, id string) (export.Document, error) {
	if f.getIntroduceFn != nil {
		return f.getIntroduceFn(ctx, token, id)
	}
	return export.Document{}, errors.New("not implemented")
}

type fakeExporter struct {
	exportFn func(context.Context, export.Request) (*export.Result, error)
	requests []export.Request
}

func (f *fakeExporter) Export(ctx context.Context, req export.Request) (*export.Result, error) {
	f.requests = append(f.requests, req)
	if f.exportFn != nil {
		return f.exportFn(ctx, req)
	}
	return &export.Result{Data: []byte("%PDF-1.3"), Filename: "doc.pdf", MimeType: "application/pdf", Pages: 1}, nil
}

type fakeHistory struct {
	listFn    func(context.Context, string, int) ([]store.ExportRecord, error)
	listAllFn func(context.Context, int) ([]store.ExportRecord, error)
}

func (f *fakeHistory) ListExportRecords(ctx context.Context, userID string, limit int) ([]store.ExportRecord, error) {
	if f.listFn != nil {
		return f.listFn(ctx, userID, limit)
	}
	return []store.ExportRecord{}, nil
}

func (f *fakeHistory) ListAllExportRecords(ctx context.Context, limit int) ([]store.ExportRecord, error) {
	if f.listAllFn != nil {
		return f.listAllFn(ctx, limit)
	}
	return []store.ExportRecord{}, nil
}

type brokenVolatile struct{}

func (brokenVolatile) For(string) session.Substrate { return brokenSubstrate{} }

func (brokenVolatile) Ping(context.Context) error { return session.ErrSubstrate }

type brokenSubstrate struct{}

func (brokenSubstrate) Name() string { return "broken" }

func (brokenSubstrate) Get(context.Context, string) (string, bool, error) {
	return "", false, session.ErrSubstrate
}

func (brokenSubstrate) Set(context.Context, string, string) error { return session.ErrSubstrate }

func (brokenSubstrate) Delete(context.Context, ...string) error { return session.ErrSubstrate }

type testEnv struct {
	backend  *fakeBackend
	exporter *fakeExporter
	history  *fakeHistory
	volatile session.Volatile
	server   *HTTPServer
}

func newTestEnv(opts ...func(*testEnv)) *testEnv {
	env := &testEnv{
		backend: &fakeBackend{users: map[string]backend.User{
			"tok-1": {ID: "user-1", Name: "Avery", Role: "USER"},
		}},
		exporter: &fakeExporter{},
		history:  &fakeHistory{},
		volatile: session.NewMemoryVolatile(),
	}
	for _, opt := range opts {
		opt(env)
	}
	var history History
	if env.history != nil {
		history = env.history
	}
	svc := NewService(env.backend, env.exporter, history, Check{Name: "volatile", Ping: env.volatile.Ping})
	resolver := &gate.Resolver{Volatile: env.volatile, ClientIDCookie: "jf_client"}
	env.server = NewHTTPServer(svc, resolver, []string{"http://localhost:3000"}, zerolog.Nop())
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rr, req)
	return rr
}

func authCookies(req *http.Request, role string) {
	req.AddCookie(&http.Cookie{Name: session.KeyUserID, Value: "user-1"})
	req.AddCookie(&http.Cookie{Name: session.KeyUserName, Value: "Avery"})
	req.AddCookie(&http.Cookie{Name: session.KeyUserRole, Value: role})
	req.AddCookie(&http.Cookie{Name: session.KeyAuthToken, Value: "tok-1"})
}

// carryCookies replays the live cookies a response set onto req.
func carryCookies(req *http.Request, rr *httptest.ResponseRecorder) {
	for _, c := range rr.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			continue
		}
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
