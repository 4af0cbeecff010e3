package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:         srv.URL + "/",
		Retries:         2,
		Timeout:         time.Second,
		InitialInterval: time.Millisecond,
	})
}

func TestLogin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/auth/login", r.URL.Path)
		require.Empty(t, r.Header.Get("Authorization"))

		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "a@b.c", req.Email)

		_ = json.NewEncoder(w).Encode(LoginResponse{Token: "tok", User: User{ID: "u-1", Name: "Kim", Role: "ADMIN"}})
	})

	res, err := client.Login(context.Background(), LoginRequest{Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, "tok", res.Token)
	require.Equal(t, "u-1", res.User.ID)
	require.Equal(t, "ADMIN", res.User.Role)
}

func TestLoginMissingToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":"u-1"}}`))
	})

	_, err := client.Login(context.Background(), LoginRequest{Email: "a", Password: "b"})
	var ext *ExternalServiceError
	require.ErrorAs(t, err, &ext)
	require.Equal(t, http.StatusBadGateway, ext.Status)
}

func TestMe(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/auth/me", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(User{ID: "u-1", Name: "Kim", Role: "USER"})
	})

	user, err := client.Me(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, User{ID: "u-1", Name: "Kim", Role: "USER"}, user)

	_, err = client.Me(context.Background(), "forged")
	require.ErrorIs(t, err, ErrLoginRequired)
}

func TestMeMissingUserID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"Kim"}`))
	})

	_, err := client.Me(context.Background(), "tok")
	var ext *ExternalServiceError
	require.ErrorAs(t, err, &ext)
	require.Equal(t, http.StatusBadGateway, ext.Status)
}

func TestGetIntroduceSendsBearer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/introduce/intro%201", r.URL.EscapedPath())
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"title":"Intro","questions":[{"title":"Why","content":"Because"}]}`))
	})

	doc, err := client.GetIntroduce(context.Background(), "tok", "intro 1")
	require.NoError(t, err)
	require.Equal(t, "Intro", doc.Title)
	require.Len(t, doc.Questions, 1)
	require.Equal(t, "Because", doc.Questions[0].Content)
}

func TestLoginRequired(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "unauthorized status", status: http.StatusUnauthorized, body: `{"message":"expired"}`},
		{name: "message", status: http.StatusForbidden, body: `{"message":"Login required"}`},
		{name: "korean message", status: http.StatusBadRequest, body: `{"error":"로그인이 필요합니다"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.GetIntroduce(context.Background(), "tok", "1")
			require.ErrorIs(t, err, ErrLoginRequired)
			require.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"introduce not found"}`))
	})

	_, err := client.GetIntroduce(context.Background(), "tok", "missing")
	var ext *ExternalServiceError
	require.ErrorAs(t, err, &ext)
	require.Equal(t, http.StatusNotFound, ext.Status)
	require.Equal(t, "introduce not found", ext.Message)
	require.Equal(t, int32(1), calls.Load())
}

func TestServerErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"title":"Intro","questions":[]}`))
	})

	doc, err := client.GetIntroduce(context.Background(), "tok", "1")
	require.NoError(t, err)
	require.Equal(t, "Intro", doc.Title)
	require.Equal(t, int32(3), calls.Load())
}

func TestServerErrorGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})

	err := client.Logout(context.Background(), "tok")
	var ext *ExternalServiceError
	require.True(t, errors.As(err, &ext))
	require.Equal(t, http.StatusInternalServerError, ext.Status)
	require.Equal(t, "boom", ext.Message)
	require.Equal(t, int32(3), calls.Load())
}
