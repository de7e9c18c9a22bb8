package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kisuya/reasoncard/internal/auth"
	"github.com/kisuya/reasoncard/internal/catalog"
	"github.com/kisuya/reasoncard/internal/clockid"
	"github.com/kisuya/reasoncard/internal/domain"
	"github.com/kisuya/reasoncard/internal/reportsm"
	"github.com/kisuya/reasoncard/internal/store"
)

func newTestServer(t *testing.T) (*Server, clockid.Clock) {
	t.Helper()
	now := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	clock := clockid.FixedClock{At: now}
	st := store.New(clock, clockid.NewSequenceMinter("id"))
	cat := catalog.New("v1", []catalog.Entry{
		{Market: domain.MarketUS, Ticker: "AAPL", Name: "Apple Inc", Active: true},
	})
	tokens := auth.NewTokens("test-secret", time.Hour)

	cfg := DefaultServerConfig()
	cfg.RequestTimeout = time.Second
	srv := NewServer(cfg, Deps{
		Store:   st,
		Tokens:  tokens,
		Catalog: cat,
		Clock:   clock,
		Minter:  clockid.NewSequenceMinter("id"),
		Reports: reportsm.New(st, clock, zerolog.Nop()),
	}, zerolog.Nop())
	return srv, clock
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Origin", "http://localhost:3000")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	return rec
}

func TestSignupLoginAndMe(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/v1/auth/signup", "", signupRequest{Email: "a@b.com", Password: "password1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var signed authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signed))
	require.NotEmpty(t, signed.Token)

	rec = doJSON(t, srv, http.MethodGet, "/v1/me", signed.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/v1/auth/login", "", loginRequest{Email: "a@b.com", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/v1/auth/login", "", loginRequest{Email: "a@b.com", Password: "password1"})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMeRequiresBearerToken(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/v1/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWatchlistAddRejectsUnknownSymbol(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/auth/signup", "", signupRequest{Email: "c@d.com", Password: "password1"})
	var signed authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signed))

	rec = doJSON(t, srv, http.MethodPost, "/v1/watchlist", signed.Token, addWatchlistRequest{Market: "US", Ticker: "ZZZZ"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/v1/watchlist", signed.Token, addWatchlistRequest{Market: "US", Ticker: "AAPL"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/v1/watchlist", signed.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSRejectsUnlistedOrigin(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost.evil.example")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRevisionHistoryNotFoundWhenNoReportFiled(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/auth/signup", "", signupRequest{Email: "e@f.com", Password: "password1"})
	var signed authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signed))

	rec = doJSON(t, srv, http.MethodGet, "/v1/events/does-not-exist/revision-history", signed.Token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
