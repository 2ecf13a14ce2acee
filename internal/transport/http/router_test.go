package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/product_api/internal/events"
	"github.com/Skotchmaster/product_api/internal/handlers"
	"github.com/Skotchmaster/product_api/internal/hash"
	"github.com/Skotchmaster/product_api/internal/metrics"
	"github.com/Skotchmaster/product_api/internal/middleware"
	"github.com/Skotchmaster/product_api/internal/repo"
	"github.com/Skotchmaster/product_api/internal/repo/repotest"
	"github.com/Skotchmaster/product_api/internal/service"
	"github.com/Skotchmaster/product_api/internal/tokens"
	"github.com/Skotchmaster/product_api/internal/validator"
)

func newServer(t *testing.T) *echo.Echo {
	t.Helper()

	db := repotest.NewDB(t)
	issuer, err := tokens.NewIssuer(tokens.IssuerConfig{
		Secret:   []byte("router-test-secret"),
		Issuer:   "product-api",
		Audience: "product-api-clients",
	})
	require.NoError(t, err)

	svc, err := service.NewAuthService(&repo.GormRepo{DB: db}, hash.Bcrypt{Cost: bcrypt.MinCost}, issuer, tokens.RefreshGenerator{})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	e := echo.New()
	e.Validator = validator.New()
	e.Use(m.Middleware())
	e.Use(middleware.RequestLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))))

	Register(e, &Deps{
		AuthHandler: &handlers.AuthHandler{
			Service:  svc,
			Producer: events.Noop{},
			Topic:    "user_events",
			Metrics:  m,
		},
		HealthHandler: &handlers.HealthHandler{DB: db},
		TokenParser:   issuer,
		Gatherer:      reg,
	})
	return e
}

func do(e *echo.Echo, method, path, body string, header ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRouter_AuthFlow(t *testing.T) {
	e := newServer(t)

	rec := do(e, http.MethodPost, "/api/auth/register", `{"username":"alice","email":"a@x.com","password":"pw123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var user handlers.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))

	rec = do(e, http.MethodPost, "/api/auth/register", `{"username":"alice","email":"a@x.com","password":"pw123"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"pw123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var t1 handlers.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &t1))

	rec = do(e, http.MethodGet, "/api/auth/me", "", echo.HeaderAuthorization, "Bearer "+t1.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId":"`+user.ID+`","email":"a@x.com"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	refresh := `{"userId":"` + user.ID + `","refreshToken":"` + t1.RefreshToken + `"}`
	rec = do(e, http.MethodPost, "/api/auth/refresh-token", refresh)
	require.Equal(t, http.StatusOK, rec.Code)
	var t2 handlers.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &t2))
	assert.NotEqual(t, t1.RefreshToken, t2.RefreshToken)

	rec = do(e, http.MethodPost, "/api/auth/refresh-token", refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")

	rec = do(e, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `auth_operations_total{operation="register",outcome="duplicate_email"} 1`)
	assert.Contains(t, rec.Body.String(), `auth_operations_total{operation="refresh",outcome="invalid_session"} 1`)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="POST",path="/api/auth/login",status="200"} 1`)
}

func TestRouter_Health(t *testing.T) {
	e := newServer(t)

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/health/live", "").Code)

	rec := do(e, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
