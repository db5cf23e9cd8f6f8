package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEcho(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.Use(mw...)
	return e
}

func TestRequestID(t *testing.T) {
	var seen, fromCtx string
	e := newTestEcho(RequestID())
	e.GET("/", func(c echo.Context) error {
		seen = GetRequestID(c)
		fromCtx = RequestIDFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, fromCtx)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "gateway-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "gateway-123", seen, "upstream id is reused")
}

func TestUserIdentity(t *testing.T) {
	var got *int64
	e := newTestEcho(UserIdentity())
	e.GET("/", func(c echo.Context) error {
		got = GetUserID(c)
		return c.NoContent(http.StatusOK)
	})

	for raw, want := range map[string]int64{"42": 42, "": 0, "abc": 0, "-3": 0} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if raw != "" {
			req.Header.Set(UserIDHeader, raw)
		}
		e.ServeHTTP(httptest.NewRecorder(), req)
		if want == 0 {
			assert.Nil(t, got, "header %q", raw)
			continue
		}
		require.NotNil(t, got)
		assert.Equal(t, want, *got)
	}
}

func TestCORS(t *testing.T) {
	e := newTestEcho(CORS(CORSConfig{AllowedOrigins: []string{"https://erp.example.com"}, AllowCredentials: true}))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://erp.example.com")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://erp.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), UserIDHeader)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	e := newTestEcho(SecurityHeaders())
	e.GET("/*", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/productos/x/documentos/A/f.pdf", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "attachment", rec.Header().Get("Content-Disposition"))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/productos/x/imagenes/A/webp/w.webp", nil))
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestRecovery(t *testing.T) {
	e := newTestEcho(Recovery())
	e.GET("/", func(echo.Context) error { panic("decoder exploded") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_error")
}

func TestIPExtractor(t *testing.T) {
	extract := buildIPExtractor([]string{"10.0.0.0/8", "not-a-cidr"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.1.2.3")
	assert.Equal(t, "203.0.113.9", extract(req))

	req.RemoteAddr = "198.51.100.7:5555"
	assert.Equal(t, "198.51.100.7", extract(req), "untrusted peers cannot spoof")
}
