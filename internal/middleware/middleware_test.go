package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace-be/internal/apperror"
	"marketplace-be/internal/auth"
	"marketplace-be/internal/cache"
	"marketplace-be/internal/logger"
	"marketplace-be/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperror.Response {
	t.Helper()
	var body apperror.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRequestID(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		seen = logger.RequestIDFrom(c.Request.Context())
		c.Status(http.StatusOK)
	})

	t.Run("GeneratesIDWhenMissing", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
	})

	t.Run("PreservesExistingID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "test-id-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "test-id-123", seen)
		assert.Equal(t, "test-id-123", w.Header().Get(RequestIDHeader))
	})
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := logger.Replace(zap.New(core))
	defer restore()

	r := gin.New()
	r.Use(RequestID(), Logging())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodGet, "/items/42", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "/items/42", fields["path"])
	assert.Equal(t, "/items/:id", fields["route"])
	assert.Equal(t, int64(http.StatusNotFound), fields["status"])
	assert.Equal(t, "rid-1", fields["request_id"])
}

func TestMetrics(t *testing.T) {
	m := metrics.New()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/orders/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/"+uuid.NewString(), nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/orders/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestAuthenticate(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	revocations := auth.NewRevocations(cache.NewMemoryStore())
	userID := uuid.New()

	var got auth.Caller
	r := gin.New()
	r.GET("/me", Authenticate(tokens, revocations), func(c *gin.Context) {
		got, _ = auth.CallerFrom(c.Request.Context())
		c.Status(http.StatusOK)
	})
	r.GET("/seller", Authenticate(tokens, revocations), RequireRole(auth.RoleSeller), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	t.Run("BearerToken", func(t *testing.T) {
		token, _, err := tokens.Generate(userID, "a@b.com", auth.RoleBuyer)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, auth.Caller{ID: userID, Role: auth.RoleBuyer}, got)
	})

	t.Run("CookieToken", func(t *testing.T) {
		token, _, err := tokens.Generate(userID, "a@b.com", auth.RoleSeller)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, auth.RoleSeller, got.Role)
	})

	t.Run("MissingToken", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "UNAUTHENTICATED", decodeError(t, w).Code)
	})

	t.Run("InvalidToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "INVALID_TOKEN", decodeError(t, w).Code)
	})

	t.Run("RevokedToken", func(t *testing.T) {
		token, claims, err := tokens.Generate(userID, "a@b.com", auth.RoleBuyer)
		require.NoError(t, err)
		require.NoError(t, revocations.Revoke(context.Background(), claims.ID, claims.ExpiresAt.Time))

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "TOKEN_REVOKED", decodeError(t, w).Code)
	})

	t.Run("WrongRole", func(t *testing.T) {
		token, _, err := tokens.Generate(userID, "a@b.com", auth.RoleBuyer)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/seller", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "ROLE_FORBIDDEN", decodeError(t, w).Code)
	})
}

func TestRateLimiter(t *testing.T) {
	newRouter := func(l *RateLimiter) *gin.Engine {
		r := gin.New()
		r.Use(l.Middleware())
		r.POST("/auth/login", func(c *gin.Context) { c.Status(http.StatusOK) })
		r.GET("/products", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}

	t.Run("StrictTierOnAuthRoutes", func(t *testing.T) {
		r := newRouter(NewRateLimiter(""))

		codes := make([]int, 0, burstStrict+1)
		for i := 0; i < burstStrict+1; i++ {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
			codes = append(codes, w.Code)
		}

		for _, code := range codes[:burstStrict] {
			assert.Equal(t, http.StatusOK, code)
		}
		assert.Equal(t, http.StatusTooManyRequests, codes[burstStrict])
	})

	t.Run("TiersAreSeparate", func(t *testing.T) {
		r := newRouter(NewRateLimiter(""))

		for i := 0; i < burstStrict+1; i++ {
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/auth/login", nil))
		}

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("DevicesAreSeparate", func(t *testing.T) {
		r := newRouter(NewRateLimiter(""))

		for i := 0; i < burstGeneral+1; i++ {
			req := httptest.NewRequest(http.MethodGet, "/products", nil)
			req.Header.Set("X-Device-ID", "device-a")
			r.ServeHTTP(httptest.NewRecorder(), req)
		}

		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.Header.Set("X-Device-ID", "device-b")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("StrictTierIgnoresDeviceHeader", func(t *testing.T) {
		r := newRouter(NewRateLimiter(""))

		codes := make([]int, 0, burstStrict+1)
		for i := 0; i < burstStrict+1; i++ {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
			req.Header.Set("X-Device-ID", uuid.NewString())
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			codes = append(codes, w.Code)
		}
		assert.Equal(t, http.StatusTooManyRequests, codes[burstStrict])
	})

	t.Run("UsersAreSeparate", func(t *testing.T) {
		l := NewRateLimiter("")
		r := gin.New()
		r.Use(func(c *gin.Context) {
			id := uuid.MustParse(c.GetHeader("X-Test-User"))
			ctx := auth.WithCaller(c.Request.Context(), auth.Caller{ID: id, Role: auth.RoleBuyer})
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		}, l.Middleware())
		r.GET("/orders", func(c *gin.Context) { c.Status(http.StatusOK) })

		serve := func(userID uuid.UUID) int {
			req := httptest.NewRequest(http.MethodGet, "/orders", nil)
			req.Header.Set("X-Test-User", userID.String())
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			return w.Code
		}

		first := uuid.New()
		for i := 0; i < burstGeneral; i++ {
			require.Equal(t, http.StatusOK, serve(first))
		}
		assert.Equal(t, http.StatusTooManyRequests, serve(first))
		assert.Equal(t, http.StatusOK, serve(uuid.New()))
	})

	t.Run("ResolveTier", func(t *testing.T) {
		l := NewRateLimiter("secret")

		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.Header.Set("X-Service-Auth", "secret")
		_, _, tier := l.resolveRateTier(req)
		assert.Equal(t, "internal", tier)

		req = httptest.NewRequest(http.MethodGet, "/products", nil)
		req.Header.Set("X-Client-Type", "frontend-heavy")
		_, _, tier = l.resolveRateTier(req)
		assert.Equal(t, "frontend", tier)

		_, _, tier = l.resolveRateTier(httptest.NewRequest(http.MethodGet, "/products", nil))
		assert.Equal(t, "general", tier)
	})

	t.Run("CleanupEvictsIdleVisitors", func(t *testing.T) {
		l := NewRateLimiter("")
		now := time.Now()
		l.now = func() time.Time { return now }
		l.getVisitor("ip:1:general", limitGeneral, burstGeneral)

		now = now.Add(visitorTTL + time.Second)
		l.cleanup()

		assert.Empty(t, l.visitors)
	})
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS("http://localhost:3000"))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("Preflight", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/test", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PUT")
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("NormalRequest", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	restore := logger.Replace(zap.New(core))
	defer restore()

	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL", decodeError(t, w).Code)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}
