package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

func testAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	am := NewAuthMiddleware(log)

	r := gin.New()
	r.POST("/admin", am.RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func mintToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestRequireAdminRejectsMissingToken(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "test-secret")
	r := testAuthRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAdminAcceptsAdminToken(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "test-secret")
	r := testAuthRouter(t)

	tok := mintToken(t, "test-secret", jwt.MapClaims{
		"sub":  "ops@lexbridge",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusNoContent)
	}
}

func TestRequireAdminRejectsWrongRole(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "test-secret")
	r := testAuthRouter(t)

	tok := mintToken(t, "test-secret", jwt.MapClaims{
		"sub":  "volunteer@lexbridge",
		"role": "translator",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusForbidden)
	}
}

func TestRequireAdminRejectsWrongSecret(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "test-secret")
	r := testAuthRouter(t)

	tok := mintToken(t, "other-secret", jwt.MapClaims{
		"sub":  "ops@lexbridge",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAdminAcceptsQueryToken(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "test-secret")
	r := testAuthRouter(t)

	tok := mintToken(t, "test-secret", jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodPost, "/admin?token="+tok, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusNoContent)
	}
}

func TestRequireAdminDisabledWithoutSecret(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "")
	r := testAuthRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusNoContent)
	}
}
