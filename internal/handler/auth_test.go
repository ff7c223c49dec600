package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func newAuthEngine(auth *Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", auth.RequireUser(), func(c *gin.Context) {
		userID, _ := currentUser(c)
		c.String(http.StatusOK, userID.String())
	})
	return r
}

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestRequireUserWithBearerToken(t *testing.T) {
	userID := uuid.New()
	r := newAuthEngine(NewAuthenticator(testSecret, "lifetrack-auth", false))

	valid := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    "lifetrack-auth",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), valid), status: http.StatusOK},
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), valid), status: http.StatusUnauthorized},
		{name: "wrong algorithm", header: "Bearer " + signToken(t, jwt.SigningMethodHS512, []byte(testSecret), valid), status: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    "lifetrack-auth",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}), status: http.StatusUnauthorized},
		{name: "no expiry", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
			Subject: userID.String(),
			Issuer:  "lifetrack-auth",
		}), status: http.StatusUnauthorized},
		{name: "wrong issuer", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}), status: http.StatusUnauthorized},
		{name: "subject not uuid", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
			Subject:   "42",
			Issuer:    "lifetrack-auth",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}), status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, w.Code)
			}
			if tt.status == http.StatusOK && w.Body.String() != userID.String() {
				t.Fatalf("expected user %s, got %q", userID, w.Body.String())
			}
			if tt.status == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Fatal("expected WWW-Authenticate header on 401")
			}
		})
	}
}

func TestRequireUserWithTrustedHeader(t *testing.T) {
	userID := uuid.New()
	r := newAuthEngine(NewAuthenticator("", "", true))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(TrustedUserHeader, userID.String())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != userID.String() {
		t.Fatalf("expected trusted header to authenticate, got %d %q", w.Code, w.Body.String())
	}

	// 信任头模式下忽略 Authorization
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without trusted header, got %d", w.Code)
	}
}
