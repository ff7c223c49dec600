package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("verbose", "json"); err == nil {
		t.Fatal("expected error for unknown level")
	}

	log, err := New("debug", "console")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug level to be enabled")
	}
}

func TestMiddlewareLogsRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	router := gin.New()
	router.Use(Middleware(zap.New(core)))
	router.GET("/habits", func(c *gin.Context) {
		c.Set(UserIDKey, "user-1")
		c.Status(http.StatusOK)
	})
	router.GET("/missing", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/habits", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}

	first := entries[0].ContextMap()
	if first["path"] != "/habits" || first["user_id"] != "user-1" {
		t.Fatalf("unexpected fields: %v", first)
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("expected 404 to log at warn, got %s", entries[1].Level)
	}
}
