package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lifetrack/internal/db"
	"github.com/lifetrack/internal/logging"
	"github.com/lifetrack/internal/service"
	"gorm.io/gorm/logger"
)

var handlerNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func setupTestDB(t *testing.T) (*API, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := db.Open(dsn, logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	cleanup := func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	}

	return NewAPI(gdb, nil, service.FixedClock(handlerNow), service.DefaultGraceDays), cleanup
}

// newContext 构造已通过鉴权的请求上下文
func newContext(method, target string, body any, userID uuid.UUID) (*gin.Context, *httptest.ResponseRecorder) {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	if userID != uuid.Nil {
		c.Set(logging.UserIDKey, userID)
	}
	return c, w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return payload
}

func mustCreateHabitViaAPI(t *testing.T, api *API, userID uuid.UUID, name, frequency string) string {
	t.Helper()
	c, w := newContext(http.MethodPost, "/api/v1/habits", map[string]any{"name": name, "frequency": frequency}, userID)
	api.CreateHabit(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	habit := decodeBody(t, w)["habit"].(map[string]any)
	return habit["id"].(string)
}

func mustLogEntryViaAPI(t *testing.T, api *API, userID uuid.UUID, habitID string, date string, notes string) map[string]any {
	t.Helper()
	c, w := newContext(http.MethodPost, "/api/v1/habits/"+habitID+"/entries",
		map[string]any{"entry_date": date, "completed": true, "notes": notes}, userID)
	c.Params = gin.Params{{Key: "id", Value: habitID}}
	api.CreateHabitEntry(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201 for %s, got %d: %s", date, w.Code, w.Body.String())
	}
	return decodeBody(t, w)
}
