package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const dateFormat = time.DateOnly

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUUIDParam(c *gin.Context, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(key)))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", key)
	}
	return id, nil
}

// parseIntQuery 读取整数查询参数，缺省时返回 fallback，越界或非数字时报错
func parseIntQuery(c *gin.Context, key string, fallback, minValue, maxValue int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("%s must be between %d and %d", key, minValue, maxValue)
	}
	return value, nil
}

func parseDate(value string) (time.Time, error) {
	parsed, err := time.ParseInLocation(dateFormat, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return parsed, nil
}

func parseOptionalDateQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	parsed, err := parseDate(raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func formatDate(t time.Time) string {
	return t.Format(dateFormat)
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := formatDate(*t)
	return &formatted
}
