package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lifetrack/internal/analytics"
	"github.com/lifetrack/internal/db"
	"github.com/lifetrack/internal/locale"
	"github.com/lifetrack/internal/service"
)

type habitPayload struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Frequency    string  `json:"frequency"`
	TargetDays   *int    `json:"target_days"`
	Category     string  `json:"category"`
	Color        string  `json:"color"`
	Icon         string  `json:"icon"`
	ReminderTime *string `json:"reminder_time"`
}

type habitPatchPayload struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	Frequency    *string `json:"frequency"`
	TargetDays   *int    `json:"target_days"`
	Category     *string `json:"category"`
	Color        *string `json:"color"`
	Icon         *string `json:"icon"`
	ReminderTime *string `json:"reminder_time"`
	IsActive     *bool   `json:"is_active"`
}

// ListHabits 返回当前用户的习惯列表
func (a *API) ListHabits(c *gin.Context) {
	userID, ok := a.requireUser(c)
	if !ok {
		return
	}

	filter := service.HabitFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	if raw := strings.TrimSpace(c.Query("is_active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, locale.Pick(requestLanguage(c), "invalid is_active", "is_active 参数无效"))
			return
		}
		filter.IsActive = &active
	}

	var err error
	if filter.Limit, err = parseIntQuery(c, "limit", 0, 1, 500); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Offset, err = parseIntQuery(c, "offset", 0, 0, 1<<31-1); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	habits, total, err := a.habits.List(c.Request.Context(), userID, filter)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	items := make([]gin.H, 0, len(habits))
	for _, habit := range habits {
		items = append(items, habitToPayload(habit))
	}

	respondHabitSuccess(c, http.StatusOK, gin.H{"habits": items, "total": total})
}

// GetHabit 返回单个习惯详情
func (a *API) GetHabit(c *gin.Context) {
	userID, habitID, ok := a.habitRequest(c)
	if !ok {
		return
	}

	habit, err := a.habits.Get(c.Request.Context(), userID, habitID)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	respondHabitSuccess(c, http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

// CreateHabit 新建习惯
func (a *API) CreateHabit(c *gin.Context) {
	userID, ok := a.requireUser(c)
	if !ok {
		return
	}

	var payload habitPayload
	if !bindJSON(c, &payload, locale.Pick(requestLanguage(c), "invalid habit payload", "习惯参数格式错误")) {
		return
	}

	habit, err := a.habits.Create(c.Request.Context(), userID, service.HabitInput{
		Name:         payload.Name,
		Description:  payload.Description,
		Frequency:    payload.Frequency,
		TargetDays:   payload.TargetDays,
		Category:     payload.Category,
		Color:        payload.Color,
		Icon:         payload.Icon,
		ReminderTime: payload.ReminderTime,
	})
	if err != nil {
		handleHabitError(c, err)
		return
	}

	respondHabitSuccess(c, http.StatusCreated, gin.H{"habit": habitToPayload(*habit)})
}

// UpdateHabit 部分更新习惯
func (a *API) UpdateHabit(c *gin.Context) {
	userID, habitID, ok := a.habitRequest(c)
	if !ok {
		return
	}

	var payload habitPatchPayload
	if !bindJSON(c, &payload, locale.Pick(requestLanguage(c), "invalid habit payload", "习惯参数格式错误")) {
		return
	}

	habit, err := a.habits.Update(c.Request.Context(), userID, habitID, service.HabitPatch{
		Name:         payload.Name,
		Description:  payload.Description,
		Frequency:    payload.Frequency,
		TargetDays:   payload.TargetDays,
		Category:     payload.Category,
		Color:        payload.Color,
		Icon:         payload.Icon,
		ReminderTime: payload.ReminderTime,
		IsActive:     payload.IsActive,
	})
	if err != nil {
		handleHabitError(c, err)
		return
	}

	respondHabitSuccess(c, http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

// DeleteHabit 删除习惯及其打卡记录
func (a *API) DeleteHabit(c *gin.Context) {
	userID, habitID, ok := a.habitRequest(c)
	if !ok {
		return
	}

	if err := a.habits.Delete(c.Request.Context(), userID, habitID); err != nil {
		handleHabitError(c, err)
		return
	}

	respondHabitSuccess(c, http.StatusOK, gin.H{"deleted": true})
}

// ResetHabitStreak 将当前连胜清零，最长连胜与累计完成数不变。
// 清零只作用于缓存计数，之后任何打卡变更触发的写回都会按日志重新计算 current_streak
func (a *API) ResetHabitStreak(c *gin.Context) {
	userID, habitID, ok := a.habitRequest(c)
	if !ok {
		return
	}

	habit, err := a.habits.ResetStreak(c.Request.Context(), userID, habitID)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	respondHabitSuccess(c, http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

func (a *API) requireUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := currentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, locale.Pick(requestLanguage(c), "authentication required", "需要登录"))
		return uuid.Nil, false
	}
	return userID, true
}

// habitRequest 同时解析当前用户与路径中的习惯 ID
func (a *API) habitRequest(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := a.requireUser(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	habitID, err := parseUUIDParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, locale.Pick(requestLanguage(c), "invalid habit id", "无效的习惯ID"))
		return uuid.Nil, uuid.Nil, false
	}
	return userID, habitID, true
}

func habitToPayload(habit db.Habit) gin.H {
	return gin.H{
		"id":                habit.ID,
		"user_id":           habit.UserID,
		"name":              habit.Name,
		"description":       habit.Description,
		"frequency":         habit.Frequency,
		"target_days":       habit.TargetDays,
		"category":          habit.Category,
		"color":             habit.Color,
		"icon":              habit.Icon,
		"reminder_time":     habit.ReminderTime,
		"is_active":         habit.IsActive,
		"current_streak":    habit.CurrentStreak,
		"longest_streak":    habit.LongestStreak,
		"total_completions": habit.TotalCompletions,
		"created_at":        habit.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":        habit.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func respondHabitSuccess(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

func handleHabitError(c *gin.Context, err error) {
	language := requestLanguage(c)
	switch {
	case errors.Is(err, service.ErrHabitNotFound):
		respondError(c, http.StatusNotFound, locale.Pick(language, "habit not found", "习惯不存在"))
	case errors.Is(err, service.ErrEntryNotFound):
		respondError(c, http.StatusNotFound, locale.Pick(language, "habit entry not found", "打卡记录不存在"))
	case errors.Is(err, service.ErrHabitInvalidFrequency):
		respondError(c, http.StatusBadRequest, locale.Pick(language, "invalid frequency configuration", "频率配置无效"))
	case errors.Is(err, service.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, analytics.ErrRecoveryUnavailable):
		respondError(c, http.StatusBadRequest, locale.Pick(language,
			"streak recovery is no longer available for this habit", "该习惯已无法补签"))
	case errors.Is(err, analytics.ErrRecoveryDateOutOfRange):
		respondError(c, http.StatusBadRequest, locale.Pick(language,
			"recovery date is outside the allowed grace period", "补签日期超出宽限期"))
	case errors.Is(err, service.ErrEntryExists):
		respondError(c, http.StatusConflict, locale.Pick(language, "entry already exists for this date", "当天已有打卡记录"))
	case errors.Is(err, service.ErrConcurrentUpdate):
		respondError(c, http.StatusConflict, locale.Pick(language, "habit was updated concurrently, please retry", "习惯正在被修改，请重试"))
	default:
		c.Error(err)
		respondError(c, http.StatusInternalServerError, locale.Pick(language, "operation failed", "操作失败"))
	}
}
