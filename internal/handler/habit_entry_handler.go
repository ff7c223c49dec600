package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lifetrack/internal/db"
	"github.com/lifetrack/internal/locale"
	"github.com/lifetrack/internal/service"
)

type entryPayload struct {
	EntryDate string `json:"entry_date"`
	Completed bool   `json:"completed"`
	Notes     string `json:"notes"`
	Mood      string `json:"mood"`
}

type entryPatchPayload struct {
	Completed *bool   `json:"completed"`
	Notes     *string `json:"notes"`
	Mood      *string `json:"mood"`
}

// ListHabitEntries 返回习惯的打卡记录，支持 start/end/limit/offset
func (a *API) ListHabitEntries(c *gin.Context) {
	userID, habitID, ok := a.habitRequest(c)
	if !ok {
		return
	}

	var page service.EntryPage
	var err error
	if page.Start, err = parseOptionalDateQuery(c, "start"); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if page.End, err = parseOptionalDateQuery(c, "end"); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if page.Limit, err = parseIntQuery(c, "limit", 0, 1, 366); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if page.Offset, err = parseIntQuery(c, "offset", 0, 0, 1<<31-1); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	entries, total, err := a.entries.List(c.Request.Context(), userID, habitID, page)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	respondHabitSuccess(c, http.StatusOK, gin.H{"entries": serializeEntries(entries), "total": total})
}

// CreateHabitEntry 打卡，同一天只允许一条记录
func (a *API) CreateHabitEntry(c *gin.Context) {
	userID, habitID, ok := a.habitRequest(c)
	if !ok {
		return
	}

	var payload entryPayload
	if !bindJSON(c, &payload, locale.Pick(requestLanguage(c), "invalid entry payload", "打卡参数格式错误")) {
		return
	}

	entryDate, err := parseDate(payload.EntryDate)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.entries.Create(c.Request.Context(), userID, habitID, service.EntryInput{
		EntryDate: entryDate,
		Completed: payload.Completed,
		Notes:     payload.Notes,
		Mood:      payload.Mood,
	})
	if err != nil {
		handleHabitError(c, err)
		return
	}

	respondHabitSuccess(c, http.StatusCreated, gin.H{
		"entry": serializeEntry(result.Entry),
		"habit": habitToPayload(result.Habit),
	})
}

// UpdateHabitEntry 修改打卡记录
func (a *API) UpdateHabitEntry(c *gin.Context) {
	userID, habitID, ok := a.habitRequest(c)
	if !ok {
		return
	}
	entryID, err := parseUUIDParam(c, "entryId")
	if err != nil {
		respondError(c, http.StatusBadRequest, locale.Pick(requestLanguage(c), "invalid entry id", "无效的打卡记录ID"))
		return
	}

	var payload entryPatchPayload
	if !bindJSON(c, &payload, locale.Pick(requestLanguage(c), "invalid entry payload", "打卡参数格式错误")) {
		return
	}

	result, err := a.entries.Update(c.Request.Context(), userID, habitID, entryID, service.EntryPatch{
		Completed: payload.Completed,
		Notes:     payload.Notes,
		Mood:      payload.Mood,
	})
	if err != nil {
		handleHabitError(c, err)
		return
	}

	respondHabitSuccess(c, http.StatusOK, gin.H{
		"entry": serializeEntry(result.Entry),
		"habit": habitToPayload(result.Habit),
	})
}

// DeleteHabitEntry 删除打卡记录
func (a *API) DeleteHabitEntry(c *gin.Context) {
	userID, habitID, ok := a.habitRequest(c)
	if !ok {
		return
	}
	entryID, err := parseUUIDParam(c, "entryId")
	if err != nil {
		respondError(c, http.StatusBadRequest, locale.Pick(requestLanguage(c), "invalid entry id", "无效的打卡记录ID"))
		return
	}

	habit, err := a.entries.Delete(c.Request.Context(), userID, habitID, entryID)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	respondHabitSuccess(c, http.StatusOK, gin.H{"deleted": true, "habit": habitToPayload(*habit)})
}

// RecoverHabitStreak 在宽限期内补签
func (a *API) RecoverHabitStreak(c *gin.Context) {
	userID, habitID, ok := a.habitRequest(c)
	if !ok {
		return
	}

	recoveryDate, err := parseDate(c.Query("recovery_date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	graceDays, err := parseIntQuery(c, "grace_days", a.analytics.GraceDays(), 0, service.MaxGraceDays)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.entries.RecoverStreak(c.Request.Context(), userID, habitID, recoveryDate, graceDays)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	respondHabitSuccess(c, http.StatusCreated, gin.H{
		"entry": serializeEntry(result.Entry),
		"habit": habitToPayload(result.Habit),
	})
}

func serializeEntries(entries []db.HabitEntry) []gin.H {
	items := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		items = append(items, serializeEntry(entry))
	}
	return items
}

func serializeEntry(entry db.HabitEntry) gin.H {
	item := gin.H{
		"id":         entry.ID,
		"habit_id":   entry.HabitID,
		"entry_date": formatDate(entry.EntryDate),
		"completed":  entry.Completed,
		"notes":      entry.Notes,
		"notes_html": renderNotes(entry.Notes),
		"mood":       entry.Mood,
		"created_at": entry.CreatedAt.UTC().Format(time.RFC3339),
	}
	if entry.CompletedAt != nil {
		item["completed_at"] = entry.CompletedAt.UTC().Format(time.RFC3339)
	} else {
		item["completed_at"] = nil
	}
	return item
}
