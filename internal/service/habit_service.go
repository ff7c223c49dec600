package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lifetrack/internal/analytics"
	"github.com/lifetrack/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrHabitNotFound 在指定习惯不存在或不属于当前用户时返回
	ErrHabitNotFound = errors.New("habit not found")
	// ErrHabitInvalidFrequency 当频率配置异常时返回
	ErrHabitInvalidFrequency = errors.New("invalid habit frequency configuration")
	// ErrInvalidInput 表示请求字段校验失败
	ErrInvalidInput = errors.New("invalid input")
)

const (
	maxHabitNameLength = 255
	maxCategoryLength  = 50
	maxColorLength     = 7
	maxIconLength      = 50
	reminderTimeLayout = "15:04"
	minTargetDays      = 1
	maxTargetDays      = 7
	defaultListLimit   = 100
	maxListLimit       = 500
)

// HabitService 负责 Habit 数据的增删改查
// 所有操作都按 UserID 隔离，不属于当前用户的习惯一律视为不存在
type HabitService struct {
	db    *gorm.DB
	log   *zap.Logger
	clock Clock
}

// HabitFilter 描述列表过滤条件
type HabitFilter struct {
	IsActive *bool
	Category string
	Search   string
	Limit    int
	Offset   int
}

// HabitInput 定义创建习惯时可配置字段，ReminderTime 为 HH:MM，nil 或空串表示不提醒
type HabitInput struct {
	Name         string
	Description  string
	Frequency    string
	TargetDays   *int
	Category     string
	Color        string
	Icon         string
	ReminderTime *string
}

// HabitPatch 定义部分更新，nil 字段保持不变；ReminderTime 传空串清除提醒
type HabitPatch struct {
	Name         *string
	Description  *string
	Frequency    *string
	TargetDays   *int
	Category     *string
	Color        *string
	Icon         *string
	ReminderTime *string
	IsActive     *bool
}

// NewHabitService 构造 HabitService
func NewHabitService(gdb *gorm.DB, log *zap.Logger, clock Clock) *HabitService {
	if log == nil {
		log = zap.NewNop()
	}
	return &HabitService{db: gdb, log: log, clock: clock}
}

// List 返回用户的习惯集合与总数，支持基本筛选
func (s *HabitService) List(ctx context.Context, userID uuid.UUID, filter HabitFilter) ([]db.Habit, int64, error) {
	query := s.db.WithContext(ctx).Model(&db.Habit{}).Where("user_id = ?", userID)

	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category = ?", category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := fmt.Sprintf("%%%s%%", search)
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count habits: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	var habits []db.Habit
	if err := query.Order("created_at DESC").Limit(limit).Offset(max(filter.Offset, 0)).Find(&habits).Error; err != nil {
		return nil, 0, fmt.Errorf("list habits: %w", err)
	}

	return habits, total, nil
}

// Get 根据 ID 获取当前用户的习惯
func (s *HabitService) Get(ctx context.Context, userID, id uuid.UUID) (*db.Habit, error) {
	return findHabit(s.db.WithContext(ctx), userID, id)
}

// Create 新建习惯，新习惯默认处于启用状态
func (s *HabitService) Create(ctx context.Context, userID uuid.UUID, input HabitInput) (*db.Habit, error) {
	if err := validateHabitInput(input); err != nil {
		return nil, err
	}

	habit := db.Habit{
		UserID:       userID,
		Name:         strings.TrimSpace(input.Name),
		Description:  strings.TrimSpace(input.Description),
		Frequency:    string(analytics.ParseFrequency(input.Frequency)),
		TargetDays:   input.TargetDays,
		Category:     strings.TrimSpace(input.Category),
		Color:        strings.TrimSpace(input.Color),
		Icon:         strings.TrimSpace(input.Icon),
		ReminderTime: normalizeReminderTime(input.ReminderTime),
		IsActive:     true,
	}

	if err := s.db.WithContext(ctx).Create(&habit).Error; err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	s.log.Info("habit created", zap.String("habit_id", habit.ID.String()), zap.String("user_id", userID.String()))
	return &habit, nil
}

// Update 部分更新习惯；频率变化后按新节奏重算缓存计数
func (s *HabitService) Update(ctx context.Context, userID, id uuid.UUID, patch HabitPatch) (*db.Habit, error) {
	existing, err := findHabit(s.db.WithContext(ctx), userID, id)
	if err != nil {
		return nil, err
	}

	merged := HabitInput{
		Name:         existing.Name,
		Description:  existing.Description,
		Frequency:    existing.Frequency,
		TargetDays:   existing.TargetDays,
		Category:     existing.Category,
		Color:        existing.Color,
		Icon:         existing.Icon,
		ReminderTime: existing.ReminderTime,
	}
	applyString(&merged.Name, patch.Name)
	applyString(&merged.Description, patch.Description)
	applyString(&merged.Frequency, patch.Frequency)
	applyString(&merged.Category, patch.Category)
	applyString(&merged.Color, patch.Color)
	applyString(&merged.Icon, patch.Icon)
	if patch.TargetDays != nil {
		merged.TargetDays = patch.TargetDays
	}
	if patch.ReminderTime != nil {
		merged.ReminderTime = patch.ReminderTime
	}

	if err := validateHabitInput(merged); err != nil {
		return nil, err
	}

	frequency := string(analytics.ParseFrequency(merged.Frequency))
	cadenceChanged := frequency != existing.Frequency

	updates := map[string]any{
		"name":          strings.TrimSpace(merged.Name),
		"description":   strings.TrimSpace(merged.Description),
		"frequency":     frequency,
		"target_days":   merged.TargetDays,
		"category":      strings.TrimSpace(merged.Category),
		"color":         strings.TrimSpace(merged.Color),
		"icon":          strings.TrimSpace(merged.Icon),
		"reminder_time": normalizeReminderTime(merged.ReminderTime),
		"version":       gorm.Expr("version + 1"),
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}

	if err := s.db.WithContext(ctx).Model(&db.Habit{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}

	if cadenceChanged {
		if _, err := writeBackCounters(ctx, s.db, s.log, existing.ID, s.clock.Today(), nil); err != nil {
			return nil, err
		}
	}

	return findHabit(s.db.WithContext(ctx), userID, id)
}

// Delete 删除习惯及其全部打卡记录
func (s *HabitService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		habit, err := findHabit(tx, userID, id)
		if err != nil {
			return err
		}
		if err := tx.Unscoped().Where("habit_id = ?", habit.ID).Delete(&db.HabitEntry{}).Error; err != nil {
			return fmt.Errorf("delete habit entries: %w", err)
		}
		if err := tx.Delete(habit).Error; err != nil {
			return fmt.Errorf("delete habit: %w", err)
		}
		return nil
	})
}

// ResetStreak 将当前连胜清零；最长连胜与累计完成数保持不变，
// 下一次写回会按日志重新计算
func (s *HabitService) ResetStreak(ctx context.Context, userID, id uuid.UUID) (*db.Habit, error) {
	habit, err := findHabit(s.db.WithContext(ctx), userID, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&db.Habit{}).Where("id = ?", habit.ID).
		Updates(map[string]any{"current_streak": 0, "version": gorm.Expr("version + 1")}).Error; err != nil {
		return nil, fmt.Errorf("reset streak: %w", err)
	}
	s.log.Info("habit streak reset", zap.String("habit_id", habit.ID.String()))

	return findHabit(s.db.WithContext(ctx), userID, id)
}

// findHabit 查询属于 userID 的习惯
func findHabit(tx *gorm.DB, userID, id uuid.UUID) (*db.Habit, error) {
	var habit db.Habit
	if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&habit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return &habit, nil
}

func validateHabitInput(input HabitInput) error {
	if !analytics.ParseFrequency(input.Frequency).Valid() {
		return fmt.Errorf("%w: unsupported frequency %q", ErrHabitInvalidFrequency, input.Frequency)
	}

	if input.TargetDays != nil && (*input.TargetDays < minTargetDays || *input.TargetDays > maxTargetDays) {
		return fmt.Errorf("%w: target_days must be between %d and %d", ErrHabitInvalidFrequency, minTargetDays, maxTargetDays)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return fmt.Errorf("%w: habit name is required", ErrInvalidInput)
	}

	limits := []struct {
		field string
		value string
		max   int
	}{
		{"name", name, maxHabitNameLength},
		{"category", strings.TrimSpace(input.Category), maxCategoryLength},
		{"color", strings.TrimSpace(input.Color), maxColorLength},
		{"icon", strings.TrimSpace(input.Icon), maxIconLength},
	}
	for _, limit := range limits {
		if utf8.RuneCountInString(limit.value) > limit.max {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidInput, limit.field, limit.max)
		}
	}

	if reminder := normalizeReminderTime(input.ReminderTime); reminder != nil {
		if _, err := time.Parse(reminderTimeLayout, *reminder); err != nil {
			return fmt.Errorf("%w: reminder_time must be HH:MM", ErrInvalidInput)
		}
	}

	return nil
}

// normalizeReminderTime 去掉首尾空白并补齐为 HH:MM，空值返回 nil
func normalizeReminderTime(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	if t, err := time.Parse(reminderTimeLayout, trimmed); err == nil {
		trimmed = t.Format(reminderTimeLayout)
	}
	return &trimmed
}

func applyString(dst *string, value *string) {
	if value != nil {
		*dst = *value
	}
}
