package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lifetrack/internal/analytics"
	"github.com/lifetrack/internal/db"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrEntryExists 表示同一习惯同一天已有打卡记录
	ErrEntryExists = errors.New("entry already exists for this date")
	// ErrEntryNotFound 在打卡记录不存在时返回
	ErrEntryNotFound = errors.New("habit entry not found")
)

const (
	maxMoodLength        = 20
	recoveryEntryNote    = "Streak recovery"
	defaultEntryPageSize = 100
	maxEntryPageSize     = 366
)

var notesPolicy = bluemonday.StrictPolicy()

// HabitEntryService 负责打卡记录的增删改查，并在每次变更后写回习惯缓存计数
type HabitEntryService struct {
	db    *gorm.DB
	log   *zap.Logger
	clock Clock
}

// EntryInput 定义打卡时的输入对象
type EntryInput struct {
	EntryDate time.Time
	Completed bool
	Notes     string
	Mood      string
}

// EntryPatch 定义打卡记录的部分更新
type EntryPatch struct {
	Completed *bool
	Notes     *string
	Mood      *string
}

// EntryPage 指定分页与日期区间，零值表示不限
type EntryPage struct {
	Start  *time.Time
	End    *time.Time
	Limit  int
	Offset int
}

// EntryResult 是写入打卡后的记录与最新的习惯计数
type EntryResult struct {
	Entry db.HabitEntry
	Habit db.Habit
}

// NewHabitEntryService 构造 HabitEntryService
func NewHabitEntryService(gdb *gorm.DB, log *zap.Logger, clock Clock) *HabitEntryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &HabitEntryService{db: gdb, log: log, clock: clock}
}

// Create 写入一条打卡记录，同一天重复写入返回 ErrEntryExists
func (s *HabitEntryService) Create(ctx context.Context, userID, habitID uuid.UUID, input EntryInput) (*EntryResult, error) {
	today := s.clock.Today()

	habit, err := findHabit(s.db.WithContext(ctx), userID, habitID)
	if err != nil {
		return nil, err
	}

	entryDate := analytics.DateOf(input.EntryDate)
	if entryDate.After(today) {
		return nil, fmt.Errorf("%w: entry_date %s is in the future", ErrInvalidInput, entryDate.Format(time.DateOnly))
	}

	mood := strings.TrimSpace(input.Mood)
	if err := validateMood(mood); err != nil {
		return nil, err
	}

	entry := db.HabitEntry{
		HabitID:   habit.ID,
		EntryDate: entryDate,
		Completed: input.Completed,
		Notes:     sanitizeNotes(input.Notes),
		Mood:      mood,
	}
	if input.Completed {
		now := s.clock.Now().UTC()
		entry.CompletedAt = &now
	}

	habit, err = writeBackCounters(ctx, s.db, s.log, habit.ID, today, func(tx *gorm.DB, _ *db.Habit) error {
		return insertEntry(tx, &entry)
	})
	if err != nil {
		return nil, err
	}
	return &EntryResult{Entry: entry, Habit: *habit}, nil
}

// Update 修改打卡记录的完成状态、备注或心情
func (s *HabitEntryService) Update(ctx context.Context, userID, habitID, entryID uuid.UUID, patch EntryPatch) (*EntryResult, error) {
	today := s.clock.Today()

	entry, err := s.findEntry(ctx, userID, habitID, entryID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if patch.Completed != nil && *patch.Completed != entry.Completed {
		updates["completed"] = *patch.Completed
		if *patch.Completed {
			now := s.clock.Now().UTC()
			updates["completed_at"] = &now
		} else {
			updates["completed_at"] = nil
		}
	}
	if patch.Notes != nil {
		updates["notes"] = sanitizeNotes(*patch.Notes)
	}
	if patch.Mood != nil {
		mood := strings.TrimSpace(*patch.Mood)
		if err := validateMood(mood); err != nil {
			return nil, err
		}
		updates["mood"] = mood
	}

	var reloaded db.HabitEntry
	habit, err := writeBackCounters(ctx, s.db, s.log, entry.HabitID, today, func(tx *gorm.DB, _ *db.Habit) error {
		if len(updates) > 0 {
			if err := tx.Model(&db.HabitEntry{}).Where("id = ?", entry.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("update habit entry: %w", err)
			}
		}
		// 读入新的零值结构体，NULL 列不会覆盖旧结构体里已有的值
		reloaded = db.HabitEntry{}
		if err := tx.First(&reloaded, "id = ?", entry.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEntryNotFound
			}
			return fmt.Errorf("reload habit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &EntryResult{Entry: reloaded, Habit: *habit}, nil
}

// List 返回习惯的打卡记录（按日期倒序）与总数
func (s *HabitEntryService) List(ctx context.Context, userID, habitID uuid.UUID, page EntryPage) ([]db.HabitEntry, int64, error) {
	habit, err := findHabit(s.db.WithContext(ctx), userID, habitID)
	if err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&db.HabitEntry{}).Where("habit_id = ?", habit.ID)
	if page.Start != nil {
		query = query.Where("entry_date >= ?", analytics.DateOf(*page.Start))
	}
	if page.End != nil {
		query = query.Where("entry_date <= ?", analytics.DateOf(*page.End))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count habit entries: %w", err)
	}

	limit := page.Limit
	if limit <= 0 {
		limit = defaultEntryPageSize
	}
	limit = min(limit, maxEntryPageSize)

	var entries []db.HabitEntry
	if err := query.Order("entry_date DESC").Limit(limit).Offset(max(page.Offset, 0)).Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("list habit entries: %w", err)
	}

	return entries, total, nil
}

// Delete 删除打卡记录并重新写回计数
func (s *HabitEntryService) Delete(ctx context.Context, userID, habitID, entryID uuid.UUID) (*db.Habit, error) {
	today := s.clock.Today()

	entry, err := s.findEntry(ctx, userID, habitID, entryID)
	if err != nil {
		return nil, err
	}

	return writeBackCounters(ctx, s.db, s.log, entry.HabitID, today, func(tx *gorm.DB, _ *db.Habit) error {
		// 唯一索引包含软删除行，必须物理删除才能在同一天重新打卡
		result := tx.Unscoped().Where("id = ?", entry.ID).Delete(&db.HabitEntry{})
		if result.Error != nil {
			return fmt.Errorf("delete habit entry: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrEntryNotFound
		}
		return nil
	})
}

// RecoverStreak 在宽限期内补签一天，写入一条已完成的补签记录
func (s *HabitEntryService) RecoverStreak(ctx context.Context, userID, habitID uuid.UUID, recoveryDate time.Time, graceDays int) (*EntryResult, error) {
	today := s.clock.Today()

	habit, err := findHabit(s.db.WithContext(ctx), userID, habitID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	entry := db.HabitEntry{
		HabitID:     habit.ID,
		EntryDate:   analytics.DateOf(recoveryDate),
		Completed:   true,
		CompletedAt: &now,
		Notes:       recoveryEntryNote,
	}

	// 资格判断与补签写入同处一个事务
	var info analytics.RecoveryInfo
	updated, err := writeBackCounters(ctx, s.db, s.log, habit.ID, today, func(tx *gorm.DB, locked *db.Habit) error {
		entries, err := loadEntries(tx, locked.ID)
		if err != nil {
			return err
		}
		streak := analytics.CalculateStreak(analytics.ParseFrequency(locked.Frequency), toAnalyticsEntries(entries), today)
		info = analytics.EvaluateRecovery(streak, graceDays, today)
		if err := analytics.ValidateRecoveryDate(info, recoveryDate, today); err != nil {
			return err
		}
		return insertEntry(tx, &entry)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("habit streak recovered",
		zap.String("habit_id", habit.ID.String()),
		zap.String("recovery_date", entry.EntryDate.Format(time.DateOnly)),
		zap.Int("grace_days", info.GracePeriodDays))

	return &EntryResult{Entry: entry, Habit: *updated}, nil
}

func insertEntry(tx *gorm.DB, entry *db.HabitEntry) error {
	var count int64
	if err := tx.Model(&db.HabitEntry{}).
		Where("habit_id = ? AND entry_date = ?", entry.HabitID, entry.EntryDate).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check existing entry: %w", err)
	}
	if count > 0 {
		return ErrEntryExists
	}

	if err := tx.Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEntryExists
		}
		return fmt.Errorf("create habit entry: %w", err)
	}
	return nil
}

func (s *HabitEntryService) findEntry(ctx context.Context, userID, habitID, entryID uuid.UUID) (*db.HabitEntry, error) {
	habit, err := findHabit(s.db.WithContext(ctx), userID, habitID)
	if err != nil {
		return nil, err
	}

	var entry db.HabitEntry
	if err := s.db.WithContext(ctx).Where("id = ? AND habit_id = ?", entryID, habit.ID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("get habit entry: %w", err)
	}
	return &entry, nil
}

// loadEntries 读取习惯的完整打卡日志
func loadEntries(tx *gorm.DB, habitID uuid.UUID) ([]db.HabitEntry, error) {
	var entries []db.HabitEntry
	if err := tx.Where("habit_id = ?", habitID).Order("entry_date DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load habit entries: %w", err)
	}
	return entries, nil
}

// sanitizeNotes 去掉全部 HTML 标签，保留纯文本（Markdown 在输出时渲染）
func sanitizeNotes(notes string) string {
	return strings.TrimSpace(html.UnescapeString(notesPolicy.Sanitize(notes)))
}

func validateMood(mood string) error {
	if utf8.RuneCountInString(mood) > maxMoodLength {
		return fmt.Errorf("%w: mood exceeds %d characters", ErrInvalidInput, maxMoodLength)
	}
	return nil
}
