package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lifetrack/internal/analytics"
	"github.com/lifetrack/internal/db"
	"github.com/lifetrack/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxWriteBackAttempts = 3

// ErrConcurrentUpdate 在多次重试后仍无法写回缓存计数时返回
var ErrConcurrentUpdate = errors.New("habit was modified concurrently")

var errVersionConflict = errors.New("habit version conflict")

// entryMutation 在写回事务内修改打卡日志；返回错误时整个事务回滚，重试时会再次调用
type entryMutation func(tx *gorm.DB, habit *db.Habit) error

// writeBackCounters 在同一事务内先执行 mutate，再按完整日志重算 current/longest streak 与
// total_completions 并写回习惯。mutate 可为 nil，此时只做写回。
// 写回使用行锁与 version 乐观锁，版本冲突时回滚并整体重试，最多 maxWriteBackAttempts 次。
func writeBackCounters(ctx context.Context, gdb *gorm.DB, log *zap.Logger, habitID uuid.UUID, today time.Time, mutate entryMutation) (*db.Habit, error) {
	for attempt := 1; attempt <= maxWriteBackAttempts; attempt++ {
		habit, err := writeBackOnce(ctx, gdb, habitID, today, mutate)
		switch {
		case err == nil:
			metrics.WriteBacks.WithLabelValues("ok").Inc()
			return habit, nil
		case errors.Is(err, errVersionConflict):
			metrics.WriteBacks.WithLabelValues("conflict").Inc()
			log.Warn("habit counter write-back conflict",
				zap.String("habit_id", habitID.String()), zap.Int("attempt", attempt))
		case isRejection(err):
			// 业务校验失败，不计入写回错误
			return nil, err
		default:
			metrics.WriteBacks.WithLabelValues("error").Inc()
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: habit %s", ErrConcurrentUpdate, habitID)
}

func writeBackOnce(ctx context.Context, gdb *gorm.DB, habitID uuid.UUID, today time.Time, mutate entryMutation) (*db.Habit, error) {
	var habit *db.Habit
	err := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockHabit(tx, habitID)
		if err != nil {
			return err
		}
		if mutate != nil {
			if err := mutate(tx, locked); err != nil {
				return err
			}
		}
		if err := writeBackTx(tx, locked, today); err != nil {
			return err
		}
		habit = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return habit, nil
}

func lockHabit(tx *gorm.DB, habitID uuid.UUID) (*db.Habit, error) {
	var habit db.Habit
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", habitID).
		First(&habit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("lock habit: %w", err)
	}
	return &habit, nil
}

// writeBackTx 在调用方的事务内重算并写回 habit 的缓存计数，成功后同步更新 habit
func writeBackTx(tx *gorm.DB, habit *db.Habit, today time.Time) error {
	entries, err := loadEntries(tx, habit.ID)
	if err != nil {
		return err
	}

	completionLog := toAnalyticsEntries(entries)
	streak := analytics.CalculateStreak(analytics.ParseFrequency(habit.Frequency), completionLog, today)
	stats := analytics.CompletionStatsFor(completionLog, today)

	result := tx.Model(&db.Habit{}).
		Where("id = ? AND version = ?", habit.ID, habit.Version).
		Updates(map[string]any{
			"current_streak":    streak.CurrentStreak,
			"longest_streak":    streak.LongestStreak,
			"total_completions": stats.TotalCompletions,
			"version":           gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return fmt.Errorf("write back habit counters: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errVersionConflict
	}

	habit.CurrentStreak = streak.CurrentStreak
	habit.LongestStreak = streak.LongestStreak
	habit.TotalCompletions = stats.TotalCompletions
	habit.Version++
	return nil
}

func isRejection(err error) bool {
	return errors.Is(err, ErrEntryExists) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrHabitNotFound) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, analytics.ErrRecoveryUnavailable) ||
		errors.Is(err, analytics.ErrRecoveryDateOutOfRange)
}

// RecomputeAll 按日志重算全部习惯的缓存计数，返回成功写回的数量。
// 单个习惯失败时记录日志并继续，最后返回第一个错误。
func (s *HabitService) RecomputeAll(ctx context.Context) (int, error) {
	var ids []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&db.Habit{}).Order("created_at ASC").Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("list habit ids: %w", err)
	}

	today := s.clock.Today()
	var firstErr error
	updated := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		if _, err := writeBackCounters(ctx, s.db, s.log, id, today, nil); err != nil {
			s.log.Error("recompute habit counters failed", zap.String("habit_id", id.String()), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		updated++
	}
	return updated, firstErr
}
