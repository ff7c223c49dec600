package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lifetrack/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 2026-10-14 是周三
var serviceNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := db.Open(dsn, logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func day(offset int) time.Time {
	return time.Date(2026, 10, 14-offset, 0, 0, 0, 0, time.UTC)
}

func mustCreateHabit(t *testing.T, svc *HabitService, userID uuid.UUID, name, frequency string) *db.Habit {
	t.Helper()
	habit, err := svc.Create(context.Background(), userID, HabitInput{Name: name, Frequency: frequency})
	if err != nil {
		t.Fatalf("failed to create habit %s: %v", name, err)
	}
	return habit
}

func mustLogDays(t *testing.T, svc *HabitEntryService, userID, habitID uuid.UUID, offsets ...int) *EntryResult {
	t.Helper()
	var last *EntryResult
	for _, offset := range offsets {
		result, err := svc.Create(context.Background(), userID, habitID, EntryInput{EntryDate: day(offset), Completed: true})
		if err != nil {
			t.Fatalf("failed to log day -%d: %v", offset, err)
		}
		last = result
	}
	return last
}
