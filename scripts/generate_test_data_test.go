package main

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lifetrack/internal/db"
	"github.com/lifetrack/internal/service"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSeedTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()

	gdb, err := db.Open("file:habit-seed?mode=memory&cache=shared", logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	return gdb, func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

func TestSeedDemoDataIsIdempotent(t *testing.T) {
	gdb, cleanup := setupSeedTestDB(t)
	defer cleanup()

	clock := service.FixedClock(time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC))
	userID := uuid.New()
	ctx := context.Background()

	habits, entries, err := seedDemoData(ctx, gdb, clock, userID)
	if err != nil {
		t.Fatalf("seedDemoData returned error: %v", err)
	}
	if habits != len(seedHabits) {
		t.Fatalf("expected %d habits, got %d", len(seedHabits), habits)
	}
	if entries == 0 {
		t.Fatal("expected seeded entries")
	}

	var run db.Habit
	if err := gdb.Where("user_id = ? AND name = ?", userID, "晨跑").First(&run).Error; err != nil {
		t.Fatalf("failed to load seeded habit: %v", err)
	}
	// 距今第 5 天未打卡
	if run.CurrentStreak != 5 {
		t.Fatalf("expected current streak 5, got %d", run.CurrentStreak)
	}
	if run.TotalCompletions != 53 {
		t.Fatalf("expected 53 completions, got %d", run.TotalCompletions)
	}

	habits, entries, err = seedDemoData(ctx, gdb, clock, userID)
	if err != nil {
		t.Fatalf("second seedDemoData returned error: %v", err)
	}
	if habits != 0 || entries != 0 {
		t.Fatalf("expected second run to skip everything, got %d habits %d entries", habits, entries)
	}
}
