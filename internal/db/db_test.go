package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := Open("file:"+t.Name()+"?mode=memory&cache=shared", logger.Default.LogMode(logger.Silent))
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

func TestHabitGetsUUIDOnCreate(t *testing.T) {
	gdb := openTestDB(t)

	habit := Habit{UserID: uuid.New(), Name: "晨跑", Frequency: "daily", IsActive: true}
	if err := gdb.Create(&habit).Error; err != nil {
		t.Fatalf("create habit: %v", err)
	}
	if habit.ID == uuid.Nil {
		t.Fatal("expected uuid primary key to be generated")
	}

	var loaded Habit
	if err := gdb.First(&loaded, "id = ?", habit.ID).Error; err != nil {
		t.Fatalf("reload habit: %v", err)
	}
	if loaded.UserID != habit.UserID || !loaded.IsActive {
		t.Fatalf("unexpected reloaded habit: %+v", loaded)
	}
}

func TestHabitEntryUniquePerDate(t *testing.T) {
	gdb := openTestDB(t)

	habit := Habit{UserID: uuid.New(), Name: "阅读", Frequency: "daily"}
	if err := gdb.Create(&habit).Error; err != nil {
		t.Fatalf("create habit: %v", err)
	}

	date := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	if err := gdb.Create(&HabitEntry{HabitID: habit.ID, EntryDate: date, Completed: true}).Error; err != nil {
		t.Fatalf("create entry: %v", err)
	}

	err := gdb.Create(&HabitEntry{HabitID: habit.ID, EntryDate: date}).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected duplicated key error, got %v", err)
	}

	// 不同日期不受影响
	if err := gdb.Create(&HabitEntry{HabitID: habit.ID, EntryDate: date.AddDate(0, 0, -1)}).Error; err != nil {
		t.Fatalf("create entry for another date: %v", err)
	}
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "lifetrack.db")

	gdb, err := Open(path, logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	if !gdb.Migrator().HasTable(&HabitEntry{}) {
		t.Fatal("expected habit_entries table to be migrated")
	}
}
