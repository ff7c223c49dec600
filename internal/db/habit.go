package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Model 替代 gorm.Model，使用 UUID 主键
type Model struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// BeforeCreate 在未指定主键时生成 UUID
func (m *Model) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Habit 定义了习惯模型
// Frequency 取值 daily/weekly/custom，TargetDays 为每周期目标次数（非日频使用）
// CurrentStreak/LongestStreak/TotalCompletions 是由打卡日志推导出的缓存值，
// 每次写回都按日志重新计算；Version 用于写回时的乐观锁。
// ReminderTime 为可选的提醒时刻，格式 HH:MM
type Habit struct {
	Model
	UserID           uuid.UUID `gorm:"type:char(36);index;not null"`
	Name             string    `gorm:"size:255;not null"`
	Description      string
	Frequency        string `gorm:"size:20;not null"`
	TargetDays       *int
	Category         string  `gorm:"size:50"`
	Color            string  `gorm:"size:7"`
	Icon             string  `gorm:"size:50"`
	ReminderTime     *string `gorm:"size:5"`
	IsActive         bool
	CurrentStreak    int
	LongestStreak    int
	TotalCompletions int
	Version          int `gorm:"not null;default:0"`
}

// HabitEntry 记录习惯打卡日志
// Habit + EntryDate 采用唯一索引，同一天只允许一条；EntryDate 只保留日期
type HabitEntry struct {
	Model
	HabitID     uuid.UUID `gorm:"type:char(36);index;uniqueIndex:idx_habit_entry_date"`
	Habit       Habit     `gorm:"constraint:OnDelete:CASCADE"`
	EntryDate   time.Time `gorm:"uniqueIndex:idx_habit_entry_date"`
	Completed   bool
	CompletedAt *time.Time
	Notes       string
	Mood        string `gorm:"size:20"`
}

// TableName 重写确保唯一索引作用到 habit_id + entry_date
func (HabitEntry) TableName() string {
	return "habit_entries"
}
