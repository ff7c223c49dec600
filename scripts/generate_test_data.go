package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/lifetrack/internal/config"
	"github.com/lifetrack/internal/db"
	"github.com/lifetrack/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// demoUserID 为固定的演示用户，可用 DEMO_USER_ID 覆盖
var demoUserID = uuid.MustParse("6f1c2a4e-8d3b-4a57-9e0f-2b7c5d9a1e34")

// seedHabit 描述一个演示习惯及其打卡规律
type seedHabit struct {
	name      string
	frequency string
	category  string
	// skip 返回 true 的日期不打卡，offset 为距今天数
	skip func(offset int) bool
	mood string
}

var seedHabits = []seedHabit{
	{name: "晨跑", frequency: "daily", category: "health", mood: "energetic",
		skip: func(offset int) bool { return offset%9 == 5 }},
	{name: "阅读 30 分钟", frequency: "daily", category: "learning", mood: "calm",
		skip: func(offset int) bool { return offset%3 == 1 }},
	{name: "周末大扫除", frequency: "weekly", category: "home",
		skip: func(offset int) bool { return offset%7 != 2 }},
	{name: "整理账单", frequency: "custom", category: "finance",
		skip: func(offset int) bool { return offset%30 != 4 }},
}

const seedDays = 60

// 测试数据生成器
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("配置加载失败:", err)
	}
	if err := db.Init(cfg.Database.Path); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	userID := demoUserID
	if raw := strings.TrimSpace(os.Getenv("DEMO_USER_ID")); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			log.Fatal("DEMO_USER_ID 不是有效的 UUID:", err)
		}
		userID = parsed
	}

	fmt.Println("开始生成测试数据...")

	clock := service.NewClock(cfg.Location())
	habits, entries, err := seedDemoData(context.Background(), db.DB, clock, userID)
	if err != nil {
		log.Fatal("生成测试数据失败:", err)
	}

	fmt.Println("测试数据生成完成！")
	fmt.Printf("用户: %s\n", userID)
	fmt.Printf("习惯: %d 个，打卡记录: %d 条\n", habits, entries)
}

// seedDemoData 为 userID 创建演示习惯与最近 seedDays 天的打卡，已存在的习惯会被跳过
func seedDemoData(ctx context.Context, gdb *gorm.DB, clock service.Clock, userID uuid.UUID) (int, int, error) {
	logger := zap.NewNop()
	habitSvc := service.NewHabitService(gdb, logger, clock)
	entrySvc := service.NewHabitEntryService(gdb, logger, clock)
	today := clock.Today()

	createdHabits, createdEntries := 0, 0
	for _, seed := range seedHabits {
		var count int64
		if err := gdb.WithContext(ctx).Model(&db.Habit{}).
			Where("user_id = ? AND name = ?", userID, seed.name).Count(&count).Error; err != nil {
			return createdHabits, createdEntries, err
		}
		if count > 0 {
			fmt.Printf("习惯「%s」已存在，跳过创建\n", seed.name)
			continue
		}

		habit, err := habitSvc.Create(ctx, userID, service.HabitInput{
			Name:      seed.name,
			Frequency: seed.frequency,
			Category:  seed.category,
		})
		if err != nil {
			return createdHabits, createdEntries, fmt.Errorf("create habit %s: %w", seed.name, err)
		}
		createdHabits++

		// 从最早的一天开始写，最后一次写回的计数即为最终结果
		for offset := seedDays - 1; offset >= 0; offset-- {
			if seed.skip(offset) {
				continue
			}
			_, err := entrySvc.Create(ctx, userID, habit.ID, service.EntryInput{
				EntryDate: today.AddDate(0, 0, -offset),
				Completed: true,
				Mood:      seed.mood,
			})
			if errors.Is(err, service.ErrEntryExists) {
				continue
			}
			if err != nil {
				return createdHabits, createdEntries, fmt.Errorf("log %s day -%d: %w", seed.name, offset, err)
			}
			createdEntries++
		}

		fmt.Printf("✅ 习惯「%s」创建完成\n", seed.name)
	}

	return createdHabits, createdEntries, nil
}
