package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultDatabasePath = "lifetrack.db"

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

// Init 初始化全局数据库连接并执行自动迁移。
// databasePath 为空时将回退到默认值 lifetrack.db。
func Init(databasePath string) error {
	gdb, err := Open(databasePath, logger.Default.LogMode(logger.Warn))
	if err != nil {
		return err
	}
	DB = gdb
	return nil
}

// Open 打开数据库并迁移，不修改全局实例
func Open(databasePath string, log logger.Interface) (*gorm.DB, error) {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = defaultDatabasePath
	}

	if !strings.HasPrefix(path, "file:") {
		if err := ensureParentDir(path); err != nil {
			return nil, err
		}
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: log, TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate 为核心模型创建表
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&Habit{}, &HabitEntry{})
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
