package handler

import (
	"github.com/lifetrack/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	habits    *service.HabitService
	entries   *service.HabitEntryService
	analytics *service.HabitAnalyticsService
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, log *zap.Logger, clock service.Clock, graceDays int) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{
		habits:    service.NewHabitService(gdb, log.Named("habits"), clock),
		entries:   service.NewHabitEntryService(gdb, log.Named("entries"), clock),
		analytics: service.NewHabitAnalyticsService(gdb, log.Named("analytics"), clock, graceDays),
	}
}
