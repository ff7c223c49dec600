package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lifetrack/internal/handler"
	"github.com/lifetrack/internal/logging"
	"github.com/lifetrack/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options 汇总构建路由所需的依赖
type Options struct {
	DB            *gorm.DB
	Logger        *zap.Logger
	Clock         service.Clock
	GraceDays     int
	Authenticator *handler.Authenticator
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(logging.Middleware(log.Named("http")))
	r.Use(gin.Recovery())
	r.Use(handler.LocaleMiddleware())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := handler.NewAPI(opts.DB, log, opts.Clock, opts.GraceDays)

	v1 := r.Group("/api/v1")
	v1.Use(opts.Authenticator.RequireUser())
	{
		v1.GET("/habits", api.ListHabits)
		v1.POST("/habits", api.CreateHabit)
		// insights 为静态段，优先于 :id 匹配
		v1.GET("/habits/insights", api.GetHabitInsights)
		v1.GET("/habits/:id", api.GetHabit)
		v1.PUT("/habits/:id", api.UpdateHabit)
		v1.DELETE("/habits/:id", api.DeleteHabit)
		v1.POST("/habits/:id/reset-streak", api.ResetHabitStreak)

		v1.GET("/habits/:id/entries", api.ListHabitEntries)
		v1.POST("/habits/:id/entries", api.CreateHabitEntry)
		v1.PUT("/habits/:id/entries/:entryId", api.UpdateHabitEntry)
		v1.DELETE("/habits/:id/entries/:entryId", api.DeleteHabitEntry)

		v1.GET("/habits/:id/analytics", api.GetHabitAnalytics)
		v1.GET("/habits/:id/progress", api.GetHabitProgress)
		v1.GET("/habits/:id/streak-recovery", api.GetStreakRecovery)
		v1.POST("/habits/:id/recover-streak", api.RecoverHabitStreak)
	}

	return r
}
