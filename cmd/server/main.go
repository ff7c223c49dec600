// Package main 启动 lifetrack 习惯分析服务
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lifetrack/internal/config"
	"github.com/lifetrack/internal/db"
	"github.com/lifetrack/internal/handler"
	"github.com/lifetrack/internal/logging"
	"github.com/lifetrack/internal/router"
	"github.com/lifetrack/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const shutdownTimeout = 10 * time.Second

var (
	// configFile 覆盖 CONFIG_FILE 环境变量
	configFile string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "lifetrack",
	Short:   "Habit streak analytics service",
	Version: version,
	// 不带子命令时直接启动服务
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (defaults to $CONFIG_FILE)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(recomputeCmd)
}

// bootstrap 加载配置、日志与数据库，供各子命令共用
func bootstrap() (*config.AppConfig, *zap.Logger, *gorm.DB, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, nil, err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, nil, err
	}

	gdb, err := db.Open(cfg.Database.Path, logger.Default.LogMode(logger.Warn))
	if err != nil {
		_ = log.Sync()
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.DB = gdb

	return cfg, log, gdb, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, gdb, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	gin.SetMode(cfg.Server.GinMode)

	r := router.SetupRouter(router.Options{
		DB:            gdb,
		Logger:        log,
		Clock:         service.NewClock(cfg.Location()),
		GraceDays:     cfg.Analytics.GraceDays,
		Authenticator: handler.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TrustHeader),
	})

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("timezone", cfg.Analytics.Timezone),
			zap.Bool("trust_header", cfg.Auth.TrustHeader))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
