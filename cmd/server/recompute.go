package main

import (
	"fmt"

	"github.com/lifetrack/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// recomputeCmd 从完整打卡记录重算所有习惯的计数字段
var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute stored streak counters for every habit",
	Long: `Recompute current_streak, longest_streak and total_completions for every habit
from its full entry log. Useful after importing entries or changing the time zone.

Examples:
  lifetrack recompute
  lifetrack recompute --config /etc/lifetrack.yaml`,
	Args: cobra.NoArgs,
	RunE: runRecompute,
}

func runRecompute(cmd *cobra.Command, _ []string) error {
	cfg, log, gdb, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	habits := service.NewHabitService(gdb, log.Named("recompute"), service.NewClock(cfg.Location()))
	count, err := habits.RecomputeAll(cmd.Context())
	if err != nil {
		log.Error("recompute failed", zap.Int("recomputed", count), zap.Error(err))
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "recomputed %d habits\n", count)
	return nil
}
