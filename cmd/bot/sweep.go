package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/coah80/clipbot/internal/logger"
	"github.com/coah80/clipbot/internal/services"
)

var sweepAll bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove stale downloads once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		j := services.NewJanitor(cfg.Download.Dir, cfg.Janitor.GetInterval(), cfg.Janitor.GetMaxAge(), logger.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format))

		if sweepAll {
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d files\n", j.Clear())
			return nil
		}
		removed := j.Sweep(time.Now())
		for _, name := range removed {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d files\n", len(removed))
		return nil
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepAll, "all", false, "remove every file regardless of age")
}
