package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/compute"
	"github.com/spf13/cobra"
)

var (
	elementCount int
	groupWidth   uint32
	timeout      time.Duration
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "vecadd",
	Short: "Elementwise vector addition on the GPU",
	Long: `vecadd acquires a GPU device, compiles the vector-addition kernel,
dispatches it over N elements with A[i]=i and B[i]=2i, and prints the
first and last ten results.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}
		handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		logger := slog.New(handler)
		slog.SetDefault(logger)
		compute.SetLogger(logger)
	},
	RunE: runVecAdd,
}

func init() {
	rootCmd.Flags().IntVar(&elementCount, "n", 1024, "Number of elements")
	rootCmd.Flags().Uint32Var(&groupWidth, "group-width", 0, "Workgroup width (0 = derive from device limits)")
	rootCmd.Flags().DurationVar(&timeout, "timeout", compute.DefaultWaitTimeout, "Completion wait timeout")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runVecAdd(cmd *cobra.Command, args []string) error {
	slog.Info("Starting dispatch", "n", elementCount, "timeout", timeout)

	start := time.Now()
	results, err := compute.Run(cmd.Context(), compute.RunOptions{
		ElementCount: elementCount,
		GroupWidth:   groupWidth,
		Timeout:      timeout,
	})
	if err != nil {
		return fmt.Errorf("vector add failed: %w", err)
	}
	elapsed := time.Since(start)

	if err := compute.FormatResults(os.Stdout, results); err != nil {
		return err
	}

	slog.Info("Dispatch complete", "n", len(results), "elapsed", elapsed)
	return nil
}
