// CLI for song structure analysis and the analysis API server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nzoschke/songlab/pkg/analysis"
	"github.com/nzoschke/songlab/pkg/config"
	"github.com/nzoschke/songlab/pkg/logging"
	"github.com/nzoschke/songlab/pkg/server"
	"github.com/nzoschke/songlab/pkg/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "app",
	Short:         "Song structure and songwriting metadata analysis",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [directory]",
	Short: "Analyze feature files and create structure JSON sidecars",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dir := cfg.LibraryDir
		if len(args) == 1 {
			dir = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		return runAnalyze(cmd.Context(), cfg, dir, force)
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Print the structure of a feature file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runInspect(cmd, cfg, args[0])
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().String("thresholds", "", "YAML file overriding engine thresholds")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Int("workers", 0, "Concurrent analysis tasks (0 = GOMAXPROCS)")

	analyzeCmd.Flags().BoolP("force", "f", false, "Force re-analysis even if JSON exists")
	serveCmd.Flags().String("addr", "", "Listen address")
	serveCmd.Flags().String("db", "", "SQLite database path")
	serveCmd.Flags().String("library", "", "Library directory of feature files")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads SONGLAB_* settings and applies flags set on the command line.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	override := func(name string, dst *string) {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	override("thresholds", &cfg.Thresholds)
	override("log-level", &cfg.LogLevel)
	override("addr", &cfg.Addr)
	override("db", &cfg.DBPath)
	override("library", &cfg.LibraryDir)
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	return cfg, nil
}

func newAnalyzer(cfg config.Config, log *zap.Logger) (*analysis.Analyzer, error) {
	engineCfg, err := cfg.Engine()
	if err != nil {
		return nil, err
	}
	return analysis.New(&engineCfg, analysis.WithLogger(log), analysis.WithWorkers(cfg.Workers)), nil
}

func runAnalyze(ctx context.Context, cfg config.Config, dir string, force bool) error {
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	analyzer, err := newAnalyzer(cfg, log)
	if err != nil {
		return fmt.Errorf("create analyzer: %w", err)
	}

	report, err := analyzer.AnalyzeDir(ctx, dir, force)
	fmt.Printf("Analyzed %d, skipped %d, failed %d\n", report.Analyzed, report.Skipped, report.Failed)
	return err
}

func runInspect(cmd *cobra.Command, cfg config.Config, path string) error {
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	analyzer, err := newAnalyzer(cfg, log)
	if err != nil {
		return fmt.Errorf("create analyzer: %w", err)
	}

	result, err := analyzer.AnalyzeFileWithPath(path)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func runServe(ctx context.Context, cfg config.Config) error {
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	analyzer, err := newAnalyzer(cfg, log)
	if err != nil {
		return fmt.Errorf("create analyzer: %w", err)
	}

	st, err := store.NewAdapter(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	srv := server.New(analyzer, st, cfg.LibraryDir, log)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start(cfg.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errc
}
