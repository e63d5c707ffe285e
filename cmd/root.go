// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"vimeoscan/internal/browser"
	"vimeoscan/internal/clip"
	"vimeoscan/internal/config"
	"vimeoscan/internal/httputil"
	"vimeoscan/internal/store"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagJSON        bool
	flagDebug       bool
	flagNoClipboard bool
	flagShow        bool
	flagNoHistory   bool
)

// cfg holds the loaded configuration (merged: defaults < config file < flags).
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "vimeoscan",
	Short: "Collect Vimeo segment URLs and title/URL pairs from web pages",
	Long: `vimeoscan loads a page in Chrome (or reads a saved HAR/HTML file),
collects the Vimeo media URLs the player requested, pairs lesson titles with
their embedded players and rebuilds files from byte-range segments.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		zap.L().Debug("command failed", zap.String("trace", eris.ToString(err, true)))
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "Print results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")
	rootCmd.PersistentFlags().BoolVar(&flagNoClipboard, "no-clipboard", false, "Never write to the clipboard")
	rootCmd.PersistentFlags().BoolVar(&flagShow, "show", false, "Show the browser window instead of running headless")
	rootCmd.PersistentFlags().BoolVar(&flagNoHistory, "no-history", false, "Do not store the capture")

	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(pairCmd)
	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(rangesCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration: defaults < config file < CLI flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return eris.Wrap(err, "loading config")
	}

	// CLI flags override config file values
	if flagDebug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	if flagNoClipboard {
		cfg.Clipboard = false
	}
	if flagShow {
		cfg.Headless = false
	}
	if flagNoHistory {
		cfg.History = false
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return eris.Wrap(err, "invalid configuration")
	}

	if err := config.InitLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		return eris.Wrap(err, "init logger")
	}
	return nil
}

// debugf logs a message if debug mode is enabled.
func debugf(format string, args ...interface{}) {
	if cfg != nil && cfg.Debug {
		zap.S().Debugf(format, args...)
	}
}

func clipboard() clip.Clipboard {
	return clip.New(cfg.Clipboard)
}

func browserOptions() browser.Options {
	return browser.Options{
		Headless:   cfg.Headless,
		ChromePath: cfg.ChromePath,
		UserAgent:  cfg.UserAgent,
		Settle:     cfg.Settle(),
		Timeout:    cfg.Timeout(),
	}
}

func mediaHeaders() httputil.Headers {
	return httputil.Headers{UserAgent: cfg.UserAgent, Referer: cfg.Referer}
}

func openStore(ctx context.Context) (*store.SQLiteStore, error) {
	path, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	debugf("capture database: %s", path)
	return store.Open(ctx, path)
}

// interactive reports whether fzf prompts can be shown.
func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "vimeoscan "+Version)
	},
}
