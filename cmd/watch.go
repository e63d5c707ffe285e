package cmd

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vimeoscan/internal/collect"
	"vimeoscan/internal/media"
	"vimeoscan/internal/metrics"
)

var flagMetricsAddr string

var watchCmd = &cobra.Command{
	Use:   "watch <page-url>",
	Short: "Collect, then keep printing new segment URLs until interrupted",
	Long: `watch runs a collection against a live page and leaves the request
hooks installed. Every new media URL the player requests is printed as it
happens. Press Ctrl+C to stop; the full set is then stored.`,
	Args: cobra.ExactArgs(1),
	RunE: watchRun,
}

func init() {
	watchCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :2112)")
}

func watchRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	m := metrics.New()
	if flagMetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, flagMetricsAddr); err != nil {
				zap.L().Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	src, err := openSource(ctx, args[0], "")
	if err != nil {
		return err
	}
	defer src.Close()

	// Collect prints its own report; only later additions are streamed.
	var watching atomic.Bool
	opts := append(src.opts,
		collect.WithOutput(out),
		collect.WithClipboard(clipboard()),
		collect.WithNotify(func(u string, s media.Source) {
			if !watching.Load() {
				return
			}
			m.Notify(u, s)
			fmt.Fprintf(out, "+ [%s] %s\n", s, u)
		}),
	)
	c := collect.New(opts...)
	defer c.Close()

	res := c.Collect(ctx)
	m.ObserveResult(res)
	watching.Store(true)

	fmt.Fprintln(out, "Watching for new media requests. Press Ctrl+C to stop.")
	<-ctx.Done()
	c.Close()

	urls := c.URLs()
	fmt.Fprintf(out, "\nStopped with %d URLs (%d new while watching).\n", len(urls), len(urls)-len(res.URLs))

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if _, err := saveCapture(saveCtx, args[0], urls); err != nil {
		zap.L().Warn("capture not stored", zap.Error(err))
	}
	return nil
}
