package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vimeoscan/internal/httputil"
	"vimeoscan/internal/intercept"
	"vimeoscan/internal/metrics"
	"vimeoscan/internal/ranges"
)

var (
	flagLatest     bool
	flagOutputDir  string
	flagRangesAddr string
)

var rangesCmd = &cobra.Command{
	Use:   "ranges [file]",
	Short: "Rebuild media files from byte-range segment URLs",
	Long: `ranges reads segment URLs carrying a range=START-END parameter, groups
them by file and downloads each file's ranges in order. The input is a text
file (default urls.txt; collector output can be pasted as is) or, with
--latest, the most recent stored capture.

Segment URLs expire. A 403 from the CDN means they must be collected again.`,
	Args: cobra.MaximumNArgs(1),
	RunE: rangesRun,
}

func init() {
	rangesCmd.Flags().BoolVar(&flagLatest, "latest", false, "Use the latest stored capture")
	rangesCmd.Flags().StringVarP(&flagOutputDir, "output", "o", "", "Output directory (default from config)")
	rangesCmd.Flags().StringVar(&flagRangesAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while downloading")
}

func rangesInput(ctx context.Context, args []string) ([]string, error) {
	if flagLatest {
		st, err := openStore(ctx)
		if err != nil {
			return nil, err
		}
		defer st.Close()
		capture, err := st.Latest(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "loading latest capture")
		}
		return capture.URLs, nil
	}

	path := "urls.txt"
	if len(args) > 0 {
		path = args[0]
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reading %s", path)
	}
	return ranges.ExtractURLs(string(data)), nil
}

func rangesRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	urls, err := rangesInput(ctx, args)
	if err != nil {
		return err
	}
	plans := ranges.BuildPlans(urls)
	if len(plans) == 0 {
		return eris.Errorf("none of the %d URLs carries a range parameter", len(urls))
	}
	fmt.Fprintf(out, "Found %d file(s) in %d URLs\n", len(plans), len(urls))

	dir := flagOutputDir
	if dir == "" {
		if dir, err = cfg.ExpandOutputDir(); err != nil {
			return err
		}
	}

	m := metrics.New()
	if flagRangesAddr != "" {
		go func() {
			if err := m.Serve(ctx, flagRangesAddr); err != nil {
				zap.L().Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	client := httputil.NewClient(cfg.Timeout())
	transport := intercept.WrapClient(client)
	disposeMetrics, _ := transport.Intercept(ctx, m.Observer("ranges"))
	defer disposeMetrics()
	disposeLog, _ := transport.Intercept(ctx, func(u string) {
		zap.L().Debug("range request", zap.String("url", u))
	})
	defer disposeLog()

	fetcher := ranges.NewFetcher(
		ranges.WithClient(client),
		ranges.WithHeaders(mediaHeaders()),
		ranges.WithRate(cfg.RangeRate),
	)

	names := uniqueNames(plans)
	for i, plan := range plans {
		path, err := httputil.SafeDownloadPath(dir, names[i])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "[%d/%d] %s (%d fragments)\n", i+1, len(plans), names[i], len(plan.Fragments))

		n, err := fetcher.Download(ctx, plan, path)
		m.ObserveDownload(n, err)
		if err != nil {
			if errors.Is(err, ranges.ErrExpired) {
				return eris.Wrap(err, "the CDN refused the segment (403)")
			}
			return err
		}
		fmt.Fprintf(out, "  ✓ %s (%.1f MB)\n", path, float64(n)/(1<<20))
	}
	return nil
}

// uniqueNames gives each plan a distinct file name.
func uniqueNames(plans []ranges.Plan) []string {
	seen := make(map[string]int, len(plans))
	names := make([]string, len(plans))
	for i, p := range plans {
		name := p.Filename()
		if n := seen[name]; n > 0 {
			ext := ""
			if dot := strings.LastIndex(name, "."); dot > 0 {
				name, ext = name[:dot], name[dot:]
			}
			name = name + "-" + strconv.Itoa(n+1) + ext
		}
		seen[p.Filename()]++
		names[i] = name
	}
	return names
}
