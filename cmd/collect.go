package cmd

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vimeoscan/internal/browser"
	"vimeoscan/internal/collect"
	"vimeoscan/internal/har"
	"vimeoscan/internal/media"
	"vimeoscan/internal/ui"
)

var flagHAR string

var collectCmd = &cobra.Command{
	Use:   "collect [page-url]",
	Short: "Collect media URLs from a live page or a HAR file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  collectRun,
}

func init() {
	collectCmd.Flags().StringVar(&flagHAR, "har", "", "Read requests from a saved HTTP Archive")
}

// resourceLogs concatenates several resource logs in order.
type resourceLogs []collect.ResourceLog

func (r resourceLogs) Resources(ctx context.Context) ([]string, error) {
	var all []string
	var errs []error
	for _, l := range r {
		names, err := l.Resources(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		all = append(all, names...)
	}
	if len(errs) == len(r) && len(errs) > 0 {
		return nil, errs[0]
	}
	return all, nil
}

// source is what a collection runs against.
type source struct {
	label   string
	session *browser.Session
	opts    []collect.Option
}

func (s *source) Close() {
	if s.session != nil {
		s.session.Close()
	}
}

// openSource prepares the collector collaborators for pageURL and/or
// harPath. The caller must Close the result.
func openSource(ctx context.Context, pageURL, harPath string) (*source, error) {
	src := &source{}
	var logs resourceLogs

	if harPath != "" {
		h, err := har.Load(harPath)
		if err != nil {
			return nil, err
		}
		debugf("loaded %d requests from %s", h.Len(), harPath)
		logs = append(logs, h)
		src.label = harPath
	}

	if pageURL != "" {
		sess, err := browser.Open(ctx, browserOptions())
		if err != nil {
			return nil, err
		}
		if err := sess.Navigate(ctx, pageURL); err != nil {
			sess.Close()
			return nil, err
		}
		src.session = sess
		src.label = pageURL
		logs = append(logs, sess)
		src.opts = append(src.opts,
			collect.WithXHR(sess.XHRHook()),
			collect.WithFetch(sess.FetchHook()),
			collect.WithCaches(sess),
		)
	}

	if len(logs) > 0 {
		src.opts = append(src.opts, collect.WithResources(logs))
	}
	return src, nil
}

func pageArg(args []string, allowEmpty bool) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if allowEmpty {
		return "", nil
	}
	if !interactive() {
		return "", eris.New("no page URL given")
	}
	return ui.Input("Page URL")
}

func collectRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pageURL, err := pageArg(args, flagHAR != "")
	if err != nil {
		return err
	}

	src, err := openSource(ctx, pageURL, flagHAR)
	if err != nil {
		return err
	}
	defer src.Close()

	var out io.Writer = cmd.OutOrStdout()
	if flagJSON {
		out = io.Discard
	}
	opts := append(src.opts,
		collect.WithOutput(out),
		collect.WithClipboard(clipboard()),
	)

	c := collect.New(opts...)
	defer c.Close()
	res := c.Collect(ctx)

	capture, err := saveCapture(ctx, src.label, res.URLs)
	if err != nil {
		zap.L().Warn("capture not stored", zap.Error(err))
	}

	if flagJSON {
		return writeResultJSON(cmd.OutOrStdout(), res, capture)
	}
	return nil
}

func saveCapture(ctx context.Context, page string, urls []string) (*media.Capture, error) {
	if !cfg.History {
		return nil, nil
	}
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	capture, err := st.SaveCapture(ctx, page, urls)
	if err != nil {
		return nil, err
	}
	debugf("stored capture %s (%d urls)", capture.ID, capture.Count)
	return capture, nil
}

func writeResultJSON(w io.Writer, res *collect.Result, capture *media.Capture) error {
	counts := make(map[string]int, len(res.Counts))
	for src, n := range res.Counts {
		counts[src.String()] = n
	}
	out := map[string]interface{}{
		"urls":      nonNil(res.URLs),
		"video":     nonNil(res.Video),
		"audio":     nonNil(res.Audio),
		"other":     nonNil(res.Other),
		"counts":    counts,
		"copied":    res.Clipboard.Copied,
		"cache_err": errString(res.CacheErr),
	}
	if capture != nil {
		out["capture_id"] = capture.ID
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
