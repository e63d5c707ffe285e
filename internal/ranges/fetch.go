package ranges

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"vimeoscan/internal/httputil"
)

// ErrExpired is returned when the CDN answers 403. Segment URLs carry an
// expiry and must be collected again.
var ErrExpired = eris.New("segment URLs expired, collect them again")

// ErrRangeIgnored is returned when the server answers a multi-fragment
// plan with something other than 206 Partial Content.
var ErrRangeIgnored = eris.New("server ignored the Range header")

// progressEvery is how many fragments pass between progress log lines.
const progressEvery = 5

// Progress is called after each fragment with the counts so far.
type Progress func(done, total int, bytes int64)

// Fetcher downloads range plans one fragment at a time.
type Fetcher struct {
	client   *http.Client
	headers  httputil.Headers
	limiter  *rate.Limiter
	progress Progress
	log      *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) Option { return func(f *Fetcher) { f.client = c } }

// WithHeaders sets the browser-like request headers.
func WithHeaders(h httputil.Headers) Option { return func(f *Fetcher) { f.headers = h } }

// WithRate limits fragment requests per second. Zero or less disables the limit.
func WithRate(perSecond float64) Option {
	return func(f *Fetcher) {
		if perSecond <= 0 {
			f.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		f.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithProgress registers a callback run after each fragment.
func WithProgress(p Progress) Option { return func(f *Fetcher) { f.progress = p } }

// WithLogger overrides the global zap logger.
func WithLogger(l *zap.Logger) Option { return func(f *Fetcher) { f.log = l } }

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		limiter: rate.NewLimiter(rate.Inf, 1),
		log:     zap.L(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = httputil.NewClient(0)
	}
	return f
}

// Download fetches every fragment of plan in order and writes them to path.
// The file only appears once all fragments are written.
func (f *Fetcher) Download(ctx context.Context, plan Plan, path string) (int64, error) {
	if len(plan.Fragments) == 0 {
		return 0, eris.Errorf("no fragments for %s", plan.BaseURL)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, eris.Wrap(err, "creating output directory")
	}

	tmpFile, err := os.CreateTemp(dir, ".vimeoscan-*.part")
	if err != nil {
		return 0, eris.Wrap(err, "creating temp file")
	}
	tmpPath := tmpFile.Name()

	total := len(plan.Fragments)
	partial := total > 1
	var written int64
	for i, frag := range plan.Fragments {
		n, err := f.fetch(ctx, plan.BaseURL, frag, partial, tmpFile)
		written += n
		if err != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
			return written, eris.Wrapf(err, "fragment %d/%d", i+1, total)
		}

		done := i + 1
		if done%progressEvery == 0 || done == total {
			f.log.Info("downloading ranges",
				zap.String("file", filepath.Base(path)),
				zap.Int("done", done),
				zap.Int("total", total),
				zap.Int64("bytes", written),
			)
		}
		if f.progress != nil {
			f.progress(done, total, written)
		}
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return written, eris.Wrap(err, "closing temp file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return written, eris.Wrap(err, "renaming output file")
	}
	return written, nil
}

// fetch appends one fragment to w. With partial set only a 206 answer is
// accepted, since a full-body 200 would be appended once per fragment.
func (f *Fetcher) fetch(ctx context.Context, base string, frag Fragment, partial bool, w io.Writer) (int64, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return 0, eris.Wrap(err, "waiting for rate limiter")
	}

	req, err := httputil.NewRequest(ctx, base, f.headers)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", frag.Header())

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, eris.Wrap(err, "requesting fragment")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return 0, ErrExpired
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return 0, eris.Errorf("unexpected status %d", resp.StatusCode)
	case partial && resp.StatusCode != http.StatusPartialContent:
		return 0, eris.Wrapf(ErrRangeIgnored, "status %d", resp.StatusCode)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, eris.Wrap(err, "reading fragment")
	}
	return n, nil
}
