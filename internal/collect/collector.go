// Package collect gathers candidate media URLs for a page from five sources:
// recorded resource timings, request and fetch interception, cache storage,
// and a manifest re-scan of the resource timings.
//
// Every page-side dependency is an interface so the matching logic runs the
// same against a live browser, an exported HAR file, or test fakes.
package collect

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"vimeoscan/internal/clip"
	"vimeoscan/internal/media"
)

// ErrNoCacheStore is reported by step 4 when no cache store was supplied.
var ErrNoCacheStore = eris.New("cache storage not available in this context")

// ResourceLog lists the URLs of requests the page already completed.
type ResourceLog interface {
	Resources(ctx context.Context) ([]string, error)
}

// Observer receives the target URL of an intercepted request.
type Observer func(url string)

// Disposer removes an interception registration. After it returns the
// observer is not called again.
type Disposer func()

// Hook observes future requests of one kind without altering them.
type Hook interface {
	Intercept(ctx context.Context, obs Observer) (Disposer, error)
}

// CacheStore exposes named response caches.
type CacheStore interface {
	CacheNames(ctx context.Context) ([]string, error)
	RequestURLs(ctx context.Context, cache string) ([]string, error)
}

// Result is the outcome of one Collect call.
type Result struct {
	URLs      []string
	Video     []string
	Audio     []string
	Other     []string
	Counts    map[media.Source]int
	CacheErr  error
	Clipboard clip.Result
}

// Collector runs the five collection steps. Interception registrations made
// by Collect stay active until Close.
type Collector struct {
	resources ResourceLog
	xhr       Hook
	fetch     Hook
	caches    CacheStore
	clipboard clip.Clipboard
	out       io.Writer
	log       *zap.Logger
	notify    func(url string, src media.Source)

	set       *Set
	xhrHits   atomic.Int64
	fetchHits atomic.Int64

	outMu     sync.Mutex
	hookMu    sync.Mutex
	disposers []Disposer
}

// Option configures a Collector.
type Option func(*Collector)

// WithResources sets the step 1 and step 5 source.
func WithResources(r ResourceLog) Option { return func(c *Collector) { c.resources = r } }

// WithXHR sets the step 2 hook.
func WithXHR(h Hook) Option { return func(c *Collector) { c.xhr = h } }

// WithFetch sets the step 3 hook.
func WithFetch(h Hook) Option { return func(c *Collector) { c.fetch = h } }

// WithCaches sets the step 4 source.
func WithCaches(s CacheStore) Option { return func(c *Collector) { c.caches = s } }

// WithClipboard sets the clipboard. The default rejects every write.
func WithClipboard(cb clip.Clipboard) Option { return func(c *Collector) { c.clipboard = cb } }

// WithOutput sets where the report is printed. The default discards it.
func WithOutput(w io.Writer) Option { return func(c *Collector) { c.out = w } }

// WithLogger overrides the global zap logger.
func WithLogger(l *zap.Logger) Option { return func(c *Collector) { c.log = l } }

// WithNotify registers fn to be called once per newly added URL. It may be
// called from backend goroutines.
func WithNotify(fn func(url string, src media.Source)) Option {
	return func(c *Collector) { c.notify = fn }
}

// New creates a Collector. Missing collaborators make their step a no-op.
func New(opts ...Option) *Collector {
	c := &Collector{
		clipboard: clip.Disabled{},
		out:       io.Discard,
		log:       zap.L(),
		set:       NewSet(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect runs steps 1-5, prints the report, and copies every URL to the
// clipboard. Failures of individual sources are reported, never returned.
func (c *Collector) Collect(ctx context.Context) *Result {
	res := &Result{Counts: make(map[media.Source]int)}

	c.printf("\n%s\n", banner("VIMEO URL COLLECTOR"))

	// 1. Resource timings.
	c.printf("[1/5] Checking recorded resource timings...\n")
	names := c.readResources(ctx)
	for _, name := range names {
		if IsMedia(name) {
			c.add(name, media.Resources)
		}
	}
	res.Counts[media.Resources] = c.set.Len()
	c.printf("  found: %d URLs\n\n", c.set.Len())

	// 2-3. Interception.
	c.printf("[2/5] Watching request-style network calls...\n")
	c.install(ctx, c.xhr, media.XHR, c.observer(media.XHR, false))
	c.printf("[3/5] Watching fetch calls...\n")
	c.install(ctx, c.fetch, media.Fetch, c.observer(media.Fetch, true))

	// 4. Cache storage.
	c.printf("[4/5] Checking cache storage...\n")
	cached, err := c.scanCaches(ctx)
	if err != nil {
		res.CacheErr = err
		c.log.Info("cache storage unavailable", zap.Error(err))
		c.printf("  no cache access: %v\n\n", err)
	} else {
		c.printf("  found: %d URLs in cache\n\n", cached)
	}
	res.Counts[media.Cache] = cached

	// 5. Manifests, from the same resource timings.
	c.printf("[5/5] Checking manifests (MPD/M3U8)...\n")
	manifests := 0
	for _, name := range names {
		if IsManifest(name) {
			c.add(name, media.Manifests)
			manifests++
		}
	}
	res.Counts[media.Manifests] = manifests
	c.printf("  found: %d manifests\n\n", manifests)

	res.URLs = c.set.Items()
	res.Video, res.Audio, res.Other = Partition(res.URLs)
	res.Counts[media.XHR] = int(c.xhrHits.Load())
	res.Counts[media.Fetch] = int(c.fetchHits.Load())

	c.printSummary(res)

	res.Clipboard = clip.Copy(c.clipboard, strings.Join(res.URLs, "\n"))
	if res.Clipboard.Copied {
		c.printf("%s\n\n", okStyle.Render("✓ All URLs copied to clipboard"))
	} else {
		c.log.Info("clipboard write failed", zap.Error(res.Clipboard.Err))
		c.printf("%s\n\n", warnStyle.Render("could not copy to clipboard: "+errText(res.Clipboard.Err)))
	}

	c.printNextSteps()
	return res
}

// URLs returns the live set, including URLs captured after Collect returned.
func (c *Collector) URLs() []string {
	return c.set.Items()
}

// Intercepted returns how many matching requests a hook has seen so far.
func (c *Collector) Intercepted(src media.Source) int {
	switch src {
	case media.XHR:
		return int(c.xhrHits.Load())
	case media.Fetch:
		return int(c.fetchHits.Load())
	default:
		return 0
	}
}

// CopyURL copies the i-th URL of the live set. An index outside the set is
// a no-op and yields a zero Result.
func (c *Collector) CopyURL(i int) clip.Result {
	u, res := CopyIndex(c.clipboard, c.set.Items(), i)
	if res.Copied {
		c.printf("%s\n", okStyle.Render("✓ Copied: "+u))
	}
	return res
}

// Close disposes every interception registration made by Collect.
func (c *Collector) Close() {
	c.hookMu.Lock()
	disposers := c.disposers
	c.disposers = nil
	c.hookMu.Unlock()

	for _, dispose := range disposers {
		dispose()
	}
}

// CopyIndex copies urls[i] to cb. Out-of-range indices are a silent no-op.
func CopyIndex(cb clip.Clipboard, urls []string, i int) (string, clip.Result) {
	if i < 0 || i >= len(urls) {
		return "", clip.Result{}
	}
	return urls[i], clip.Copy(cb, urls[i])
}

func (c *Collector) readResources(ctx context.Context) []string {
	if c.resources == nil {
		c.log.Debug("no resource log configured")
		return nil
	}
	names, err := c.resources.Resources(ctx)
	if err != nil {
		c.log.Info("reading resource timings failed", zap.Error(err))
		c.printf("  resource timings unavailable: %v\n", err)
		return nil
	}
	return names
}

func (c *Collector) install(ctx context.Context, h Hook, src media.Source, obs Observer) {
	if h == nil {
		c.printf("  unavailable in this context\n\n")
		return
	}
	dispose, err := h.Intercept(ctx, obs)
	if err != nil {
		c.log.Warn("installing interception failed", zap.Stringer("source", src), zap.Error(err))
		c.printf("  could not watch: %v\n\n", err)
		return
	}
	c.hookMu.Lock()
	c.disposers = append(c.disposers, dispose)
	c.hookMu.Unlock()
	c.printf("  ready. Keep the video playing...\n\n")
}

func (c *Collector) observer(src media.Source, preview bool) Observer {
	return func(u string) {
		if u == "" || !IsMedia(u) {
			return
		}
		switch src {
		case media.XHR:
			c.xhrHits.Add(1)
		case media.Fetch:
			c.fetchHits.Add(1)
		}
		c.add(u, src)
		if preview {
			c.printf("  fetch: %s\n", truncate(u, 60))
		}
	}
}

func (c *Collector) scanCaches(ctx context.Context) (count int, err error) {
	if c.caches == nil {
		return 0, ErrNoCacheStore
	}
	names, err := c.caches.CacheNames(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "listing caches")
	}
	for _, name := range names {
		urls, err := c.caches.RequestURLs(ctx, name)
		if err != nil {
			return 0, eris.Wrapf(err, "reading cache %q", name)
		}
		for _, u := range urls {
			if IsMedia(u) {
				c.add(u, media.Cache)
				count++
			}
		}
	}
	return count, nil
}

func (c *Collector) add(u string, src media.Source) {
	if !c.set.Add(u) {
		return
	}
	c.log.Debug("collected url", zap.Stringer("source", src), zap.String("url", u))
	if c.notify != nil {
		c.notify(u, src)
	}
}

func (c *Collector) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
