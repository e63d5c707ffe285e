// Package browser drives a Chrome tab with chromedp and exposes it to the
// collector and pairer as a resource log, request hooks, cache storage and
// a parsed document.
package browser

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"vimeoscan/internal/httputil"
)

// Options configures the browser.
type Options struct {
	Headless   bool
	ChromePath string
	UserAgent  string
	Settle     time.Duration // wait after load so the player starts fetching
	Timeout    time.Duration // upper bound for a navigation
}

func (o Options) withDefaults() Options {
	if o.Settle < 0 {
		o.Settle = 0
	}
	if o.Timeout <= 0 {
		o.Timeout = 90 * time.Second
	}
	return o
}

func (o Options) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", o.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
	)
	if o.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(o.ChromePath))
	}
	if o.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(o.UserAgent))
	}
	return opts
}

// Session is one browser tab.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options
	log    *zap.Logger

	networkOnce sync.Once
	networkErr  error

	mu     sync.Mutex
	caches map[string]string // cache name -> cache id
}

// Open starts Chrome and a tab. Close releases both.
func Open(ctx context.Context, opts Options) (*Session, error) {
	opts = opts.withDefaults()

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		opts:   opts,
		log:    zap.L(),
		caches: make(map[string]string),
	}

	// The context of the first Run owns the browser process and the tab,
	// so it has to be the session context. ctx only bounds the startup.
	stop := context.AfterFunc(ctx, s.cancel)
	err := chromedp.Run(s.ctx)
	if !stop() {
		return nil, eris.Wrap(ctx.Err(), "starting chrome")
	}
	if err != nil {
		s.Close()
		return nil, eris.Wrap(err, "starting chrome")
	}
	s.log.Debug("browser started", zap.Bool("headless", opts.Headless))
	return s, nil
}

// run executes actions on the already started tab until they finish or ctx
// is done.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads pageURL, waits for the body and then for the settle time.
func (s *Session) Navigate(ctx context.Context, pageURL string) error {
	if err := httputil.ValidateURL(pageURL); err != nil {
		return eris.Wrap(err, "invalid page URL")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	s.log.Info("loading page", zap.String("url", pageURL))
	err := s.run(ctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return eris.Wrapf(err, "navigating to %s", pageURL)
	}

	if s.opts.Settle > 0 {
		s.log.Debug("waiting for player", zap.Duration("settle", s.opts.Settle))
		select {
		case <-time.After(s.opts.Settle):
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "waiting for page to settle")
		}
	}
	return nil
}

// Resources lists the URLs in the page's resource timing buffer.
func (s *Session) Resources(ctx context.Context) ([]string, error) {
	var names []string
	err := s.run(ctx, chromedp.Evaluate(
		`performance.getEntriesByType('resource').map(e => e.name)`, &names))
	if err != nil {
		return nil, eris.Wrap(err, "reading resource timing")
	}
	return names, nil
}

// HTML returns the outer HTML of the document element.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", eris.Wrap(err, "reading page html")
	}
	return html, nil
}

// Document parses the current page with goquery.
func (s *Session) Document(ctx context.Context) (*goquery.Document, error) {
	html, err := s.HTML(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "parsing page html")
	}
	return doc, nil
}

// BaseURL is the document base URI, used to resolve relative embeds.
func (s *Session) BaseURL(ctx context.Context) (*url.URL, error) {
	var raw string
	if err := s.run(ctx, chromedp.Evaluate(`document.baseURI`, &raw)); err != nil {
		return nil, eris.Wrap(err, "reading base URI")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, eris.Wrapf(err, "parsing base URI %q", raw)
	}
	return u, nil
}

// Close shuts down the tab and the browser. It is safe to call twice.
func (s *Session) Close() {
	s.cancel()
}
