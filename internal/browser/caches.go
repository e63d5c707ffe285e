package browser

import (
	"context"

	"github.com/chromedp/cdproto/cachestorage"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
)

// entryPage is how many cache entries are requested per round trip.
const entryPage = 100

// CacheNames lists the Cache Storage caches of the page origin.
func (s *Session) CacheNames(ctx context.Context) ([]string, error) {
	var origin string
	if err := s.run(ctx, chromedp.Evaluate(`window.location.origin`, &origin)); err != nil {
		return nil, eris.Wrap(err, "reading page origin")
	}
	if origin == "" || origin == "null" {
		return nil, eris.Errorf("page has an opaque origin")
	}

	var caches []*cachestorage.Cache
	err := s.run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		var err error
		caches, err = cachestorage.RequestCacheNames().WithSecurityOrigin(origin).Do(c)
		return err
	}))
	if err != nil {
		return nil, eris.Wrapf(err, "listing caches for %s", origin)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(caches))
	for _, c := range caches {
		s.caches[c.CacheName] = string(c.CacheID)
		names = append(names, c.CacheName)
	}
	return names, nil
}

// RequestURLs returns the request URL of every entry in cache. CacheNames
// must have listed the cache first.
func (s *Session) RequestURLs(ctx context.Context, cache string) ([]string, error) {
	s.mu.Lock()
	id, ok := s.caches[cache]
	s.mu.Unlock()
	if !ok {
		return nil, eris.Errorf("unknown cache %q", cache)
	}

	var urls []string
	err := s.run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		for skip := int64(0); ; skip += entryPage {
			entries, total, err := cachestorage.RequestEntries(cachestorage.CacheID(id)).
				WithSkipCount(skip).
				WithPageSize(entryPage).
				Do(c)
			if err != nil {
				return err
			}
			for _, e := range entries {
				urls = append(urls, e.RequestURL)
			}
			if len(entries) < entryPage || float64(skip+entryPage) >= total {
				return nil
			}
		}
	}))
	if err != nil {
		return nil, eris.Wrapf(err, "reading cache %q", cache)
	}
	return urls, nil
}
