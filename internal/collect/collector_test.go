package collect

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"vimeoscan/internal/media"
)

type fakeLog struct {
	names []string
	err   error
}

func (f fakeLog) Resources(context.Context) ([]string, error) { return f.names, f.err }

type fakeHook struct {
	mu       sync.Mutex
	obs      Observer
	disposed int
	err      error
}

func (h *fakeHook) Intercept(_ context.Context, obs Observer) (Disposer, error) {
	if h.err != nil {
		return nil, h.err
	}
	h.mu.Lock()
	h.obs = obs
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.obs = nil
		h.disposed++
	}, nil
}

func (h *fakeHook) fire(u string) {
	h.mu.Lock()
	obs := h.obs
	h.mu.Unlock()
	if obs != nil {
		obs(u)
	}
}

type fakeCaches struct {
	caches  map[string][]string
	order   []string
	listErr error
	readErr error
}

func (f fakeCaches) CacheNames(context.Context) ([]string, error) {
	return f.order, f.listErr
}

func (f fakeCaches) RequestURLs(_ context.Context, name string) ([]string, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.caches[name], nil
}

type recorder struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (r *recorder) WriteAll(text string) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return nil
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.texts) == 0 {
		return ""
	}
	return r.texts[len(r.texts)-1]
}

func TestCollectResourceExample(t *testing.T) {
	cb := &recorder{}
	var out bytes.Buffer
	c := New(
		WithResources(fakeLog{names: []string{
			"https://host/video/1234.mp4",
			"https://host/manifest.m3u8",
			"https://host/app.js",
		}}),
		WithClipboard(cb),
		WithOutput(&out),
	)

	res := c.Collect(context.Background())

	assert.Equal(t, []string{"https://host/video/1234.mp4", "https://host/manifest.m3u8"}, res.URLs)
	assert.Equal(t, []string{"https://host/video/1234.mp4"}, res.Video)
	assert.Empty(t, res.Audio)
	assert.Equal(t, []string{"https://host/manifest.m3u8"}, res.Other)
	assert.Equal(t, 1, res.Counts[media.Resources])
	assert.Equal(t, 1, res.Counts[media.Manifests])

	assert.True(t, res.Clipboard.Copied)
	assert.Equal(t, "https://host/video/1234.mp4\nhttps://host/manifest.m3u8", cb.last())

	report := out.String()
	assert.Contains(t, report, "[1/5]")
	assert.Contains(t, report, "[5/5]")
	assert.Contains(t, report, "RESULT: 2 URLS FOUND")
	assert.Contains(t, report, "  [0] https://host/video/1234.mp4")
}

func TestCollectDeduplicatesAcrossSources(t *testing.T) {
	const seg = "https://vod-adaptive.akamaized.net/exp=1/range/prot/avf/seg-1.mp4"
	xhr := &fakeHook{}
	fetch := &fakeHook{}
	c := New(
		WithResources(fakeLog{names: []string{seg, seg}}),
		WithXHR(xhr),
		WithFetch(fetch),
		WithCaches(fakeCaches{
			order:  []string{"player", "other"},
			caches: map[string][]string{"player": {seg}, "other": {seg, "https://x/a.css"}},
		}),
	)

	res := c.Collect(context.Background())
	xhr.fire(seg)
	fetch.fire(seg)

	assert.Equal(t, []string{seg}, res.URLs)
	assert.Equal(t, 2, res.Counts[media.Cache], "cache count counts matches, not new URLs")
	assert.Equal(t, []string{seg}, c.URLs())
	assert.Equal(t, 1, c.Intercepted(media.XHR))
	assert.Equal(t, 1, c.Intercepted(media.Fetch))
}

func TestCollectCacheAccessDenied(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	var out bytes.Buffer
	c := New(
		WithResources(fakeLog{names: []string{"https://host/v.mp4"}}),
		WithCaches(fakeCaches{listErr: errors.New("access denied")}),
		WithOutput(&out),
		WithLogger(zap.New(core)),
	)

	res := c.Collect(context.Background())

	require.NotNil(t, res)
	assert.Equal(t, []string{"https://host/v.mp4"}, res.URLs)
	assert.Error(t, res.CacheErr)
	assert.Contains(t, res.CacheErr.Error(), "access denied")
	assert.Equal(t, 0, res.Counts[media.Cache])
	assert.Equal(t, 1, logs.FilterMessage("cache storage unavailable").Len())
	assert.Equal(t, 1, strings.Count(out.String(), "no cache access:"))
}

func TestCollectCacheReadFailureCountsZero(t *testing.T) {
	c := New(WithCaches(fakeCaches{
		order:   []string{"a"},
		readErr: errors.New("boom"),
	}))

	res := c.Collect(context.Background())
	assert.Error(t, res.CacheErr)
	assert.Equal(t, 0, res.Counts[media.Cache])
}

func TestCollectWithoutCollaborators(t *testing.T) {
	var out bytes.Buffer
	c := New(WithOutput(&out))

	res := c.Collect(context.Background())

	assert.Empty(t, res.URLs)
	assert.ErrorIs(t, res.CacheErr, ErrNoCacheStore)
	assert.False(t, res.Clipboard.Copied)
	assert.Error(t, res.Clipboard.Err)
	assert.Equal(t, 2, strings.Count(out.String(), "unavailable in this context"))
}

func TestCollectResourceErrorIsNotFatal(t *testing.T) {
	c := New(
		WithResources(fakeLog{err: errors.New("no performance api")}),
		WithCaches(fakeCaches{
			order:  []string{"c"},
			caches: map[string][]string{"c": {"https://host/a.m4v"}},
		}),
	)

	res := c.Collect(context.Background())
	assert.Equal(t, []string{"https://host/a.m4v"}, res.URLs)
}

func TestCollectHookInstallFailure(t *testing.T) {
	var out bytes.Buffer
	c := New(WithXHR(&fakeHook{err: errors.New("detached")}), WithOutput(&out))

	res := c.Collect(context.Background())
	assert.NotNil(t, res)
	assert.Contains(t, out.String(), "could not watch: detached")
}

func TestCollectClipboardFailure(t *testing.T) {
	c := New(
		WithResources(fakeLog{names: []string{"https://host/v.mp4"}}),
		WithClipboard(&recorder{err: errors.New("denied")}),
	)

	res := c.Collect(context.Background())
	assert.False(t, res.Clipboard.Copied)
	assert.Error(t, res.Clipboard.Err)
	assert.Equal(t, []string{"https://host/v.mp4"}, res.URLs)
}

func TestHooksObserveOnlyMatchingURLs(t *testing.T) {
	xhr := &fakeHook{}
	fetch := &fakeHook{}
	var out bytes.Buffer
	var notified []media.Source
	c := New(
		WithXHR(xhr),
		WithFetch(fetch),
		WithOutput(&out),
		WithNotify(func(_ string, src media.Source) { notified = append(notified, src) }),
	)
	c.Collect(context.Background())

	xhr.fire("https://host/api/config.json")
	xhr.fire("https://skyfire.vimeocdn.com/v2/range/prot/seg.mp4")
	fetch.fire("https://host/track.js")
	fetch.fire("https://vod-adaptive.akamaized.net/exp=1/audio/seg-2.m4a")
	fetch.fire("")

	assert.Equal(t, []string{
		"https://skyfire.vimeocdn.com/v2/range/prot/seg.mp4",
		"https://vod-adaptive.akamaized.net/exp=1/audio/seg-2.m4a",
	}, c.URLs())
	assert.Equal(t, []media.Source{media.XHR, media.Fetch}, notified)
	assert.Contains(t, out.String(), "  fetch: https://vod-adaptive.akamaized.net/exp=1/audio/seg-2.m4a...")
}

func TestCloseDisposesHooks(t *testing.T) {
	xhr := &fakeHook{}
	fetch := &fakeHook{}
	c := New(WithXHR(xhr), WithFetch(fetch))
	c.Collect(context.Background())

	c.Close()
	c.Close()

	xhr.fire("https://host/late.mp4")
	fetch.fire("https://host/late2.mp4")

	assert.Empty(t, c.URLs())
	assert.Equal(t, 1, xhr.disposed)
	assert.Equal(t, 1, fetch.disposed)
}

func TestCopyURL(t *testing.T) {
	cb := &recorder{}
	xhr := &fakeHook{}
	c := New(
		WithResources(fakeLog{names: []string{"https://host/a.mp4"}}),
		WithXHR(xhr),
		WithClipboard(cb),
	)
	c.Collect(context.Background())
	xhr.fire("https://host/b.mp4")

	res := c.CopyURL(1)
	assert.True(t, res.Copied)
	assert.Equal(t, "https://host/b.mp4", cb.last())

	for _, idx := range []int{-1, 2, 99} {
		res := c.CopyURL(idx)
		assert.False(t, res.Copied, "index %d", idx)
		assert.NoError(t, res.Err, "index %d", idx)
	}
	assert.Equal(t, "https://host/b.mp4", cb.last())
}
