package browser

import (
	"context"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"

	"vimeoscan/internal/collect"
)

// requestHook reports requests of one resource type.
type requestHook struct {
	s    *Session
	kind network.ResourceType
}

// XHRHook reports XMLHttpRequest traffic.
func (s *Session) XHRHook() collect.Hook { return &requestHook{s: s, kind: network.ResourceTypeXHR} }

// FetchHook reports fetch() traffic.
func (s *Session) FetchHook() collect.Hook { return &requestHook{s: s, kind: network.ResourceTypeFetch} }

func (s *Session) enableNetwork(ctx context.Context) error {
	s.networkOnce.Do(func() {
		s.networkErr = s.run(ctx, chromedp.ActionFunc(func(c context.Context) error {
			return network.Enable().Do(c)
		}))
	})
	return eris.Wrap(s.networkErr, "enabling network events")
}

// Intercept listens for requestWillBeSent events. The disposer waits for
// a delivery in progress and stops every later one, including events
// already queued.
func (h *requestHook) Intercept(ctx context.Context, obs collect.Observer) (collect.Disposer, error) {
	if err := h.s.enableNetwork(ctx); err != nil {
		return nil, err
	}

	guarded, revoke := collect.Revocable(obs)
	listenCtx, cancel := context.WithCancel(h.s.ctx)
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		if u, ok := requestURL(ev, h.kind); ok {
			guarded(u)
		}
	})

	return func() {
		revoke()
		cancel()
	}, nil
}

// requestURL extracts the URL of a requestWillBeSent event of type kind.
func requestURL(ev interface{}, kind network.ResourceType) (string, bool) {
	e, ok := ev.(*network.EventRequestWillBeSent)
	if !ok || e.Type != kind || e.Request == nil {
		return "", false
	}
	return e.Request.URL, true
}

var _ collect.Hook = (*requestHook)(nil)
