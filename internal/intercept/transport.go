// Package intercept observes outgoing HTTP requests of a Go client through
// revocable registrations, leaving the requests themselves untouched.
package intercept

import (
	"context"
	"net/http"
	"sync"

	"vimeoscan/internal/collect"
)

// Transport wraps an http.RoundTripper and reports each request URL to the
// registered observers before delegating.
type Transport struct {
	base http.RoundTripper

	mu     sync.RWMutex
	nextID int
	obs    map[int]collect.Observer
}

// Wrap returns a Transport around base. A nil base means
// http.DefaultTransport.
func Wrap(base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, obs: make(map[int]collect.Observer)}
}

// WrapClient installs a Transport on client and returns it.
func WrapClient(client *http.Client) *Transport {
	t := Wrap(client.Transport)
	client.Transport = t
	return t
}

// Intercept registers obs. The returned disposer unregisters it and waits
// for calls already in progress; calling it more than once is harmless.
func (t *Transport) Intercept(_ context.Context, obs collect.Observer) (collect.Disposer, error) {
	guarded, revoke := collect.Revocable(obs)

	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.obs[id] = guarded
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.obs, id)
		t.mu.Unlock()
		revoke()
	}, nil
}

// Observers returns the number of active registrations.
func (t *Transport) Observers() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.obs)
}

// RoundTrip notifies observers, then returns exactly what the wrapped
// transport returns.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL != nil {
		u := req.URL.String()
		t.mu.RLock()
		observers := make([]collect.Observer, 0, len(t.obs))
		for _, obs := range t.obs {
			observers = append(observers, obs)
		}
		t.mu.RUnlock()

		// Disposed observers turn into no-ops, so the snapshot is safe.
		for _, obs := range observers {
			obs(u)
		}
	}
	return t.base.RoundTrip(req)
}

var _ collect.Hook = (*Transport)(nil)
