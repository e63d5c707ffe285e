package collect

import "sync"

// Revocable wraps obs so that it can be switched off. The returned
// Disposer blocks until calls already running have returned; after that
// the wrapped observer is a no-op. obs must not dispose its own
// registration.
func Revocable(obs Observer) (Observer, Disposer) {
	var (
		mu   sync.RWMutex
		live = true
	)
	guarded := func(u string) {
		mu.RLock()
		defer mu.RUnlock()
		if live {
			obs(u)
		}
	}
	dispose := func() {
		mu.Lock()
		live = false
		mu.Unlock()
	}
	return guarded, dispose
}
