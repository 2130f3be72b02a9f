package tenant

import (
	"io"
	"log/slog"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// EvictNow runs one synchronous eviction pass so tests do not depend on
// the background ticker.
func (r *Registry) EvictNow() {
	r.evictIdle()
	r.evictLRU()
}
