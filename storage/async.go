package storage

import (
	"context"
	"log/slog"
	"sync"
)

const defaultWriterBuffer = 256

// AsyncCacheWriter persists cache entries in the background so request
// handlers never wait on the cache store. Writes that cannot be buffered are
// dropped with a warning; the cache is an optimization, not a system of
// record.
type AsyncCacheWriter struct {
	repo   CacheRepository
	events chan *CacheEntry
	done   chan struct{}
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewAsyncCacheWriter starts a background writer persisting entries to repo.
// Pass buffer <= 0 for the default buffer size.
func NewAsyncCacheWriter(repo CacheRepository, buffer int, logger *slog.Logger) *AsyncCacheWriter {
	if buffer <= 0 {
		buffer = defaultWriterBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &AsyncCacheWriter{
		repo:   repo,
		events: make(chan *CacheEntry, buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	go w.run()
	return w
}

// Publish queues an entry for persistence and returns immediately.
func (w *AsyncCacheWriter) Publish(entry *CacheEntry) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWriterClosed
	}
	select {
	case w.events <- entry:
		return nil
	default:
		w.logger.Warn("cache writer buffer full, dropping entry", "key", entry.Key)
		return nil
	}
}

// Close stops accepting entries, drains the buffer and waits for the writer
// goroutine to finish.
func (w *AsyncCacheWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.events)
	w.mu.Unlock()

	<-w.done
	return nil
}

func (w *AsyncCacheWriter) run() {
	defer close(w.done)
	for entry := range w.events {
		if err := w.repo.PutCacheEntry(context.Background(), entry); err != nil {
			w.logger.Error("error saving cache entry", "key", entry.Key, "err", err)
			continue
		}
		w.logger.Debug("cache entry saved", "key", entry.Key)
	}
}
