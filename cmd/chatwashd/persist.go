package main

import (
	"log/slog"
	"sync"
	"time"

	"github.com/chatwash/chatwash/chatmod/wordstore"
)

// filePersister coalesces persistence requests and rewrites the word list
// JSON file from a background goroutine. Requests never block the caller.
type filePersister struct {
	logger *slog.Logger
	store  *wordstore.Store
	path   string

	mu      sync.Mutex
	pending bool
	kick    chan struct{}
	done    chan struct{}
}

func newFilePersister(logger *slog.Logger, store *wordstore.Store, path string) *filePersister {
	p := &filePersister{
		logger: logger,
		store:  store,
		path:   path,
		kick:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *filePersister) Persist(name string) {
	if name == "message_ids" {
		// sweep queue is session state, not persisted
		return
	}
	p.mu.Lock()
	p.pending = true
	p.mu.Unlock()
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *filePersister) run() {
	for {
		select {
		case <-p.kick:
		case <-p.done:
			p.flush()
			return
		}
		// coalesce the burst of hits a busy group produces
		time.Sleep(2 * time.Second)
		p.flush()
	}
}

func (p *filePersister) flush() {
	p.mu.Lock()
	if !p.pending {
		p.mu.Unlock()
		return
	}
	p.pending = false
	p.mu.Unlock()

	if err := p.store.SaveToFileJSON(p.path); err != nil {
		p.logger.Warn("persisting word lists failed", "path", p.path, "err", err)
		return
	}
	p.logger.Debug("word lists persisted", "path", p.path)
}

func (p *filePersister) Close() {
	close(p.done)
}
