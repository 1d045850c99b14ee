package session

import (
	"sort"
	"sync"
)

// Registry holds the live session for each connected datapath.
type Registry struct {
	mu    sync.RWMutex
	items map[uint64]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		items: make(map[uint64]*Session),
	}
}

// Add stores s and returns the session it replaced, if any. A switch that
// reconnects before its old channel is reaped replaces the stale entry.
func (r *Registry) Add(s *Session) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.items[s.DPID()]
	r.items[s.DPID()] = s
	return prev, ok
}

// Remove deletes the entry for conn's datapath only if it still belongs to
// conn.
func (r *Registry) Remove(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[conn.DPID()]
	if !ok || s.conn != conn {
		return false
	}
	delete(r.items, conn.DPID())
	return true
}

func (r *Registry) Get(dpid uint64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[dpid]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *Registry) List() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.items))
	for _, s := range r.items {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].DPID() < out[j].DPID()
	})
	return out
}
