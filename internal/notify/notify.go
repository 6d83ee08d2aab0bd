// Package notify keeps short-lived user notifications ("Deck saved",
// "User settings updated") and dismisses them after a timeout.
package notify

import (
	"sync"
	"time"
)

type Kind string

const (
	Success Kind = "SUCCESS"
	Error   Kind = "ERROR"
)

type Notification struct {
	ID       int64     `json:"id"`
	Message  string    `json:"message"`
	Kind     Kind      `json:"type"`
	QueuedAt time.Time `json:"queued_at"`
}

// Store is one user's notification queue. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	timeout time.Duration
	nextID  int64
	items   []Notification
	timers  map[int64]*time.Timer
	subs    map[int]chan []Notification
	nextSub int
}

func NewStore(timeout time.Duration) *Store {
	return &Store{
		timeout: timeout,
		timers:  map[int64]*time.Timer{},
		subs:    map[int]chan []Notification{},
	}
}

// Queue appends a notification and schedules its dismissal.
func (s *Store) Queue(message string, kind Kind) Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := Notification{ID: s.nextID, Message: message, Kind: kind, QueuedAt: time.Now()}
	s.nextID++
	s.items = append(s.items, n)
	s.timers[n.ID] = time.AfterFunc(s.timeout, func() { s.Dismiss(n.ID) })
	s.publish()
	return n
}

// List returns the pending notifications, oldest first.
func (s *Store) List() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Dismiss removes a notification early. Unknown ids report false.
func (s *Store) Dismiss(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.items {
		if n.ID != id {
			continue
		}
		s.items = append(s.items[:i], s.items[i+1:]...)
		if t, ok := s.timers[id]; ok {
			t.Stop()
			delete(s.timers, id)
		}
		s.publish()
		return true
	}
	return false
}

// Subscribe delivers a snapshot after every change. Slow subscribers only
// see the latest snapshot. cancel closes the channel.
func (s *Store) Subscribe() (<-chan []Notification, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan []Notification, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

// Close stops pending dismiss timers and drops all notifications.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.items = nil
}

func (s *Store) snapshot() []Notification {
	out := make([]Notification, len(s.items))
	copy(out, s.items)
	return out
}

// publish must be called with mu held.
func (s *Store) publish() {
	snap := s.snapshot()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

// idle reports whether nothing is queued and nobody listens.
func (s *Store) idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) == 0 && len(s.subs) == 0
}

// Center hands out one Store per user. Stores that stay idle and unused
// for the eviction window are dropped, so users who never log out do not
// pin memory.
type Center struct {
	timeout    time.Duration
	evictAfter time.Duration
	now        func() time.Time

	mu        sync.Mutex
	stores    map[string]*entry
	lastSweep time.Time
}

type entry struct {
	store *Store
	used  time.Time
}

func NewCenter(timeout time.Duration) *Center {
	evict := 2 * timeout
	if evict < time.Minute {
		evict = time.Minute
	}
	return &Center{
		timeout:    timeout,
		evictAfter: evict,
		now:        time.Now,
		stores:     map[string]*entry{},
		lastSweep:  time.Now(),
	}
}

func (c *Center) For(userID string) *Store {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= c.evictAfter {
		c.sweep(now)
	}
	e, ok := c.stores[userID]
	if !ok {
		e = &entry{store: NewStore(c.timeout)}
		c.stores[userID] = e
	}
	e.used = now
	return e.store
}

// sweep must be called with mu held.
func (c *Center) sweep(now time.Time) {
	c.lastSweep = now
	for id, e := range c.stores {
		if now.Sub(e.used) >= c.evictAfter && e.store.idle() {
			delete(c.stores, id)
			e.store.Close()
		}
	}
}

// Forget drops a user's store, e.g. on logout.
func (c *Center) Forget(userID string) {
	c.mu.Lock()
	e, ok := c.stores[userID]
	delete(c.stores, userID)
	c.mu.Unlock()
	if ok {
		e.store.Close()
	}
}
