// Package cache keeps recent validation reports in memory so clients can
// fetch them again by run ID.
package cache

import (
	"context"
	"sync"
	"time"

	"feedvalidator/internal/notice"
	"feedvalidator/pkg/logger"
)

// ReportStore is a bounded, expiring map of run ID to report.
// It is safe for concurrent use.
type ReportStore struct {
	ttl      time.Duration
	capacity int
	now      func() time.Time

	mu      sync.RWMutex
	entries map[string]storedReport
	order   []string // insertion order, oldest first

	listeners   []EvictionListener
	listenersMu sync.RWMutex

	// Lifecycle
	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

type storedReport struct {
	report   *notice.Report
	storedAt time.Time
}

// EvictionListener is called when a report leaves the store.
type EvictionListener func(runID string, reason string)

const (
	EvictExpired  = "expired"
	EvictCapacity = "capacity"
)

// NewReportStore keeps at most capacity reports for ttl each.
// capacity <= 0 or ttl <= 0 disables the respective bound.
func NewReportStore(ttl time.Duration, capacity int) *ReportStore {
	return &ReportStore{
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
		entries:  make(map[string]storedReport),
	}
}

// OnEvict registers a listener.
func (s *ReportStore) OnEvict(l EvictionListener) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, l)
	s.listenersMu.Unlock()
}

// Put stores a report under its run ID, evicting the oldest over capacity.
func (s *ReportStore) Put(r *notice.Report) {
	if r == nil || r.RunID == "" {
		return
	}

	var evicted []string
	s.mu.Lock()
	if _, exists := s.entries[r.RunID]; !exists {
		s.order = append(s.order, r.RunID)
	}
	s.entries[r.RunID] = storedReport{report: r, storedAt: s.now()}
	for s.capacity > 0 && len(s.order) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.entries, oldest)
		evicted = append(evicted, oldest)
	}
	s.mu.Unlock()

	for _, id := range evicted {
		s.notify(id, EvictCapacity)
	}
}

// Get returns a stored report. Expired reports are never returned even
// before the janitor removes them.
func (s *ReportStore) Get(runID string) (*notice.Report, bool) {
	s.mu.RLock()
	e, ok := s.entries[runID]
	s.mu.RUnlock()
	if !ok || s.expired(e) {
		return nil, false
	}
	return e.report, true
}

// Len returns the number of stored reports, expired ones included.
func (s *ReportStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *ReportStore) expired(e storedReport) bool {
	return s.ttl > 0 && s.now().Sub(e.storedAt) >= s.ttl
}

// EvictExpired removes expired reports and returns how many were removed.
func (s *ReportStore) EvictExpired() int {
	if s.ttl <= 0 {
		return 0
	}

	var evicted []string
	s.mu.Lock()
	kept := s.order[:0]
	for _, id := range s.order {
		if s.expired(s.entries[id]) {
			delete(s.entries, id)
			evicted = append(evicted, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	s.mu.Unlock()

	for _, id := range evicted {
		s.notify(id, EvictExpired)
	}
	return len(evicted)
}

// notify calls listeners in order; a panicking listener does not stop the rest.
func (s *ReportStore) notify(runID, reason string) {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for _, listener := range s.listeners {
		func(l EvictionListener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error(context.Background(), "eviction listener panic recovered", "run_id", runID, "panic", r)
				}
			}()
			l(runID, reason)
		}(listener)
	}
}

// Start runs the janitor every interval until Stop or ctx is done.
func (s *ReportStore) Start(ctx context.Context, interval time.Duration) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.lifecycleMu.Lock()
	if s.started || interval <= 0 {
		s.lifecycleMu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.lifecycleMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.EvictExpired(); n > 0 {
					logger.Debug(ctx, "expired reports evicted", "count", n)
				}
			}
		}
	}()
	logger.Info(ctx, "report store started", "ttl", s.ttl, "capacity", s.capacity)
}

// Stop stops the janitor and waits for it to exit.
func (s *ReportStore) Stop() {
	s.lifecycleMu.Lock()
	if !s.started {
		s.lifecycleMu.Unlock()
		return
	}
	cancel := s.cancel
	s.started = false
	s.cancel = nil
	s.lifecycleMu.Unlock()

	cancel()
	s.wg.Wait()
}
