// Package remotetest provides an in-memory remote.DataService for tests.
package remotetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ChristianBalibad/Arduino-Cat-Feeder-App/internal/remote"
)

// Service serves canned rows and records every call. Equality filters are
// applied to queries; range filters, ordering and limits are not, so callers
// must tolerate over-fetching.
type Service struct {
	mu        sync.Mutex
	tables    map[string][]remote.Row
	queries   map[string]int
	inserts   map[string][]remote.Row
	subs      map[int]*subscription
	opened    int
	nextID    int
	queryErr  error
	insertErr error
	subErrs   []error
	gate      chan struct{}
	closed    bool
}

// New returns an empty Service.
func New() *Service {
	return &Service{
		tables:  make(map[string][]remote.Row),
		queries: make(map[string]int),
		inserts: make(map[string][]remote.Row),
		subs:    make(map[int]*subscription),
	}
}

// SetRows replaces the rows returned for table.
func (s *Service) SetRows(table string, rows ...remote.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = rows
}

// FailQueries makes every Query return err until called with nil.
func (s *Service) FailQueries(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryErr = err
}

// FailInserts makes every Insert return err until called with nil.
func (s *Service) FailInserts(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertErr = err
}

// FailSubscribes makes the next len(errs) Subscribe calls fail in order.
func (s *Service) FailSubscribes(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subErrs = append(s.subErrs, errs...)
}

// HoldQueries blocks every Query until the returned release func is called
// or the query context ends.
func (s *Service) HoldQueries() (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gate := make(chan struct{})
	s.gate = gate
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gate == gate {
				s.gate = nil
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Query implements remote.DataService.
func (s *Service) Query(ctx context.Context, q remote.Query) ([]remote.Row, error) {
	s.mu.Lock()
	s.queries[q.Table]++
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	var out []remote.Row
	for _, row := range s.tables[q.Table] {
		if matchesEq(row, q.Filters) {
			out = append(out, row)
		}
	}
	return out, nil
}

func matchesEq(row remote.Row, filters []remote.Filter) bool {
	for _, f := range filters {
		if f.Op != remote.OpEq {
			continue
		}
		if fmt.Sprint(row[f.Column]) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}

// Insert implements remote.DataService.
func (s *Service) Insert(_ context.Context, table string, row remote.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserts[table] = append(s.inserts[table], row)
	return nil
}

// Subscribe implements remote.DataService.
func (s *Service) Subscribe(_ context.Context, spec remote.ChangeSpec, handler remote.ChangeHandler) (remote.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subErrs) > 0 {
		err := s.subErrs[0]
		s.subErrs = s.subErrs[1:]
		return nil, err
	}
	s.nextID++
	s.opened++
	sub := &subscription{id: s.nextID, spec: spec, handler: handler, svc: s}
	s.subs[sub.id] = sub
	return sub, nil
}

// Close implements remote.DataService.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = make(map[int]*subscription)
	return nil
}

// Emit delivers change to every open subscription whose spec matches, and
// returns how many handlers ran.
func (s *Service) Emit(change remote.Change) int {
	s.mu.Lock()
	var targets []*subscription
	for _, sub := range s.subs {
		if sub.spec.Matches(change) {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range targets {
		sub.handler(change)
	}
	return len(targets)
}

// ActiveSubscriptions counts open subscriptions.
func (s *Service) ActiveSubscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// OpenedSubscriptions counts every successful Subscribe call.
func (s *Service) OpenedSubscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// Queries counts Query calls against table.
func (s *Service) Queries(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[table]
}

// Inserted returns the rows inserted into table.
func (s *Service) Inserted(table string) []remote.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]remote.Row(nil), s.inserts[table]...)
}

type subscription struct {
	id      int
	spec    remote.ChangeSpec
	handler remote.ChangeHandler
	svc     *Service
}

func (sub *subscription) Close() error {
	sub.svc.mu.Lock()
	defer sub.svc.mu.Unlock()
	delete(sub.svc.subs, sub.id)
	return nil
}
