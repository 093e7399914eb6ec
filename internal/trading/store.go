package trading

import (
	"sync"

	"go.uber.org/zap"
)

// Listener observes every committed state change. Listeners run on the
// dispatching goroutine, in subscription order, and must not call Dispatch.
type Listener func(prev, next *State)

// Store owns the current State and applies actions one at a time.
type Store struct {
	logger *zap.Logger

	dispatchMu sync.Mutex
	stateMu    sync.RWMutex
	state      *State

	listenerMu sync.Mutex
	listeners  map[int]Listener
	order      []int
	nextID     int
}

// NewStore creates a store holding initial.
func NewStore(initial *State, logger *zap.Logger) *Store {
	return &Store{
		logger:    logger.Named("store"),
		state:     initial,
		listeners: make(map[int]Listener),
	}
}

// State returns the current snapshot. The returned value must be treated as read-only.
func (s *Store) State() *State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Dispatch reduces action against the current state and, if anything
// changed, commits the result and notifies listeners before returning.
func (s *Store) Dispatch(action Action) error {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	prev := s.State()
	next, err := Reduce(prev, action)
	if err != nil {
		s.logger.Info("Action rejected",
			zap.String("kind", action.Kind()),
			zap.String("reason", ReasonCode(err)),
			zap.Error(err))
		return err
	}
	if next == prev {
		return nil
	}

	s.stateMu.Lock()
	s.state = next
	s.stateMu.Unlock()

	s.logger.Debug("Action applied", zap.String("kind", action.Kind()))
	for _, l := range s.snapshotListeners() {
		l(prev, next)
	}
	return nil
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenerMu.Lock()
			defer s.listenerMu.Unlock()
			delete(s.listeners, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (s *Store) snapshotListeners() []Listener {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	ls := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		ls = append(ls, s.listeners[id])
	}
	return ls
}
