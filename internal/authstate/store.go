package authstate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/FACorreiaa/go-couple-connect/internal/types"
)

// SessionSource supplies the session that exists before the store
// attaches, if any. Nil-safe: a nil source means "start signed out".
type SessionSource interface {
	CurrentSession(ctx context.Context) (*types.AuthUser, error)
}

// RoleSource answers role queries for the cached identity.
type RoleSource interface {
	RolesFor(ctx context.Context, userID string) ([]string, error)
}

type subscriber struct {
	id int
	fn func(*types.AuthUser)
}

// Store caches the current identity and fans session changes out to
// subscribers. Consumers never talk to the auth backend for "who am I"
// checks; they read the store.
type Store struct {
	logger  *slog.Logger
	bus     *Bus
	session SessionSource
	roles   RoleSource

	mu          sync.Mutex
	initialized bool
	user        *types.AuthUser
	cachedRoles []string
	subs        []subscriber
	nextSubID   int
	detach      func()
}

// NewStore wires a store to its event bus. session and roles may be
// nil when the caller does not need initial-session loading or role
// checks.
func NewStore(bus *Bus, session SessionSource, roles RoleSource, logger *slog.Logger) *Store {
	return &Store{
		logger:  logger,
		bus:     bus,
		session: session,
		roles:   roles,
	}
}

// Initialize loads the current session once, attaches to the bus and
// replays the resulting state to every subscriber already registered.
// Calling it again is a no-op.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return nil
	}
	s.initialized = true
	s.mu.Unlock()

	var initial *types.AuthUser
	if s.session != nil {
		user, err := s.session.CurrentSession(ctx)
		if err != nil {
			s.logger.Warn("Initial session load failed, starting signed out", slog.Any("error", err))
		} else {
			initial = user
		}
	}

	if s.bus != nil {
		detach := s.bus.Subscribe(s.handleEvent)
		s.mu.Lock()
		s.detach = detach
		s.mu.Unlock()
	}

	s.setUser(initial)
	return nil
}

func (s *Store) handleEvent(evt types.SessionEvent) {
	switch evt.Kind {
	case types.SessionSignedOut:
		s.setUser(nil)
	default:
		s.setUser(evt.User)
	}
}

// setUser swaps the identity, drops the stale role cache and notifies
// subscribers in registration order. The identity field is updated
// before any callback runs, so callbacks that read back from the store
// see the new state.
func (s *Store) setUser(user *types.AuthUser) {
	s.mu.Lock()
	s.user = user
	s.cachedRoles = nil
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(user)
	}
}

// Current returns the cached identity, nil when signed out.
func (s *Store) Current() *types.AuthUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// IsAuthenticated reports whether an identity is cached.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// OnChange registers a callback and immediately replays the current
// state to it. The returned handle unsubscribes.
func (s *Store) OnChange(fn func(*types.AuthUser)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	current := s.user
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// HasRole reports whether the cached identity carries the role. Always
// false when signed out. The role set is fetched lazily and re-queried
// whenever the cache is empty, so a grant that lands after sign-in is
// picked up on the next check.
func (s *Store) HasRole(ctx context.Context, role string) (bool, error) {
	s.mu.Lock()
	user := s.user
	cached := s.cachedRoles
	s.mu.Unlock()

	if user == nil {
		return false, nil
	}

	if len(cached) == 0 {
		if s.roles == nil {
			return false, nil
		}
		roles, err := s.roles.RolesFor(ctx, user.ID)
		if err != nil {
			return false, err
		}
		s.mu.Lock()
		// Only keep the result if the identity did not change underneath.
		if s.user != nil && s.user.ID == user.ID {
			s.cachedRoles = roles
		}
		s.mu.Unlock()
		cached = roles
	}

	for _, r := range cached {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

// Close detaches from the bus. Subscribers stay registered but stop
// receiving events.
func (s *Store) Close() {
	s.mu.Lock()
	detach := s.detach
	s.detach = nil
	s.mu.Unlock()

	if detach != nil {
		detach()
	}
}
