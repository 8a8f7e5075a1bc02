package player

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"jukebox/pkg/jobmgr"
	"jukebox/pkg/util"
)

// Registry is the process-wide guild → session map. Sessions register on
// creation and remove themselves on teardown; maintenance commands iterate a
// snapshot so self-removal mid-iteration is harmless.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	jobs     *jobmgr.Manager
	log      zerolog.Logger
}

func NewRegistry(log zerolog.Logger) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		log:      log.With().Str("component", "registry").Logger(),
	}
	r.jobs = jobmgr.NewManager(func(msg string) {
		r.log.Debug().Str("job", msg).Msg("session job")
	})
	return r
}

// GetOrCreate returns the guild's session, constructing one through factory
// when absent. The factory must establish the transport connection first: a
// connect failure returns an error and registers nothing.
func (r *Registry) GetOrCreate(guildID string, factory func() (*Session, error)) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[guildID]; ok {
		return s, nil
	}

	s, err := factory()
	if err != nil {
		return nil, err
	}
	s.onClose = r.Remove
	r.sessions[guildID] = s

	if err := s.Start(r.jobs); err != nil {
		delete(r.sessions, guildID)
		return nil, err
	}
	r.log.Info().Str("guild", guildID).Msg("session created")
	return s, nil
}

// Get returns the guild's session, or nil when none is active.
func (r *Registry) Get(guildID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[guildID]
}

// Remove deregisters a session. No-op when absent.
func (r *Registry) Remove(guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[guildID]; ok {
		delete(r.sessions, guildID)
		r.log.Info().Str("guild", guildID).Msg("session removed")
	}
}

// ForEach calls fn for every active session from a snapshot taken under the
// lock, so sessions destroying themselves concurrently cannot corrupt the
// iteration.
func (r *Registry) ForEach(fn func(*Session)) {
	for _, s := range r.snapshot() {
		fn(s)
	}
}

// GuildIDs lists active sessions in stable order.
func (r *Registry) GuildIDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// StopAll persists every non-empty queue and disconnects every session.
// Used for maintenance shutdowns and process termination.
func (r *Registry) StopAll(reason string) {
	sessions := r.snapshot()
	if len(sessions) == 0 {
		return
	}
	r.log.Info().Int("sessions", len(sessions)).Msg("stopping all sessions")
	_ = util.Parallel(sessions, 4, func(ctx context.Context, s *Session) error {
		s.SaveAndDisconnect(ctx, reason)
		return nil
	})
}
