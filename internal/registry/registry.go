// Package registry tracks live connections grouped by event. It is the only
// shared mutable structure in the server; all mutation goes through the
// Registry's lock, and fan-out reads hand out point-in-time snapshots that
// tolerate staleness (sends check liveness at send time).
package registry

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lingocast/lingocast/internal/protocol"
)

type Role string

const (
	RoleOrganizer   Role = "organizer"
	RoleParticipant Role = "participant"
)

// Sender is the transport handle held for each connection. Send is
// fire-and-forget: implementations swallow writes to closed transports.
type Sender interface {
	Send(v any) error
	Close() error
}

type entry struct {
	sessionID    string
	language     string
	audioEnabled bool
	role         Role
	conn         Sender
}

// Entry is the join result returned to callers: the resolved session
// identity plus the immutable role.
type Entry struct {
	SessionID    string
	EventID      int64
	Language     string
	AudioEnabled bool
	Role         Role
}

// Target is a read-only fan-out snapshot of one connection.
type Target struct {
	SessionID    string
	AudioEnabled bool
	Conn         Sender
}

// Presence is the derived participant/organizer count for one event.
type Presence struct {
	Participants int
	Organizers   int
}

type Registry struct {
	mu     sync.RWMutex
	events map[int64][]*entry
}

func New() *Registry {
	return &Registry{events: make(map[int64][]*entry)}
}

// Join registers a connection for an event, generating a session ID when the
// client presents none. If the session is already registered its previous
// transport is closed best-effort and the entry replaced, so at most one
// live connection exists per (event, session). Presence is pushed to the
// whole group afterwards.
func (r *Registry) Join(eventID int64, sessionID, language string, audioEnabled bool, role Role, conn Sender) Entry {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	r.mu.Lock()
	var superseded Sender
	group := r.events[eventID]
	for i, e := range group {
		if e.sessionID == sessionID {
			superseded = e.conn
			group = append(group[:i], group[i+1:]...)
			break
		}
	}

	group = append(group, &entry{
		sessionID:    sessionID,
		language:     language,
		audioEnabled: audioEnabled,
		role:         role,
		conn:         conn,
	})
	r.events[eventID] = group

	presence, targets := r.presenceLocked(eventID)
	r.mu.Unlock()

	if superseded != nil {
		log.Info().Str("module", "registry").Int64("event", eventID).Str("session", sessionID).Msg("superseding previous connection")
		_ = superseded.Close()
	}

	pushPresence(presence, targets)

	return Entry{
		SessionID:    sessionID,
		EventID:      eventID,
		Language:     language,
		AudioEnabled: audioEnabled,
		Role:         role,
	}
}

// Remove drops the session's entry if it still belongs to the given
// transport, deleting the group once it is empty. The transport check keeps
// a superseded connection's late cleanup from evicting its replacement: by
// the time the old read loop unwinds, the session ID may already be bound to
// a new transport. Presence is pushed to the remaining members.
func (r *Registry) Remove(eventID int64, sessionID string, conn Sender) {
	r.mu.Lock()
	group, ok := r.events[eventID]
	if !ok {
		r.mu.Unlock()
		return
	}

	removed := false
	for i, e := range group {
		if e.sessionID == sessionID && e.conn == conn {
			group = append(group[:i], group[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		r.mu.Unlock()
		return
	}

	if len(group) == 0 {
		delete(r.events, eventID)
		r.mu.Unlock()
		return
	}

	r.events[eventID] = group
	presence, targets := r.presenceLocked(eventID)
	r.mu.Unlock()

	pushPresence(presence, targets)
}

// UpdateLanguage is a no-op when the session is not registered.
func (r *Registry) UpdateLanguage(eventID int64, sessionID, language string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.events[eventID] {
		if e.sessionID == sessionID {
			e.language = language
			return
		}
	}
}

// UpdateAudio is a no-op when the session is not registered.
func (r *Registry) UpdateAudio(eventID int64, sessionID string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.events[eventID] {
		if e.sessionID == sessionID {
			e.audioEnabled = enabled
			return
		}
	}
}

// Languages returns the distinct languages currently present for an event,
// in first-seen order.
func (r *Registry) Languages(eventID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	languages := make([]string, 0, 4)
	for _, e := range r.events[eventID] {
		if _, ok := seen[e.language]; ok {
			continue
		}
		seen[e.language] = struct{}{}
		languages = append(languages, e.language)
	}
	return languages
}

// ConnectionsForLanguage returns a snapshot of the connections registered
// for one language. The snapshot may go stale mid-fan-out; senders handle
// closed transports.
func (r *Registry) ConnectionsForLanguage(eventID int64, language string) []Target {
	r.mu.RLock()
	defer r.mu.RUnlock()

	targets := make([]Target, 0, 8)
	for _, e := range r.events[eventID] {
		if e.language != language {
			continue
		}
		targets = append(targets, Target{
			SessionID:    e.sessionID,
			AudioEnabled: e.audioEnabled,
			Conn:         e.conn,
		})
	}
	return targets
}

// Presence returns the current counts for an event without broadcasting.
func (r *Registry) Presence(eventID int64) Presence {
	r.mu.RLock()
	defer r.mu.RUnlock()

	presence, _ := r.presenceLocked(eventID)
	return presence
}

func (r *Registry) presenceLocked(eventID int64) (Presence, []Sender) {
	var presence Presence
	group := r.events[eventID]
	targets := make([]Sender, 0, len(group))
	for _, e := range group {
		if e.role == RoleOrganizer {
			presence.Organizers++
		} else {
			presence.Participants++
		}
		targets = append(targets, e.conn)
	}
	return presence, targets
}

func pushPresence(presence Presence, targets []Sender) {
	msg := protocol.NewParticipantCount(presence.Participants, presence.Organizers)
	for _, conn := range targets {
		_ = conn.Send(msg)
	}
}
