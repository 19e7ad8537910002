// Package session implements the per-connection lifecycle: the state
// machine from transport open through join to steady-state message
// handling, and the cleanup that always runs on close.
package session

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/lingocast/lingocast/internal/pipeline"
	"github.com/lingocast/lingocast/internal/protocol"
	"github.com/lingocast/lingocast/internal/registry"
	"github.com/lingocast/lingocast/internal/storage"
)

type State int

const (
	StateConnecting State = iota
	StateEstablished
	StateJoined
	StateClosed
)

type EventStore interface {
	GetEvent(id int64) (storage.Event, error)
	ListRecentTranslations(eventID int64, limit int) ([]storage.Translation, error)
}

type Directory interface {
	Join(eventID int64, sessionID, language string, audioEnabled bool, role registry.Role, conn registry.Sender) registry.Entry
	Remove(eventID int64, sessionID string, conn registry.Sender)
	UpdateLanguage(eventID int64, sessionID, language string)
	UpdateAudio(eventID int64, sessionID string, enabled bool)
}

type SegmentPipeline interface {
	Process(ctx context.Context, eventID int64, audio []byte, submitter registry.Sender) (pipeline.Result, error)
}

// Manager holds the shared collaborators and mints one Client per
// websocket connection.
type Manager struct {
	store       EventStore
	directory   Directory
	pipeline    SegmentPipeline
	recentLimit int
}

func NewManager(store EventStore, directory Directory, segments SegmentPipeline, recentLimit int) *Manager {
	if recentLimit <= 0 {
		recentLimit = 10
	}

	return &Manager{
		store:       store,
		directory:   directory,
		pipeline:    segments,
		recentLimit: recentLimit,
	}
}

// Client is the state machine for one connection. It is driven entirely by
// the connection's single read loop, so its fields need no locking.
type Client struct {
	m    *Manager
	conn registry.Sender

	state       State
	eventID     int64
	sessionID   string
	isOrganizer bool
}

func (m *Manager) NewClient(conn registry.Sender) *Client {
	return &Client{m: m, conn: conn, state: StateConnecting}
}

// Establish acknowledges the freshly opened transport.
func (c *Client) Establish() {
	if c.state != StateConnecting {
		return
	}
	_ = c.conn.Send(protocol.NewConnectionEstablished())
	c.state = StateEstablished
}

func (c *Client) State() State {
	return c.state
}

// HandleMessage dispatches one inbound frame. Malformed or unexpected
// messages get an error reply and leave the state untouched; the read loop
// keeps running.
func (c *Client) HandleMessage(ctx context.Context, data []byte) {
	if c.state == StateClosed {
		return
	}

	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		_ = c.conn.Send(protocol.NewError("invalid message", err.Error()))
		return
	}

	switch env.Type {
	case protocol.TypeJoin:
		c.handleJoin(data)
	case protocol.TypeUpdateLanguage:
		c.handleUpdateLanguage(data)
	case protocol.TypeToggleAudio:
		c.handleToggleAudio(data)
	case protocol.TypeAudioData:
		c.handleAudioData(ctx, data)
	default:
		log.Warn().Str("module", "session").Str("type", env.Type).Msg("unknown message type")
		_ = c.conn.Send(protocol.NewError("unknown message type", env.Type))
	}
}

// Close tears the connection down and no further messages are processed.
// The registry removal carries this client's transport, so a connection that
// was superseded by a rejoin cannot evict its replacement's entry on the way
// out. Safe to call more than once.
func (c *Client) Close() {
	if c.state == StateClosed {
		return
	}
	if c.state == StateJoined {
		c.m.directory.Remove(c.eventID, c.sessionID, c.conn)
	}
	c.state = StateClosed
}

func (c *Client) handleJoin(data []byte) {
	if c.state == StateJoined {
		_ = c.conn.Send(protocol.NewError("already joined", ""))
		return
	}
	if c.state != StateEstablished {
		_ = c.conn.Send(protocol.NewError("connection not established", ""))
		return
	}

	var req protocol.JoinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		_ = c.conn.Send(protocol.NewError("invalid join message", err.Error()))
		return
	}
	if req.EventID <= 0 {
		_ = c.conn.Send(protocol.NewError("event id is required", ""))
		return
	}

	event, err := c.m.store.GetEvent(req.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = c.conn.Send(protocol.NewError("event not found", ""))
		} else {
			log.Error().Err(err).Str("module", "session").Int64("event", req.EventID).Msg("event lookup failed")
			_ = c.conn.Send(protocol.NewError("failed to load event", err.Error()))
		}
		return
	}

	language := req.Language
	if language == "" {
		language = event.SourceLanguage
	}

	// The organizer role is taken straight from the client-supplied flag.
	// There is no authentication behind it; see DESIGN.md.
	role := registry.RoleParticipant
	if req.IsOrganizer {
		role = registry.RoleOrganizer
	}

	entry := c.m.directory.Join(req.EventID, req.SessionID, language, req.EnableAudio, role, c.conn)
	c.state = StateJoined
	c.eventID = entry.EventID
	c.sessionID = entry.SessionID
	c.isOrganizer = role == registry.RoleOrganizer

	_ = c.conn.Send(protocol.NewEventInfo(event))

	recent, err := c.m.store.ListRecentTranslations(event.ID, c.m.recentLimit)
	if err != nil {
		log.Error().Err(err).Str("module", "session").Int64("event", event.ID).Msg("recent translations lookup failed")
		recent = nil
	}
	// The store returns newest first; push chronologically.
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	_ = c.conn.Send(protocol.NewRecentTranslations(recent))

	_ = c.conn.Send(protocol.NewSessionJoined(entry.SessionID, entry.EventID, entry.Language, c.isOrganizer))

	log.Info().Str("module", "session").Int64("event", event.ID).Str("session", entry.SessionID).Str("language", entry.Language).Str("role", string(role)).Msg("joined")
}

func (c *Client) handleUpdateLanguage(data []byte) {
	if c.state != StateJoined {
		_ = c.conn.Send(protocol.NewError("join an event first", ""))
		return
	}

	var req protocol.UpdateLanguageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		_ = c.conn.Send(protocol.NewError("invalid update_language message", err.Error()))
		return
	}
	if req.Language == "" {
		_ = c.conn.Send(protocol.NewError("language is required", ""))
		return
	}

	c.m.directory.UpdateLanguage(c.eventID, c.sessionID, req.Language)
}

func (c *Client) handleToggleAudio(data []byte) {
	if c.state != StateJoined {
		_ = c.conn.Send(protocol.NewError("join an event first", ""))
		return
	}

	var req protocol.ToggleAudioRequest
	if err := json.Unmarshal(data, &req); err != nil {
		_ = c.conn.Send(protocol.NewError("invalid toggle_audio message", err.Error()))
		return
	}

	c.m.directory.UpdateAudio(c.eventID, c.sessionID, req.EnableAudio)
}

// handleAudioData runs the segment pipeline synchronously, so a second
// segment from the same organizer queues behind the first in this
// connection's read loop instead of overlapping it.
func (c *Client) handleAudioData(ctx context.Context, data []byte) {
	if c.state != StateJoined {
		_ = c.conn.Send(protocol.NewError("join an event first", ""))
		return
	}
	if !c.isOrganizer {
		_ = c.conn.Send(protocol.NewError("only the organizer can submit audio", ""))
		return
	}

	var req protocol.AudioDataRequest
	if err := json.Unmarshal(data, &req); err != nil {
		_ = c.conn.Send(protocol.NewError("invalid audio_data message", err.Error()))
		return
	}
	if req.EventID != 0 && req.EventID != c.eventID {
		_ = c.conn.Send(protocol.NewError("event mismatch", ""))
		return
	}

	audio, err := base64.StdEncoding.DecodeString(req.AudioBase64)
	if err != nil {
		_ = c.conn.Send(protocol.NewError("invalid audio payload", err.Error()))
		return
	}

	if _, err := c.m.pipeline.Process(ctx, c.eventID, audio, c.conn); err != nil {
		log.Error().Err(err).Str("module", "session").Int64("event", c.eventID).Msg("segment failed")
	}
}
