// Package protocol defines the websocket wire messages exchanged with
// clients. Inbound messages carry a "type" discriminant and are decoded in
// two steps: the envelope first, then the per-type payload.
package protocol

import "github.com/lingocast/lingocast/internal/storage"

// Inbound message types.
const (
	TypeJoin           = "join"
	TypeUpdateLanguage = "update_language"
	TypeToggleAudio    = "toggle_audio"
	TypeAudioData      = "audio_data"
)

// Outbound message types.
const (
	TypeConnectionEstablished = "connection_established"
	TypeSessionJoined         = "session_joined"
	TypeEventInfo             = "event_info"
	TypeRecentTranslations    = "recent_translations"
	TypeTranslation           = "translation"
	TypeAudioTranslation      = "audio_translation"
	TypeParticipantCount      = "participant_count"
	TypeProcessingStatus      = "processing_status"
	TypeError                 = "error"
)

// Segment processing statuses.
const (
	StatusProcessing  = "processing"
	StatusSkipped     = "skipped"
	StatusTranscribed = "transcribed"
	StatusComplete    = "complete"
)

type Envelope struct {
	Type string `json:"type"`
}

type JoinRequest struct {
	EventID     int64  `json:"eventId"`
	SessionID   string `json:"sessionId,omitempty"`
	Language    string `json:"language,omitempty"`
	EnableAudio bool   `json:"enableAudio,omitempty"`
	IsOrganizer bool   `json:"isOrganizer,omitempty"`
}

type UpdateLanguageRequest struct {
	Language string `json:"language"`
}

type ToggleAudioRequest struct {
	EnableAudio bool `json:"enableAudio"`
}

type AudioDataRequest struct {
	EventID     int64  `json:"eventId"`
	AudioBase64 string `json:"audioBase64"`
}

type ConnectionEstablished struct {
	Type string `json:"type"`
}

type SessionJoined struct {
	Type        string `json:"type"`
	SessionID   string `json:"sessionId"`
	EventID     int64  `json:"eventId"`
	Language    string `json:"language"`
	IsOrganizer bool   `json:"isOrganizer"`
}

type EventInfo struct {
	Type  string        `json:"type"`
	Event storage.Event `json:"event"`
}

type RecentTranslations struct {
	Type         string                `json:"type"`
	Translations []storage.Translation `json:"translations"`
}

type Translation struct {
	Type             string              `json:"type"`
	Translation      storage.Translation `json:"translation"`
	OriginalText     string              `json:"originalText"`
	OriginalLanguage string              `json:"originalLanguage"`
}

type AudioTranslation struct {
	Type        string `json:"type"`
	AudioBase64 string `json:"audioBase64"`
	Text        string `json:"text"`
}

type ParticipantCount struct {
	Type       string `json:"type"`
	Count      int    `json:"count"`
	Organizers int    `json:"organizers"`
}

type ProcessingStatus struct {
	Type      string `json:"type"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Text      string `json:"text,omitempty"`
	Attempted int    `json:"attempted,omitempty"`
	Succeeded int    `json:"succeeded,omitempty"`
	Failed    int    `json:"failed,omitempty"`
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func NewConnectionEstablished() ConnectionEstablished {
	return ConnectionEstablished{Type: TypeConnectionEstablished}
}

func NewSessionJoined(sessionID string, eventID int64, language string, isOrganizer bool) SessionJoined {
	return SessionJoined{
		Type:        TypeSessionJoined,
		SessionID:   sessionID,
		EventID:     eventID,
		Language:    language,
		IsOrganizer: isOrganizer,
	}
}

func NewEventInfo(ev storage.Event) EventInfo {
	return EventInfo{Type: TypeEventInfo, Event: ev}
}

func NewRecentTranslations(translations []storage.Translation) RecentTranslations {
	if translations == nil {
		translations = []storage.Translation{}
	}
	return RecentTranslations{Type: TypeRecentTranslations, Translations: translations}
}

func NewTranslation(tr storage.Translation, originalText, originalLanguage string) Translation {
	return Translation{
		Type:             TypeTranslation,
		Translation:      tr,
		OriginalText:     originalText,
		OriginalLanguage: originalLanguage,
	}
}

func NewAudioTranslation(audioBase64, text string) AudioTranslation {
	return AudioTranslation{Type: TypeAudioTranslation, AudioBase64: audioBase64, Text: text}
}

func NewParticipantCount(participants, organizers int) ParticipantCount {
	return ParticipantCount{Type: TypeParticipantCount, Count: participants, Organizers: organizers}
}

func NewProcessingStatus(status, message string) ProcessingStatus {
	return ProcessingStatus{Type: TypeProcessingStatus, Status: status, Message: message}
}

func NewCompletionStatus(attempted, succeeded, failed int, message string) ProcessingStatus {
	return ProcessingStatus{
		Type:      TypeProcessingStatus,
		Status:    StatusComplete,
		Message:   message,
		Attempted: attempted,
		Succeeded: succeeded,
		Failed:    failed,
	}
}

func NewError(message, details string) Error {
	return Error{Type: TypeError, Message: message, Details: details}
}
