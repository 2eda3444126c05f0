package skill

import "time"

// EventType categorizes skill lifecycle events.
type EventType string

const (
	EventCreated    EventType = "skill_created"
	EventUpdated    EventType = "skill_updated"
	EventDeprecated EventType = "skill_deprecated"
)

// Event notifies peer systems of a skill lifecycle change. It is published
// on the signal bus, pushed to websocket clients, and announced to chat
// channels.
type Event struct {
	Type      EventType `json:"type"`
	SkillID   string    `json:"skill_id"`
	SkillName string    `json:"skill_name"`
	Version   int       `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
