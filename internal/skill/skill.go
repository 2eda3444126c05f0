package skill

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a skill ID does not exist in the catalog.
var ErrNotFound = errors.New("skill not found")

// Metadata is the layer-1 view of a skill: everything the matcher and the
// catalog listings need, without the full instruction body.
type Metadata struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Tags             []string   `json:"tags,omitempty"`
	TokenCountLayer1 int        `json:"token_count_layer1"`
	TokenCountLayer2 int        `json:"token_count_layer2"`
	UsageCount       int        `json:"usage_count"`
	SuccessRate      float64    `json:"success_rate"`
	CreatedAt        time.Time  `json:"created_at"`
	DeprecatedAt     *time.Time `json:"deprecated_at,omitempty"`
}

// Active reports whether the skill participates in matching.
func (m *Metadata) Active() bool {
	return m.DeprecatedAt == nil
}

// Skill is a full skill record: metadata plus the layer-2 content body.
type Skill struct {
	Metadata
	Content string `json:"content"`
	Version int    `json:"version"`
}

// Draft is a skill definition as submitted by a caller, before it has an
// identity or token counts. Content, when empty, is generated from the
// structured fields.
type Draft struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Tags          []string `json:"tags,omitempty"`
	Prerequisites []string `json:"prerequisites,omitempty"`
	Steps         []string `json:"steps,omitempty"`
	Examples      []string `json:"examples,omitempty"`
	Content       string   `json:"content,omitempty"`
}
