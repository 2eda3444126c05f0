package store

import (
	"context"
	"fmt"
	"time"

	"github.com/lorekeep/skillforge/internal/skill"
)

// Version is one archived revision of a skill.
type Version struct {
	SkillID     string    `json:"skill_id"`
	Version     int       `json:"version"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags,omitempty"`
	Content     string    `json:"content"`
	SavedAt     time.Time `json:"saved_at"`
}

// SaveVersion archives the given revision of a skill. Re-saving the same
// revision is a no-op rather than an error.
func (s *Store) SaveVersion(ctx context.Context, sk *skill.Skill) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO skill_versions (skill_id, version, name, description, tags, content)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (skill_id, version) DO NOTHING`,
		sk.ID, sk.Version, sk.Name, sk.Description, sk.Tags, sk.Content,
	)
	if err != nil {
		return fmt.Errorf("save version %d of %s: %w", sk.Version, sk.ID, err)
	}
	return nil
}

// ListVersions returns all archived revisions of a skill, oldest first.
func (s *Store) ListVersions(ctx context.Context, skillID string) ([]*Version, error) {
	rows, err := s.db.Query(ctx, `
		SELECT skill_id, version, name, description, tags, content, saved_at
		FROM skill_versions WHERE skill_id = $1 ORDER BY version`, skillID)
	if err != nil {
		return nil, fmt.Errorf("list versions %s: %w", skillID, err)
	}
	defer rows.Close()

	var out []*Version
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.SkillID, &v.Version, &v.Name, &v.Description,
			&v.Tags, &v.Content, &v.SavedAt); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}
