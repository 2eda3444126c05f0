package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lorekeep/skillforge/internal/skill"
)

// InsertSkill stores a new skill record.
func (s *Store) InsertSkill(ctx context.Context, sk *skill.Skill) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO skills (id, name, description, tags, content, version,
			token_count_layer1, token_count_layer2, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		sk.ID, sk.Name, sk.Description, sk.Tags, sk.Content, sk.Version,
		sk.TokenCountLayer1, sk.TokenCountLayer2, sk.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert skill %s: %w", sk.ID, err)
	}
	return nil
}

// GetSkill retrieves a full skill record, content included.
func (s *Store) GetSkill(ctx context.Context, id string) (*skill.Skill, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, description, tags, content, version,
		       token_count_layer1, token_count_layer2, usage_count,
		       COALESCE(success_count::float8 / NULLIF(usage_count, 0), 0),
		       created_at, deprecated_at
		FROM skills WHERE id = $1`, id)

	var sk skill.Skill
	err := row.Scan(
		&sk.ID, &sk.Name, &sk.Description, &sk.Tags, &sk.Content, &sk.Version,
		&sk.TokenCountLayer1, &sk.TokenCountLayer2, &sk.UsageCount,
		&sk.SuccessRate, &sk.CreatedAt, &sk.DeprecatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, skill.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get skill %s: %w", id, err)
	}
	return &sk, nil
}

// ListSkills returns catalog metadata, newest first. Deprecated skills are
// excluded unless requested; they are what the matcher snapshots on every
// query.
func (s *Store) ListSkills(ctx context.Context, includeDeprecated bool) ([]*skill.Metadata, error) {
	query := `
		SELECT id, name, description, tags,
		       token_count_layer1, token_count_layer2, usage_count,
		       COALESCE(success_count::float8 / NULLIF(usage_count, 0), 0),
		       created_at, deprecated_at
		FROM skills`
	if !includeDeprecated {
		query += ` WHERE deprecated_at IS NULL`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	defer rows.Close()

	var out []*skill.Metadata
	for rows.Next() {
		var md skill.Metadata
		if err := rows.Scan(
			&md.ID, &md.Name, &md.Description, &md.Tags,
			&md.TokenCountLayer1, &md.TokenCountLayer2, &md.UsageCount,
			&md.SuccessRate, &md.CreatedAt, &md.DeprecatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		out = append(out, &md)
	}
	return out, rows.Err()
}

// UpdateSkill overwrites a skill's mutable fields.
func (s *Store) UpdateSkill(ctx context.Context, sk *skill.Skill) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE skills SET
			name = $2, description = $3, tags = $4, content = $5, version = $6,
			token_count_layer1 = $7, token_count_layer2 = $8, updated_at = NOW()
		WHERE id = $1`,
		sk.ID, sk.Name, sk.Description, sk.Tags, sk.Content, sk.Version,
		sk.TokenCountLayer1, sk.TokenCountLayer2,
	)
	if err != nil {
		return fmt.Errorf("update skill %s: %w", sk.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return skill.ErrNotFound
	}
	return nil
}

// DeprecateSkill marks a skill inactive at the given time.
func (s *Store) DeprecateSkill(ctx context.Context, id string, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE skills SET deprecated_at = $2, updated_at = NOW() WHERE id = $1 AND deprecated_at IS NULL`,
		id, at)
	if err != nil {
		return fmt.Errorf("deprecate skill %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return skill.ErrNotFound
	}
	return nil
}
