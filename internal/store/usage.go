package store

import (
	"context"
	"fmt"

	"github.com/lorekeep/skillforge/internal/skill"
)

// RecordUsage increments a skill's usage counters and appends a usage log
// row. The stored success_rate is always derived from the counters, never
// written directly.
func (s *Store) RecordUsage(ctx context.Context, id string, success bool) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE skills SET
			usage_count = usage_count + 1,
			success_count = success_count + CASE WHEN $2 THEN 1 ELSE 0 END,
			updated_at = NOW()
		WHERE id = $1`, id, success)
	if err != nil {
		return fmt.Errorf("record usage %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return skill.ErrNotFound
	}

	if _, err := s.db.Exec(ctx,
		`INSERT INTO skill_usage (skill_id, success) VALUES ($1, $2)`,
		id, success); err != nil {
		return fmt.Errorf("log usage %s: %w", id, err)
	}
	return nil
}

// UsageStats summarizes recorded invocations of one skill.
type UsageStats struct {
	SkillID      string  `json:"skill_id"`
	UsageCount   int     `json:"usage_count"`
	SuccessCount int     `json:"success_count"`
	SuccessRate  float64 `json:"success_rate"`
}

// GetUsageStats returns the aggregated usage counters for a skill.
func (s *Store) GetUsageStats(ctx context.Context, id string) (*UsageStats, error) {
	row := s.db.QueryRow(ctx, `
		SELECT usage_count, success_count,
		       COALESCE(success_count::float8 / NULLIF(usage_count, 0), 0)
		FROM skills WHERE id = $1`, id)

	stats := UsageStats{SkillID: id}
	if err := row.Scan(&stats.UsageCount, &stats.SuccessCount, &stats.SuccessRate); err != nil {
		return nil, fmt.Errorf("usage stats %s: %w", id, err)
	}
	return &stats, nil
}
