package store

import (
	"context"
	"sync"
	"time"

	"github.com/lorekeep/skillforge/internal/skill"
)

// Memory is an in-memory skill repository. The stdio tool server uses it
// when no database is configured; handler tests use it to run without
// Postgres.
type Memory struct {
	mu       sync.RWMutex
	skills   map[string]*skill.Skill
	versions map[string][]*skill.Skill
	success  map[string]int
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		skills:   make(map[string]*skill.Skill),
		versions: make(map[string][]*skill.Skill),
		success:  make(map[string]int),
	}
}

func (m *Memory) InsertSkill(_ context.Context, s *skill.Skill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.skills[s.ID] = &cp
	return nil
}

func (m *Memory) GetSkill(_ context.Context, id string) (*skill.Skill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.skills[id]
	if !ok {
		return nil, skill.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) ListSkills(_ context.Context, includeDeprecated bool) ([]*skill.Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*skill.Metadata
	for _, s := range m.skills {
		if !includeDeprecated && !s.Active() {
			continue
		}
		md := s.Metadata
		out = append(out, &md)
	}
	return out, nil
}

func (m *Memory) UpdateSkill(_ context.Context, s *skill.Skill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.skills[s.ID]; !ok {
		return skill.ErrNotFound
	}
	cp := *s
	m.skills[s.ID] = &cp
	return nil
}

func (m *Memory) DeprecateSkill(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.skills[id]
	if !ok {
		return skill.ErrNotFound
	}
	s.DeprecatedAt = &at
	return nil
}

func (m *Memory) RecordUsage(_ context.Context, id string, success bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.skills[id]
	if !ok {
		return skill.ErrNotFound
	}
	s.UsageCount++
	if success {
		m.success[id]++
	}
	s.SuccessRate = float64(m.success[id]) / float64(s.UsageCount)
	return nil
}

func (m *Memory) SaveVersion(_ context.Context, s *skill.Skill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.versions[s.ID] = append(m.versions[s.ID], &cp)
	return nil
}
