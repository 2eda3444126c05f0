// Package service is the skill-management layer between the transports and
// the matching engine. It owns the pattern the engine requires: fetch a
// consistent snapshot of the catalog, then hand it to the pure scoring
// functions along with the caller's text.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lorekeep/skillforge/internal/matching"
	"github.com/lorekeep/skillforge/internal/skill"
	"github.com/lorekeep/skillforge/internal/tokens"
)

// Repository is the storage contract the service depends on.
type Repository interface {
	InsertSkill(ctx context.Context, s *skill.Skill) error
	GetSkill(ctx context.Context, id string) (*skill.Skill, error)
	ListSkills(ctx context.Context, includeDeprecated bool) ([]*skill.Metadata, error)
	UpdateSkill(ctx context.Context, s *skill.Skill) error
	DeprecateSkill(ctx context.Context, id string, at time.Time) error
	RecordUsage(ctx context.Context, id string, success bool) error
	SaveVersion(ctx context.Context, s *skill.Skill) error
}

// Publisher delivers skill lifecycle events to one outbound surface. A
// failed publish is logged, never propagated: the catalog write already
// happened and stays authoritative.
type Publisher interface {
	Publish(ctx context.Context, ev skill.Event) error
}

// ConflictError reports that a candidate skill overlaps existing ones too
// closely to be created without force.
type ConflictError struct {
	Conflicts []matching.Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("skill overlaps %d existing skill(s)", len(e.Conflicts))
}

// Service wires the repository, the matching engine, and the outbound
// event surfaces together.
type Service struct {
	repo       Repository
	publishers []Publisher
	logger     *zap.Logger
}

// New creates a Service. Publishers are optional; pass none to run the
// catalog without outbound notifications.
func New(repo Repository, logger *zap.Logger, publishers ...Publisher) *Service {
	return &Service{repo: repo, publishers: publishers, logger: logger}
}

// CreateResult is the outcome of a successful skill creation.
type CreateResult struct {
	Skill      *skill.Skill                 `json:"skill"`
	Disclosure tokens.DisclosureCheck       `json:"disclosure"`
	Analysis   matching.DescriptionAnalysis `json:"analysis"`
}

// CreateSkill validates a draft, checks it against the active catalog for
// semantic overlap, and stores it. Unless force is set, any conflict at the
// default overlap threshold aborts the creation with a *ConflictError so
// the caller can surface the near-duplicates.
func (s *Service) CreateSkill(ctx context.Context, draft *skill.Draft, force bool) (*CreateResult, error) {
	if err := skill.ValidateDraft(draft); err != nil {
		return nil, err
	}

	snapshot, err := s.repo.ListSkills(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("snapshot catalog: %w", err)
	}
	conflicts := matching.DetectConflicts(draft, snapshot, matching.DefaultOverlapThreshold)
	if len(conflicts) > 0 && !force {
		return nil, &ConflictError{Conflicts: conflicts}
	}

	now := time.Now().UTC()
	content, err := skill.RenderDocument(draft, now)
	if err != nil {
		return nil, err
	}

	sk := &skill.Skill{
		Metadata: skill.Metadata{
			ID:          uuid.NewString(),
			Name:        draft.Name,
			Description: draft.Description,
			Tags:        draft.Tags,
			CreatedAt:   now,
		},
		Content: content,
		Version: 1,
	}
	sk.TokenCountLayer1 = tokens.CountLayer1(sk.Name, sk.Description)
	sk.TokenCountLayer2 = tokens.CountLayer2(sk.Content)

	if err := s.repo.InsertSkill(ctx, sk); err != nil {
		return nil, fmt.Errorf("insert skill: %w", err)
	}
	if err := s.repo.SaveVersion(ctx, sk); err != nil {
		s.logger.Warn("version snapshot failed", zap.String("skill", sk.ID), zap.Error(err))
	}

	disclosure := tokens.CheckProgressiveDisclosure(sk.TokenCountLayer1, sk.TokenCountLayer2)
	for _, w := range disclosure.Warnings {
		s.logger.Warn("skill over token budget", zap.String("skill", sk.ID), zap.String("warning", w))
	}

	s.publish(ctx, skill.Event{
		Type: skill.EventCreated, SkillID: sk.ID, SkillName: sk.Name,
		Version: sk.Version, Timestamp: now,
	})
	s.logger.Info("skill created",
		zap.String("id", sk.ID),
		zap.String("name", sk.Name),
		zap.Int("layer1_tokens", sk.TokenCountLayer1),
		zap.Int("layer2_tokens", sk.TokenCountLayer2),
		zap.Bool("forced", force && len(conflicts) > 0))

	return &CreateResult{
		Skill:      sk,
		Disclosure: disclosure,
		Analysis:   matching.AnalyzeDescription(sk.Description, nil),
	}, nil
}

// UpdateSkill snapshots the current version, applies the draft fields, and
// bumps the version counter.
func (s *Service) UpdateSkill(ctx context.Context, id string, draft *skill.Draft) (*skill.Skill, error) {
	if err := skill.ValidateDraft(draft); err != nil {
		return nil, err
	}
	sk, err := s.repo.GetSkill(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveVersion(ctx, sk); err != nil {
		return nil, fmt.Errorf("snapshot version %d: %w", sk.Version, err)
	}

	content, err := skill.RenderDocument(draft, sk.CreatedAt)
	if err != nil {
		return nil, err
	}
	sk.Name = draft.Name
	sk.Description = draft.Description
	sk.Tags = draft.Tags
	sk.Content = content
	sk.Version++
	sk.TokenCountLayer1 = tokens.CountLayer1(sk.Name, sk.Description)
	sk.TokenCountLayer2 = tokens.CountLayer2(sk.Content)

	if err := s.repo.UpdateSkill(ctx, sk); err != nil {
		return nil, fmt.Errorf("update skill %s: %w", id, err)
	}

	s.publish(ctx, skill.Event{
		Type: skill.EventUpdated, SkillID: sk.ID, SkillName: sk.Name,
		Version: sk.Version, Timestamp: time.Now().UTC(),
	})
	s.logger.Info("skill updated", zap.String("id", sk.ID), zap.Int("version", sk.Version))
	return sk, nil
}

// GetSkill returns the full skill record, layer-2 content included.
func (s *Service) GetSkill(ctx context.Context, id string) (*skill.Skill, error) {
	return s.repo.GetSkill(ctx, id)
}

// ListSkills returns catalog metadata, optionally including deprecated
// entries.
func (s *Service) ListSkills(ctx context.Context, includeDeprecated bool) ([]*skill.Metadata, error) {
	return s.repo.ListSkills(ctx, includeDeprecated)
}

// DeprecateSkill marks a skill inactive. Deprecated skills stay readable
// but never match.
func (s *Service) DeprecateSkill(ctx context.Context, id string) error {
	sk, err := s.repo.GetSkill(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := s.repo.DeprecateSkill(ctx, id, now); err != nil {
		return fmt.Errorf("deprecate skill %s: %w", id, err)
	}
	s.publish(ctx, skill.Event{
		Type: skill.EventDeprecated, SkillID: sk.ID, SkillName: sk.Name,
		Version: sk.Version, Timestamp: now,
	})
	s.logger.Info("skill deprecated", zap.String("id", id), zap.String("name", sk.Name))
	return nil
}

// RecordUsage counts one invocation of a skill and whether it succeeded;
// the stored success rate is derived from the two counters.
func (s *Service) RecordUsage(ctx context.Context, id string, success bool) error {
	return s.repo.RecordUsage(ctx, id, success)
}

// MatchTask scores a task description against the active catalog snapshot.
func (s *Service) MatchTask(ctx context.Context, task string, minConfidence float64) ([]matching.Match, error) {
	if err := skill.ValidateTask(task); err != nil {
		return nil, err
	}
	snapshot, err := s.repo.ListSkills(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("snapshot catalog: %w", err)
	}
	matches := matching.MatchSkills(task, snapshot, minConfidence)
	s.logger.Debug("task matched",
		zap.Int("catalog", len(snapshot)),
		zap.Int("matches", len(matches)),
		zap.Float64("min_confidence", minConfidence))
	return matches, nil
}

// CheckConflicts runs the overlap detector for a candidate skill without
// creating anything.
func (s *Service) CheckConflicts(ctx context.Context, draft *skill.Draft, threshold float64) ([]matching.Conflict, error) {
	snapshot, err := s.repo.ListSkills(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("snapshot catalog: %w", err)
	}
	return matching.DetectConflicts(draft, snapshot, threshold), nil
}

// AnalyzeDescription proxies the pure description analyzer.
func (s *Service) AnalyzeDescription(description string, intendedTriggers []string) matching.DescriptionAnalysis {
	return matching.AnalyzeDescription(description, intendedTriggers)
}

func (s *Service) publish(ctx context.Context, ev skill.Event) {
	for _, p := range s.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			s.logger.Warn("event publish failed",
				zap.String("type", string(ev.Type)),
				zap.String("skill", ev.SkillID),
				zap.Error(err))
		}
	}
}
