// Package notify announces skill lifecycle events to ops chat channels.
// It keeps the platform-adapter shape: a manager fans announcements out to
// whatever adapters are registered, and a missing platform is a
// configuration state, not an error.
package notify

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/lorekeep/skillforge/internal/skill"
)

// Adapter posts announcements to one chat platform.
type Adapter interface {
	Platform() string
	Announce(ctx context.Context, text string) error
	Close() error
}

// Gateway manages platform adapters and formats lifecycle events for chat.
type Gateway struct {
	adapters map[string]Adapter
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewGateway creates an empty notification gateway.
func NewGateway(logger *zap.Logger) *Gateway {
	return &Gateway{
		adapters: make(map[string]Adapter),
		logger:   logger,
	}
}

// Register adds an adapter.
func (g *Gateway) Register(a Adapter) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.adapters[a.Platform()] = a
	g.logger.Info("registered notify adapter", zap.String("platform", a.Platform()))
}

// Adapters returns the registered platform names.
func (g *Gateway) Adapters() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.adapters))
	for p := range g.adapters {
		names = append(names, p)
	}
	return names
}

// Publish formats a lifecycle event and announces it on every platform.
// Implements the service layer's Publisher contract.
func (g *Gateway) Publish(ctx context.Context, ev skill.Event) error {
	text := formatEvent(ev)

	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error
	for platform, a := range g.adapters {
		if err := a.Announce(ctx, text); err != nil {
			g.logger.Error("announce failed",
				zap.String("platform", platform), zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("announce failed on %d platform(s)", len(errs))
	}
	return nil
}

// Close shuts down all adapters.
func (g *Gateway) Close() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for platform, a := range g.adapters {
		if err := a.Close(); err != nil {
			g.logger.Error("adapter close failed",
				zap.String("platform", platform), zap.Error(err))
		}
	}
	return nil
}

func formatEvent(ev skill.Event) string {
	switch ev.Type {
	case skill.EventCreated:
		return fmt.Sprintf("New skill available: *%s* (v%d)", ev.SkillName, ev.Version)
	case skill.EventUpdated:
		return fmt.Sprintf("Skill updated: *%s* is now at v%d", ev.SkillName, ev.Version)
	case skill.EventDeprecated:
		return fmt.Sprintf("Skill deprecated: *%s* no longer matches new tasks", ev.SkillName)
	default:
		return fmt.Sprintf("Skill event %s: %s", ev.Type, ev.SkillName)
	}
}
