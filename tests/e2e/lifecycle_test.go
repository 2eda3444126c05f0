package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lorekeep/skillforge/internal/matching"
	"github.com/lorekeep/skillforge/internal/service"
	"github.com/lorekeep/skillforge/internal/signal"
	"github.com/lorekeep/skillforge/internal/skill"
	"github.com/lorekeep/skillforge/internal/store"
)

func TestMain(m *testing.M) {
	ctx := context.Background()
	testLogger, _ = zap.NewDevelopment()

	// 1. Start PostgreSQL
	pgDSN, pgCleanup, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres: %v\n", err)
		os.Exit(1)
	}
	defer pgCleanup()

	testStore, err = store.New(pgDSN, testLogger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store: %v\n", err)
		os.Exit(1)
	}
	defer testStore.Close()

	// Run migrations
	if err := testStore.Migrate(ctx, "../../migrations"); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	// 2. Start Redis
	redisURL, redisCleanup, err := startRedis(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer redisCleanup()
	testRedisURL = redisURL

	os.Exit(m.Run())
}

func gitDraft(name string) *skill.Draft {
	return &skill.Draft{
		Name:        name,
		Description: "Manage git repositories, commits, branches and merge conflicts",
		Tags:        []string{"git", "workflow"},
		Steps:       []string{"Create a branch", "Commit changes", "Merge"},
	}
}

func TestSkillPersistence(t *testing.T) {
	ctx := context.Background()
	svc := service.New(testStore, testLogger)

	created, err := svc.CreateSkill(ctx, gitDraft("git-workflow"), false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := created.Skill.ID

	t.Run("RoundTrip", func(t *testing.T) {
		got, err := testStore.GetSkill(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Name != "git-workflow" || got.Version != 1 {
			t.Errorf("got name=%q version=%d", got.Name, got.Version)
		}
		if got.Content == "" {
			t.Error("expected rendered markdown content")
		}
		if got.TokenCountLayer1 <= 0 || got.TokenCountLayer2 <= 0 {
			t.Errorf("token counts not persisted: %d / %d", got.TokenCountLayer1, got.TokenCountLayer2)
		}
	})

	t.Run("ConflictOnDuplicate", func(t *testing.T) {
		_, err := svc.CreateSkill(ctx, gitDraft("git-workflow"), false)
		if err == nil {
			t.Fatal("expected conflict error for duplicate creation")
		}
	})

	t.Run("VersionHistory", func(t *testing.T) {
		draft := gitDraft("git-workflow")
		draft.Description = "Manage git repositories, branches, rebases and merge conflicts"
		updated, err := svc.UpdateSkill(ctx, id, draft)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Version != 2 {
			t.Errorf("version = %d, want 2", updated.Version)
		}
		versions, err := testStore.ListVersions(ctx, id)
		if err != nil {
			t.Fatalf("list versions: %v", err)
		}
		if len(versions) != 2 {
			t.Fatalf("expected 2 archived versions, got %d", len(versions))
		}
		if versions[0].Version != 1 || versions[1].Version != 2 {
			t.Errorf("version order: %d, %d", versions[0].Version, versions[1].Version)
		}
	})

	t.Run("UsageStats", func(t *testing.T) {
		for _, success := range []bool{true, true, false} {
			if err := svc.RecordUsage(ctx, id, success); err != nil {
				t.Fatalf("record usage: %v", err)
			}
		}
		stats, err := testStore.GetUsageStats(ctx, id)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if stats.UsageCount != 3 || stats.SuccessCount != 2 {
			t.Errorf("counters = %d/%d, want 3/2", stats.UsageCount, stats.SuccessCount)
		}
		if stats.SuccessRate < 0.66 || stats.SuccessRate > 0.67 {
			t.Errorf("success rate = %v, want ~0.667", stats.SuccessRate)
		}
	})

	t.Run("MatchAgainstDB", func(t *testing.T) {
		matches, err := svc.MatchTask(ctx, "resolve a merge conflict in my git branches", matching.DefaultMinConfidence)
		if err != nil {
			t.Fatalf("match: %v", err)
		}
		found := false
		for _, m := range matches {
			if m.SkillID == id {
				found = true
			}
		}
		if !found {
			t.Errorf("expected skill %s among matches, got %+v", id, matches)
		}
	})

	t.Run("Deprecation", func(t *testing.T) {
		if err := svc.DeprecateSkill(ctx, id); err != nil {
			t.Fatalf("deprecate: %v", err)
		}
		active, err := svc.ListSkills(ctx, false)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, md := range active {
			if md.ID == id {
				t.Error("deprecated skill still listed as active")
			}
		}
		all, err := svc.ListSkills(ctx, true)
		if err != nil {
			t.Fatalf("list all: %v", err)
		}
		found := false
		for _, md := range all {
			if md.ID == id && md.DeprecatedAt != nil {
				found = true
			}
		}
		if !found {
			t.Error("deprecated skill missing from full listing")
		}
	})
}

func TestLifecycleEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bus, err := signal.NewBus(testRedisURL, signal.Config{MaxStream: 128}, testLogger)
	if err != nil {
		t.Fatalf("bus: %v", err)
	}
	defer bus.Close()

	events := bus.Subscribe(ctx, signal.DefaultChannel)
	// Let the subscriber register before the first publish.
	time.Sleep(500 * time.Millisecond)

	svc := service.New(testStore, testLogger, bus)
	created, err := svc.CreateSkill(ctx, &skill.Draft{
		Name:        "release-notes",
		Description: "Draft release notes from merged changelog entries",
		Tags:        []string{"release"},
	}, false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Type != skill.EventCreated {
			t.Errorf("event type = %q, want %q", ev.Type, skill.EventCreated)
		}
		if ev.SkillID != created.Skill.ID {
			t.Errorf("event skill = %q, want %q", ev.SkillID, created.Skill.ID)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no skill_created event received")
	}

	if err := svc.DeprecateSkill(ctx, created.Skill.ID); err != nil {
		t.Fatalf("deprecate: %v", err)
	}
	select {
	case ev := <-events:
		if ev.Type != skill.EventDeprecated {
			t.Errorf("event type = %q, want %q", ev.Type, skill.EventDeprecated)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no skill_deprecated event received")
	}
}
