package highscore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alexbotov/highscore/internal/database"
	"github.com/alexbotov/highscore/internal/domain"
	"github.com/alexbotov/highscore/internal/testutil"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.HighscoreEvent
}

func (n *recordingNotifier) HighscoreUpdated(_ context.Context, event domain.HighscoreEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func setupTestService(t *testing.T, db *database.DB) (*Service, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	return New(db, Config{Team: domain.TeamName}, notifier), notifier
}

func TestGetBest(t *testing.T) {
	svc, _ := setupTestService(t, testutil.SetupTestDB(t))
	ctx := context.Background()

	t.Run("NoRecord", func(t *testing.T) {
		best, err := svc.GetBest(ctx, domain.TeamName)
		if err != nil {
			t.Fatalf("GetBest failed: %v", err)
		}
		if best != 0 {
			t.Errorf("Expected 0 for absent record, got %d", best)
		}
	})

	t.Run("OtherTeamUnaffected", func(t *testing.T) {
		if _, err := svc.SubmitScore(ctx, domain.TeamName, 10); err != nil {
			t.Fatalf("SubmitScore failed: %v", err)
		}
		best, err := svc.GetBest(ctx, "someone else")
		if err != nil {
			t.Fatalf("GetBest failed: %v", err)
		}
		if best != 0 {
			t.Errorf("Expected 0, got %d", best)
		}
	})

	t.Run("EmptyTeam", func(t *testing.T) {
		if _, err := svc.GetBest(ctx, ""); !errors.Is(err, ErrNoTeam) {
			t.Errorf("Expected ErrNoTeam, got %v", err)
		}
	})
}

func TestSubmitScore(t *testing.T) {
	svc, notifier := setupTestService(t, testutil.SetupTestDB(t))
	ctx := context.Background()

	steps := []struct {
		name        string
		score       int64
		wantBest    int64
		wantUpdated bool
	}{
		{"NegativeOnEmpty", -5, 0, false},
		{"ZeroOnEmpty", 0, 0, false},
		{"FirstScore", 100, 100, true},
		{"Lower", 50, 100, false},
		{"Equal", 100, 100, false},
		{"Higher", 250, 250, true},
		{"SameAgain", 250, 250, false},
		{"Negative", -1000, 250, false},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			res, err := svc.SubmitScore(ctx, domain.TeamName, step.score)
			if err != nil {
				t.Fatalf("SubmitScore failed: %v", err)
			}
			if res.Team != domain.TeamName {
				t.Errorf("Expected team %s, got %s", domain.TeamName, res.Team)
			}
			if res.Best != step.wantBest {
				t.Errorf("Expected best %d, got %d", step.wantBest, res.Best)
			}
			if res.Updated != step.wantUpdated {
				t.Errorf("Expected updated=%v, got %v", step.wantUpdated, res.Updated)
			}

			best, err := svc.GetBest(ctx, domain.TeamName)
			if err != nil {
				t.Fatalf("GetBest failed: %v", err)
			}
			if best != step.wantBest {
				t.Errorf("Expected stored best %d, got %d", step.wantBest, best)
			}
		})
	}

	if notifier.count() != 2 {
		t.Fatalf("Expected 2 update events, got %d", notifier.count())
	}
	last := notifier.events[1]
	if last.Previous != 100 || last.Record.Best != 250 {
		t.Errorf("Unexpected event %+v", last)
	}
}

func TestSubmitScoreNoRowForZero(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := setupTestService(t, db)
	ctx := context.Background()

	if _, err := svc.SubmitScore(ctx, domain.TeamName, -5); err != nil {
		t.Fatalf("SubmitScore failed: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM highscores`).Scan(&count); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no record after zero submission, got %d", count)
	}
}

func TestSubmitScoreOrderIndependent(t *testing.T) {
	orders := [][]int64{
		{5, 90, -3, 42, 90, 17},
		{17, 90, 42, -3, 5, 90},
		{-3, 5, 17, 42, 90, 90},
		{90, 90, 42, 17, 5, -3},
	}
	for _, scores := range orders {
		svc, _ := setupTestService(t, testutil.SetupTestDB(t))
		ctx := context.Background()
		for _, s := range scores {
			if _, err := svc.SubmitScore(ctx, domain.TeamName, s); err != nil {
				t.Fatalf("SubmitScore failed: %v", err)
			}
		}
		best, err := svc.GetBest(ctx, domain.TeamName)
		if err != nil {
			t.Fatalf("GetBest failed: %v", err)
		}
		if best != 90 {
			t.Errorf("Order %v: expected best 90, got %d", scores, best)
		}
	}
}

func TestSubmitScoreConcurrent(t *testing.T) {
	svc, notifier := setupTestService(t, testutil.SetupTestDB(t))
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 1; i <= workers; i++ {
		wg.Add(1)
		go func(score int64) {
			defer wg.Done()
			if _, err := svc.SubmitScore(ctx, domain.TeamName, score); err != nil {
				errs <- err
			}
		}(int64(i * 10))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("Concurrent SubmitScore failed: %v", err)
	}

	best, err := svc.GetBest(ctx, domain.TeamName)
	if err != nil {
		t.Fatalf("GetBest failed: %v", err)
	}
	if best != workers*10 {
		t.Errorf("Expected best %d, got %d", workers*10, best)
	}
	if notifier.count() < 1 || notifier.count() > workers {
		t.Errorf("Unexpected number of update events: %d", notifier.count())
	}
}

func TestSubmitScoreStorageError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, notifier := setupTestService(t, db)
	ctx := context.Background()

	if err := db.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	if _, err := svc.SubmitScore(ctx, domain.TeamName, 10); err == nil {
		t.Fatal("Expected storage error")
	}
	if _, err := svc.GetBest(ctx, domain.TeamName); err == nil {
		t.Fatal("Expected storage error")
	}
	if notifier.count() != 0 {
		t.Errorf("Expected no events on failure, got %d", notifier.count())
	}
}

func TestSubmitScorePostgres(t *testing.T) {
	svc, _ := setupTestService(t, testutil.SetupPostgresDB(t))
	ctx := context.Background()

	for _, s := range []int64{100, 50, 250} {
		if _, err := svc.SubmitScore(ctx, domain.TeamName, s); err != nil {
			t.Fatalf("SubmitScore failed: %v", err)
		}
	}
	best, err := svc.GetBest(ctx, domain.TeamName)
	if err != nil {
		t.Fatalf("GetBest failed: %v", err)
	}
	if best != 250 {
		t.Errorf("Expected 250, got %d", best)
	}
}
