// Package highscore provides read and conditional-update access to the
// best score of the configured team
package highscore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexbotov/highscore/internal/database"
	"github.com/alexbotov/highscore/internal/domain"
)

// ErrNoTeam is returned when an operation is called without a team
var ErrNoTeam = errors.New("team is required")

// Notifier receives every accepted update after it is committed
type Notifier interface {
	HighscoreUpdated(ctx context.Context, event domain.HighscoreEvent)
}

// Config holds the service settings fixed at construction
type Config struct {
	Team string
}

// Service provides highscore functionality
type Service struct {
	db        *database.DB
	team      string
	notifiers []Notifier
	now       func() time.Time
}

// New creates a new highscore service
func New(db *database.DB, cfg Config, notifiers ...Notifier) *Service {
	return &Service{
		db:        db,
		team:      cfg.Team,
		notifiers: notifiers,
		now:       time.Now,
	}
}

// Team returns the team this service was configured for
func (s *Service) Team() string {
	return s.team
}

// GetBest returns the stored best score, or 0 if the team has no record
func (s *Service) GetBest(ctx context.Context, team string) (int64, error) {
	if team == "" {
		return 0, ErrNoTeam
	}
	best, err := s.readBest(ctx, s.db.DB, team)
	if err != nil {
		return 0, fmt.Errorf("failed to get best score: %w", err)
	}
	return best, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Service) readBest(ctx context.Context, q queryer, team string) (int64, error) {
	var best int64
	err := q.QueryRowContext(ctx, s.db.Rebind(`SELECT best FROM highscores WHERE team = ?`), team).Scan(&best)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return best, nil
}

// SubmitScore stores score as the new best if it beats the current one.
// Negative scores count as zero. The write is committed before returning.
func (s *Service) SubmitScore(ctx context.Context, team string, score int64) (*domain.SubmitResult, error) {
	if team == "" {
		return nil, ErrNoTeam
	}
	score = domain.ClampScore(score)

	// Zero never beats anything, including an absent record.
	if score == 0 {
		best, err := s.GetBest(ctx, team)
		if err != nil {
			return nil, err
		}
		return &domain.SubmitResult{Team: team, Best: best}, nil
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	// Read for the event payload only; the upsert below decides the outcome.
	previous, err := s.readBest(ctx, dbTx, team)
	if err != nil {
		return nil, fmt.Errorf("failed to read best score: %w", err)
	}

	res, err := dbTx.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO highscores (team, best) VALUES (?, ?)
		ON CONFLICT (team) DO UPDATE SET best = excluded.best
		WHERE excluded.best > highscores.best
	`), team, score)
	if err != nil {
		return nil, fmt.Errorf("failed to store best score: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to store best score: %w", err)
	}

	result := &domain.SubmitResult{Team: team, Best: score, Updated: affected > 0}
	if !result.Updated {
		result.Best, err = s.readBest(ctx, dbTx, team)
		if err != nil {
			return nil, fmt.Errorf("failed to read best score: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if result.Updated {
		slog.InfoContext(ctx, "highscore updated", "team", team, "best", result.Best, "previous", previous)
		event := domain.HighscoreEvent{
			Record:     result.Record(),
			Previous:   previous,
			OccurredAt: s.now().UTC(),
		}
		for _, n := range s.notifiers {
			n.HighscoreUpdated(ctx, event)
		}
	}

	return result, nil
}
