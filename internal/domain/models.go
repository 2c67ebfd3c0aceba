// Package domain contains core domain models for the highscore service
//
// A single team has a single record. The record is absent until the first
// submission that beats the implicit best of zero, and its best value only
// ever grows after that.
package domain

import "time"

// TeamName is the only team this deployment tracks
const TeamName = "礫隊"

// HighscoreRecord is the persisted best score for a team
type HighscoreRecord struct {
	Team string `json:"team" db:"team"`
	Best int64  `json:"best" db:"best"`
}

// SubmitResult is the outcome of a score submission
type SubmitResult struct {
	Team    string `json:"team"`
	Best    int64  `json:"best"`
	Updated bool   `json:"updated"`
}

// Record returns the record view of the result
func (r SubmitResult) Record() HighscoreRecord {
	return HighscoreRecord{Team: r.Team, Best: r.Best}
}

// HighscoreEvent is published whenever a submission raises the best score
type HighscoreEvent struct {
	Record     HighscoreRecord `json:"record"`
	Previous   int64           `json:"previous"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// ClampScore treats negative scores as zero
func ClampScore(score int64) int64 {
	if score < 0 {
		return 0
	}
	return score
}
