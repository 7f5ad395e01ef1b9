package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SourceAggregated360 tags skill scores produced by 360° aggregation
const SourceAggregated360 = "360_aggregated"

// UserSkillScore is one consolidated per-skill rating for a user in a cycle
type UserSkillScore struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	CycleID    uuid.UUID       `json:"evaluation_cycle_id"`
	SkillID    uuid.UUID       `json:"skill_id"`
	Source     string          `json:"source"`
	Score      float64         `json:"score"`
	Confidence float64         `json:"confidence"`
	RawStats   json.RawMessage `json:"raw_stats,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// UserSkillScoreInput holds the fields for one aggregated skill score row
type UserSkillScoreInput struct {
	SkillID    uuid.UUID
	Source     string
	Score      float64
	Confidence float64
	RawStats   any
}

// -----------------------------------------------------------------------------
// User Skill Score Methods
// -----------------------------------------------------------------------------

// ReplaceUserSkillScores deletes all aggregated scores for a (user, cycle)
// pair and inserts the freshly computed set in one transaction. Two
// concurrent runs for the same pair can race; callers accept this.
func (db *DB) ReplaceUserSkillScores(ctx context.Context, userID, cycleID uuid.UUID, scores []UserSkillScoreInput) (int, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && rErr != pgx.ErrTxClosed {
			// Log rollback error but don't overwrite main error
			_ = rErr
		}
	}()

	_, err = tx.Exec(ctx,
		`DELETE FROM user_skill_scores WHERE user_id = $1 AND evaluation_cycle_id = $2`,
		userID, cycleID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old skill scores: %w", err)
	}

	for _, s := range scores {
		rawStatsJSON, err := json.Marshal(s.RawStats)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal raw stats: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO user_skill_scores (user_id, evaluation_cycle_id, skill_id,
			        source, score, confidence, raw_stats)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			userID, cycleID, s.SkillID, s.Source, s.Score, s.Confidence, rawStatsJSON,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert skill score: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(scores), nil
}

// GetUserSkillScores retrieves aggregated skill scores for a user in a cycle
func (db *DB) GetUserSkillScores(ctx context.Context, userID, cycleID uuid.UUID) ([]UserSkillScore, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, evaluation_cycle_id, skill_id, source, score,
		        confidence, raw_stats, created_at
		 FROM user_skill_scores
		 WHERE user_id = $1 AND evaluation_cycle_id = $2
		 ORDER BY skill_id`,
		userID, cycleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get skill scores: %w", err)
	}
	defer rows.Close()

	var scores []UserSkillScore
	for rows.Next() {
		var s UserSkillScore
		if err := rows.Scan(&s.ID, &s.UserID, &s.CycleID, &s.SkillID, &s.Source,
			&s.Score, &s.Confidence, &s.RawStats, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan skill score: %w", err)
		}
		scores = append(scores, s)
	}
	return scores, nil
}
