package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Evaluation Methods
// -----------------------------------------------------------------------------

// CreateEvaluation creates an evaluation and its competency scores in one
// transaction
func (db *DB) CreateEvaluation(ctx context.Context, input *EvaluationInput) (*Evaluation, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && rErr != pgx.ErrTxClosed {
			// Log rollback error but don't overwrite main error
			_ = rErr
		}
	}()

	var e Evaluation
	err = tx.QueryRow(ctx,
		`INSERT INTO evaluations (user_id, evaluation_cycle_id, evaluator_id,
		        evaluator_relationship, status, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, user_id, evaluation_cycle_id, evaluator_id,
		           evaluator_relationship, status, submitted_at, created_at`,
		input.UserID, input.CycleID, input.EvaluatorID, input.Relationship,
		input.Status, input.SubmittedAt,
	).Scan(&e.ID, &e.UserID, &e.CycleID, &e.EvaluatorID, &e.Relationship,
		&e.Status, &e.SubmittedAt, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluation: %w", err)
	}

	for _, score := range input.Scores {
		var cs CompetencyScore
		err = tx.QueryRow(ctx,
			`INSERT INTO evaluation_competency_scores (evaluation_id, skill_id, score, comments)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, evaluation_id, skill_id, score, comments`,
			e.ID, score.SkillID, score.Score, score.Comments,
		).Scan(&cs.ID, &cs.EvaluationID, &cs.SkillID, &cs.Score, &cs.Comments)
		if err != nil {
			return nil, fmt.Errorf("failed to create competency score: %w", err)
		}
		e.Scores = append(e.Scores, cs)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &e, nil
}

// GetEvaluation retrieves an evaluation by ID, optionally with its scores
func (db *DB) GetEvaluation(ctx context.Context, id uuid.UUID, loadScores bool) (*Evaluation, error) {
	var e Evaluation
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, evaluation_cycle_id, evaluator_id,
		        evaluator_relationship, status, submitted_at, created_at
		 FROM evaluations WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.UserID, &e.CycleID, &e.EvaluatorID, &e.Relationship,
		&e.Status, &e.SubmittedAt, &e.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}

	if loadScores {
		scores, err := db.getScoresForEvaluations(ctx, []uuid.UUID{e.ID})
		if err != nil {
			return nil, err
		}
		e.Scores = scores[e.ID]
	}
	return &e, nil
}

// ListEvaluations retrieves evaluations with optional filters
func (db *DB) ListEvaluations(ctx context.Context, filters EvaluationFilters) ([]Evaluation, error) {
	if filters.Limit == 0 {
		filters.Limit = 100
	}

	query := `SELECT id, user_id, evaluation_cycle_id, evaluator_id,
	                 evaluator_relationship, status, submitted_at, created_at
	          FROM evaluations WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argNum)
		args = append(args, *filters.UserID)
		argNum++
	}
	if filters.EvaluatorID != nil {
		query += fmt.Sprintf(" AND evaluator_id = $%d", argNum)
		args = append(args, *filters.EvaluatorID)
		argNum++
	}
	if filters.CycleID != nil {
		query += fmt.Sprintf(" AND evaluation_cycle_id = $%d", argNum)
		args = append(args, *filters.CycleID)
		argNum++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filters.Status)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filters.Limit, filters.Offset)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	var evals []Evaluation
	for rows.Next() {
		var e Evaluation
		if err := rows.Scan(&e.ID, &e.UserID, &e.CycleID, &e.EvaluatorID,
			&e.Relationship, &e.Status, &e.SubmittedAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		evals = append(evals, e)
	}
	return evals, nil
}

// GetEvaluationsForUserAndCycle retrieves every evaluation of a user in a
// cycle with competency scores loaded, for completeness checks and
// aggregation
func (db *DB) GetEvaluationsForUserAndCycle(ctx context.Context, userID, cycleID uuid.UUID) ([]Evaluation, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, evaluation_cycle_id, evaluator_id,
		        evaluator_relationship, status, submitted_at, created_at
		 FROM evaluations
		 WHERE user_id = $1 AND evaluation_cycle_id = $2
		 ORDER BY created_at`,
		userID, cycleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluations for user and cycle: %w", err)
	}
	defer rows.Close()

	var evals []Evaluation
	var ids []uuid.UUID
	for rows.Next() {
		var e Evaluation
		if err := rows.Scan(&e.ID, &e.UserID, &e.CycleID, &e.EvaluatorID,
			&e.Relationship, &e.Status, &e.SubmittedAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		evals = append(evals, e)
		ids = append(ids, e.ID)
	}

	if len(ids) == 0 {
		return evals, nil
	}

	scores, err := db.getScoresForEvaluations(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range evals {
		evals[i].Scores = scores[evals[i].ID]
	}
	return evals, nil
}

func (db *DB) getScoresForEvaluations(ctx context.Context, evaluationIDs []uuid.UUID) (map[uuid.UUID][]CompetencyScore, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, evaluation_id, skill_id, score, comments
		 FROM evaluation_competency_scores
		 WHERE evaluation_id = ANY($1)`,
		evaluationIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get competency scores: %w", err)
	}
	defer rows.Close()

	scores := make(map[uuid.UUID][]CompetencyScore)
	for rows.Next() {
		var cs CompetencyScore
		if err := rows.Scan(&cs.ID, &cs.EvaluationID, &cs.SkillID, &cs.Score, &cs.Comments); err != nil {
			return nil, fmt.Errorf("failed to scan competency score: %w", err)
		}
		scores[cs.EvaluationID] = append(scores[cs.EvaluationID], cs)
	}
	return scores, nil
}
