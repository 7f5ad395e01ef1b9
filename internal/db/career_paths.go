package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Career Path Methods
// -----------------------------------------------------------------------------

// SaveGeneratedPaths persists every AI-generated path with its steps and
// development actions, and flips the audit row to success, all in one
// transaction. On error the transaction rolls back and only the pending
// audit row remains.
func (db *DB) SaveGeneratedPaths(ctx context.Context, paths []CareerPathInput, auditID uuid.UUID, audit *AICallUpdate) ([]CareerPath, error) {
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

	var created []CareerPath
	for _, input := range paths {
		var p CareerPath
		err = tx.QueryRow(ctx,
			`INSERT INTO career_paths (user_id, skills_assessment_id, path_name,
			        recommended, feasibility_score, total_duration_months, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id, user_id, skills_assessment_id, path_name, recommended,
			           feasibility_score, total_duration_months, status, created_at`,
			input.UserID, input.SkillsAssessmentID, input.PathName, input.Recommended,
			input.FeasibilityScore, input.TotalDurationMonths, PathStatusProposed,
		).Scan(&p.ID, &p.UserID, &p.SkillsAssessmentID, &p.PathName, &p.Recommended,
			&p.FeasibilityScore, &p.TotalDurationMonths, &p.Status, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to create career path: %w", err)
		}

		for _, stepInput := range input.Steps {
			var step CareerPathStep
			err = tx.QueryRow(ctx,
				`INSERT INTO career_path_steps (career_path_id, step_number,
				        target_role_id, description, duration_months)
				 VALUES ($1, $2, $3, $4, $5)
				 RETURNING id, career_path_id, step_number, target_role_id,
				           description, duration_months`,
				p.ID, stepInput.StepNumber, stepInput.TargetRoleID,
				stepInput.Description, stepInput.DurationMonths,
			).Scan(&step.ID, &step.CareerPathID, &step.StepNumber, &step.TargetRoleID,
				&step.Description, &step.DurationMonths)
			if err != nil {
				return nil, fmt.Errorf("failed to create career path step: %w", err)
			}

			for _, actionInput := range stepInput.Actions {
				var action DevelopmentAction
				err = tx.QueryRow(ctx,
					`INSERT INTO development_actions (career_path_step_id, skill_id,
					        action_type, title)
					 VALUES ($1, $2, $3, $4)
					 RETURNING id, career_path_step_id, skill_id, action_type, title`,
					step.ID, actionInput.SkillID, actionInput.ActionType, actionInput.Title,
				).Scan(&action.ID, &action.CareerPathStepID, &action.SkillID,
					&action.ActionType, &action.Title)
				if err != nil {
					return nil, fmt.Errorf("failed to create development action: %w", err)
				}
				step.Actions = append(step.Actions, action)
			}
			p.Steps = append(p.Steps, step)
		}
		created = append(created, p)
	}

	if audit != nil {
		if len(created) > 0 && audit.CareerPathID == nil {
			audit.CareerPathID = &created[0].ID
		}
		if err := db.updateAICall(ctx, tx, auditID, audit); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return created, nil
}

// GetCareerPath retrieves a path by ID, optionally with steps and actions
func (db *DB) GetCareerPath(ctx context.Context, id uuid.UUID, loadSteps bool) (*CareerPath, error) {
	var p CareerPath
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, skills_assessment_id, path_name, recommended,
		        feasibility_score, total_duration_months, status, created_at
		 FROM career_paths WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.UserID, &p.SkillsAssessmentID, &p.PathName, &p.Recommended,
		&p.FeasibilityScore, &p.TotalDurationMonths, &p.Status, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get career path: %w", err)
	}

	if loadSteps {
		if err := db.loadStepsForPath(ctx, &p); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (db *DB) loadStepsForPath(ctx context.Context, p *CareerPath) error {
	rows, err := db.pool.Query(ctx,
		`SELECT id, career_path_id, step_number, target_role_id, description, duration_months
		 FROM career_path_steps WHERE career_path_id = $1 ORDER BY step_number`,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get career path steps: %w", err)
	}
	defer rows.Close()

	var stepIDs []uuid.UUID
	for rows.Next() {
		var step CareerPathStep
		if err := rows.Scan(&step.ID, &step.CareerPathID, &step.StepNumber,
			&step.TargetRoleID, &step.Description, &step.DurationMonths); err != nil {
			return fmt.Errorf("failed to scan career path step: %w", err)
		}
		p.Steps = append(p.Steps, step)
		stepIDs = append(stepIDs, step.ID)
	}
	rows.Close()

	if len(stepIDs) == 0 {
		return nil
	}

	actionRows, err := db.pool.Query(ctx,
		`SELECT id, career_path_step_id, skill_id, action_type, title
		 FROM development_actions WHERE career_path_step_id = ANY($1)`,
		stepIDs,
	)
	if err != nil {
		return fmt.Errorf("failed to get development actions: %w", err)
	}
	defer actionRows.Close()

	actionsByStep := make(map[uuid.UUID][]DevelopmentAction)
	for actionRows.Next() {
		var a DevelopmentAction
		if err := actionRows.Scan(&a.ID, &a.CareerPathStepID, &a.SkillID,
			&a.ActionType, &a.Title); err != nil {
			return fmt.Errorf("failed to scan development action: %w", err)
		}
		actionsByStep[a.CareerPathStepID] = append(actionsByStep[a.CareerPathStepID], a)
	}
	for i := range p.Steps {
		p.Steps[i].Actions = actionsByStep[p.Steps[i].ID]
	}
	return nil
}

// ListCareerPaths retrieves a user's paths, optionally filtered by status
func (db *DB) ListCareerPaths(ctx context.Context, userID uuid.UUID, status string) ([]CareerPath, error) {
	query := `SELECT id, user_id, skills_assessment_id, path_name, recommended,
	                 feasibility_score, total_duration_months, status, created_at
	          FROM career_paths WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY recommended DESC, created_at DESC"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list career paths: %w", err)
	}
	defer rows.Close()

	var paths []CareerPath
	for rows.Next() {
		var p CareerPath
		if err := rows.Scan(&p.ID, &p.UserID, &p.SkillsAssessmentID, &p.PathName,
			&p.Recommended, &p.FeasibilityScore, &p.TotalDurationMonths, &p.Status,
			&p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan career path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// AcceptCareerPath marks one path accepted and every other proposed or
// accepted path of the same user discarded, atomically. No commit ever
// leaves two accepted paths for one user.
func (db *DB) AcceptCareerPath(ctx context.Context, pathID, userID uuid.UUID) (*CareerPath, error) {
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

	_, err = tx.Exec(ctx,
		`UPDATE career_paths SET status = $1
		 WHERE user_id = $2 AND id != $3 AND status = ANY($4)`,
		PathStatusDiscarded, userID, pathID,
		[]string{PathStatusProposed, PathStatusAccepted},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to discard other paths: %w", err)
	}

	var p CareerPath
	err = tx.QueryRow(ctx,
		`UPDATE career_paths SET status = $1
		 WHERE id = $2 AND user_id = $3
		 RETURNING id, user_id, skills_assessment_id, path_name, recommended,
		           feasibility_score, total_duration_months, status, created_at`,
		PathStatusAccepted, pathID, userID,
	).Scan(&p.ID, &p.UserID, &p.SkillsAssessmentID, &p.PathName, &p.Recommended,
		&p.FeasibilityScore, &p.TotalDurationMonths, &p.Status, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to accept career path: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &p, nil
}
