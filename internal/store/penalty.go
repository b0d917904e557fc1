package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/allowance/internal/model"
)

type PenaltyStore struct {
	db DBTX
}

func NewPenaltyStore(db DBTX) *PenaltyStore {
	return &PenaltyStore{db: db}
}

func (s *PenaltyStore) WithTx(tx *sql.Tx) *PenaltyStore {
	return &PenaltyStore{db: tx}
}

// --- Penalty methods ---

const penaltyCols = `id, name, description, point_deduction, created_by_parent_id, created_at`

func scanPenalty(row scanner) (*model.Penalty, error) {
	var p model.Penalty
	var description sql.NullString

	if err := row.Scan(&p.ID, &p.Name, &description, &p.PointDeduction, &p.CreatedByParentID, &p.CreatedAt); err != nil {
		return nil, err
	}

	p.Description = stringPtr(description)
	return &p, nil
}

type PenaltyUpdate struct {
	Name             *string
	Description      *string
	ClearDescription bool
	PointDeduction   *int
}

func (s *PenaltyStore) Create(ctx context.Context, name string, description *string, pointDeduction int, createdByParentID int64) (*model.Penalty, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO penalties (name, description, point_deduction, created_by_parent_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		name, nullString(description), pointDeduction, createdByParentID, now(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert penalty: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *PenaltyStore) GetByID(ctx context.Context, id int64) (*model.Penalty, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+penaltyCols+` FROM penalties WHERE id = ?`, id)
	p, err := scanPenalty(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get penalty: %w", err)
	}
	return p, nil
}

func (s *PenaltyStore) List(ctx context.Context) ([]model.Penalty, error) {
	return s.listPenalties(ctx, `SELECT `+penaltyCols+` FROM penalties ORDER BY name ASC`)
}

func (s *PenaltyStore) ListByParent(ctx context.Context, parentID int64) ([]model.Penalty, error) {
	return s.listPenalties(ctx,
		`SELECT `+penaltyCols+` FROM penalties WHERE created_by_parent_id = ? ORDER BY name ASC`,
		parentID,
	)
}

func (s *PenaltyStore) listPenalties(ctx context.Context, query string, args ...any) ([]model.Penalty, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list penalties: %w", err)
	}
	defer rows.Close()

	var penalties []model.Penalty
	for rows.Next() {
		p, err := scanPenalty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan penalty: %w", err)
		}
		penalties = append(penalties, *p)
	}
	return penalties, rows.Err()
}

// Update edits the template only. Past applications keep the deduction they
// were applied with.
func (s *PenaltyStore) Update(ctx context.Context, id int64, u PenaltyUpdate) (*model.Penalty, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE penalties SET
			name = COALESCE(?, name),
			description = CASE WHEN ? THEN NULL ELSE COALESCE(?, description) END,
			point_deduction = COALESCE(?, point_deduction)
		 WHERE id = ?`,
		u.Name, u.ClearDescription, u.Description, u.PointDeduction, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update penalty: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes a penalty that has never been applied. Any application at
// all blocks deletion with ErrInUse.
func (s *PenaltyStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM penalties WHERE id = ? AND NOT EXISTS (
			SELECT 1 FROM penalty_applications WHERE penalty_id = ?
		)`,
		id, id,
	)
	if err != nil {
		return fmt.Errorf("delete penalty: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete penalty: %w", err)
	}
	if n == 0 {
		applied, err := s.CountApplications(ctx, id)
		if err != nil {
			return err
		}
		if applied > 0 {
			return ErrInUse
		}
	}
	return nil
}

// --- Application methods ---

const applicationCols = `id, penalty_id, kid_id, applied_by_parent_id, applied_at, points_deducted`

func scanApplication(row scanner) (*model.PenaltyApplication, error) {
	var a model.PenaltyApplication
	if err := row.Scan(&a.ID, &a.PenaltyID, &a.KidID, &a.AppliedByParentID, &a.AppliedAt, &a.PointsDeducted); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PenaltyStore) CreateApplication(ctx context.Context, penaltyID, kidID, parentID int64, pointsDeducted int, appliedAt time.Time) (*model.PenaltyApplication, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO penalty_applications (penalty_id, kid_id, applied_by_parent_id, applied_at, points_deducted)
		 VALUES (?, ?, ?, ?, ?)`,
		penaltyID, kidID, parentID, appliedAt.UTC(), pointsDeducted,
	)
	if err != nil {
		return nil, fmt.Errorf("insert penalty application: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+applicationCols+` FROM penalty_applications WHERE id = ?`, id)
	a, err := scanApplication(row)
	if err != nil {
		return nil, fmt.Errorf("get penalty application: %w", err)
	}
	return a, nil
}

func (s *PenaltyStore) ListApplications(ctx context.Context) ([]model.PenaltyApplication, error) {
	return s.listApplications(ctx,
		`SELECT `+applicationCols+` FROM penalty_applications ORDER BY applied_at DESC, id DESC`)
}

func (s *PenaltyStore) ListApplicationsByKid(ctx context.Context, kidID int64) ([]model.PenaltyApplication, error) {
	return s.listApplications(ctx,
		`SELECT `+applicationCols+` FROM penalty_applications WHERE kid_id = ? ORDER BY applied_at DESC, id DESC`,
		kidID,
	)
}

func (s *PenaltyStore) ListApplicationsByParent(ctx context.Context, parentID int64) ([]model.PenaltyApplication, error) {
	return s.listApplications(ctx,
		`SELECT `+applicationCols+` FROM penalty_applications WHERE applied_by_parent_id = ? ORDER BY applied_at DESC, id DESC`,
		parentID,
	)
}

func (s *PenaltyStore) listApplications(ctx context.Context, query string, args ...any) ([]model.PenaltyApplication, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list penalty applications: %w", err)
	}
	defer rows.Close()

	var apps []model.PenaltyApplication
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan penalty application: %w", err)
		}
		apps = append(apps, *a)
	}
	return apps, rows.Err()
}

func (s *PenaltyStore) CountApplications(ctx context.Context, penaltyID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM penalty_applications WHERE penalty_id = ?`, penaltyID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count penalty applications: %w", err)
	}
	return n, nil
}
