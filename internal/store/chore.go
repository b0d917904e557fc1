package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/allowance/internal/model"
)

type ChoreStore struct {
	db DBTX
}

func NewChoreStore(db DBTX) *ChoreStore {
	return &ChoreStore{db: db}
}

func (s *ChoreStore) WithTx(tx *sql.Tx) *ChoreStore {
	return &ChoreStore{db: tx}
}

const choreCols = `id, name, point_value, frequency, assigned_kid_id, status, created_by_parent_id, created_at, completed_at, approved_at`

func scanChore(row scanner) (*model.Chore, error) {
	var c model.Chore
	var completedAt, approvedAt sql.NullTime

	err := row.Scan(
		&c.ID, &c.Name, &c.PointValue, &c.Frequency, &c.AssignedKidID,
		&c.Status, &c.CreatedByParentID, &c.CreatedAt, &completedAt, &approvedAt,
	)
	if err != nil {
		return nil, err
	}

	c.CompletedAt = timePtr(completedAt)
	c.ApprovedAt = timePtr(approvedAt)
	return &c, nil
}

// ChoreUpdate holds the editable fields of a chore; nil fields are left alone.
type ChoreUpdate struct {
	Name          *string
	PointValue    *int
	Frequency     *model.Frequency
	AssignedKidID *int64
}

func (s *ChoreStore) Create(ctx context.Context, name string, pointValue int, frequency model.Frequency, assignedKidID, createdByParentID int64) (*model.Chore, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO chores (name, point_value, frequency, assigned_kid_id, status, created_by_parent_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		name, pointValue, frequency, assignedKidID, model.ChoreStatusPending, createdByParentID, now(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ChoreStore) GetByID(ctx context.Context, id int64) (*model.Chore, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) List(ctx context.Context) ([]model.Chore, error) {
	return s.list(ctx, `SELECT `+choreCols+` FROM chores ORDER BY id ASC`)
}

func (s *ChoreStore) ListByKid(ctx context.Context, kidID int64) ([]model.Chore, error) {
	return s.list(ctx, `SELECT `+choreCols+` FROM chores WHERE assigned_kid_id = ? ORDER BY id ASC`, kidID)
}

func (s *ChoreStore) ListByParent(ctx context.Context, parentID int64) ([]model.Chore, error) {
	return s.list(ctx, `SELECT `+choreCols+` FROM chores WHERE created_by_parent_id = ? ORDER BY id ASC`, parentID)
}

func (s *ChoreStore) list(ctx context.Context, query string, args ...any) ([]model.Chore, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

func (s *ChoreStore) Update(ctx context.Context, id int64, u ChoreUpdate) (*model.Chore, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chores SET
			name = COALESCE(?, name),
			point_value = COALESCE(?, point_value),
			frequency = COALESCE(?, frequency),
			assigned_kid_id = COALESCE(?, assigned_kid_id)
		 WHERE id = ?`,
		u.Name, u.PointValue, u.Frequency, u.AssignedKidID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Transition writes c's status and timestamps, but only if the stored row is
// still in status from. It reports false when another writer got there first.
func (s *ChoreStore) Transition(ctx context.Context, c model.Chore, from model.ChoreStatus) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE chores SET status = ?, completed_at = ?, approved_at = ? WHERE id = ? AND status = ?`,
		c.Status, nullTime(c.CompletedAt), nullTime(c.ApprovedAt), c.ID, from,
	)
	if err != nil {
		return false, fmt.Errorf("transition chore: %w", err)
	}
	ok, err := affectedOne(result)
	if err != nil {
		return false, fmt.Errorf("transition chore: %w", err)
	}
	return ok, nil
}

func (s *ChoreStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}
