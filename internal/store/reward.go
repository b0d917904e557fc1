package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/allowance/internal/model"
)

type RewardStore struct {
	db DBTX
}

func NewRewardStore(db DBTX) *RewardStore {
	return &RewardStore{db: db}
}

func (s *RewardStore) WithTx(tx *sql.Tx) *RewardStore {
	return &RewardStore{db: tx}
}

// --- Reward methods ---

const rewardCols = `id, name, description, image_url, point_cost, created_by_parent_id, created_at`

func scanReward(row scanner) (*model.Reward, error) {
	var r model.Reward
	var description, imageURL sql.NullString

	err := row.Scan(&r.ID, &r.Name, &description, &imageURL, &r.PointCost, &r.CreatedByParentID, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	r.Description = stringPtr(description)
	r.ImageURL = stringPtr(imageURL)
	return &r, nil
}

// RewardUpdate holds the editable fields of a reward. Nil fields are left
// alone; the Clear flags null out the optional text columns.
type RewardUpdate struct {
	Name             *string
	Description      *string
	ClearDescription bool
	ImageURL         *string
	ClearImageURL    bool
	PointCost        *int
}

func (s *RewardStore) Create(ctx context.Context, name string, description, imageURL *string, pointCost int, createdByParentID int64) (*model.Reward, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO rewards (name, description, image_url, point_cost, created_by_parent_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		name, nullString(description), nullString(imageURL), pointCost, createdByParentID, now(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *RewardStore) GetByID(ctx context.Context, id int64) (*model.Reward, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// List returns all rewards, cheapest first.
func (s *RewardStore) List(ctx context.Context) ([]model.Reward, error) {
	return s.listRewards(ctx, `SELECT `+rewardCols+` FROM rewards ORDER BY point_cost ASC, name ASC`)
}

func (s *RewardStore) ListByParent(ctx context.Context, parentID int64) ([]model.Reward, error) {
	return s.listRewards(ctx,
		`SELECT `+rewardCols+` FROM rewards WHERE created_by_parent_id = ? ORDER BY point_cost ASC, name ASC`,
		parentID,
	)
}

func (s *RewardStore) listRewards(ctx context.Context, query string, args ...any) ([]model.Reward, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Update(ctx context.Context, id int64, u RewardUpdate) (*model.Reward, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE rewards SET
			name = COALESCE(?, name),
			description = CASE WHEN ? THEN NULL ELSE COALESCE(?, description) END,
			image_url = CASE WHEN ? THEN NULL ELSE COALESCE(?, image_url) END,
			point_cost = COALESCE(?, point_cost)
		 WHERE id = ?`,
		u.Name, u.ClearDescription, u.Description, u.ClearImageURL, u.ImageURL, u.PointCost, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes a reward unless a pending request still references it, in
// which case it returns ErrInUse. Processed requests do not block deletion.
func (s *RewardStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM rewards WHERE id = ? AND NOT EXISTS (
			SELECT 1 FROM reward_requests WHERE reward_id = ? AND status = ?
		)`,
		id, id, model.RequestStatusPending,
	)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	if n == 0 {
		pending, err := s.CountPendingRequests(ctx, id)
		if err != nil {
			return err
		}
		if pending > 0 {
			return ErrInUse
		}
	}
	return nil
}

// --- Request methods ---

const requestCols = `id, reward_id, kid_id, status, requested_at, processed_at, processed_by_parent_id`

func scanRequest(row scanner) (*model.RewardRequest, error) {
	var r model.RewardRequest
	var processedAt sql.NullTime
	var processedBy sql.NullInt64

	err := row.Scan(&r.ID, &r.RewardID, &r.KidID, &r.Status, &r.RequestedAt, &processedAt, &processedBy)
	if err != nil {
		return nil, err
	}

	r.ProcessedAt = timePtr(processedAt)
	if processedBy.Valid {
		r.ProcessedByParentID = &processedBy.Int64
	}
	return &r, nil
}

func (s *RewardStore) CreateRequest(ctx context.Context, rewardID, kidID int64, requestedAt time.Time) (*model.RewardRequest, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO reward_requests (reward_id, kid_id, status, requested_at) VALUES (?, ?, ?, ?)`,
		rewardID, kidID, model.RequestStatusPending, requestedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward request: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetRequestByID(ctx, id)
}

func (s *RewardStore) GetRequestByID(ctx context.Context, id int64) (*model.RewardRequest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+requestCols+` FROM reward_requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward request: %w", err)
	}
	return r, nil
}

func (s *RewardStore) ListRequests(ctx context.Context) ([]model.RewardRequest, error) {
	return s.listRequests(ctx, `SELECT `+requestCols+` FROM reward_requests ORDER BY requested_at DESC, id DESC`)
}

func (s *RewardStore) ListRequestsByKid(ctx context.Context, kidID int64) ([]model.RewardRequest, error) {
	return s.listRequests(ctx,
		`SELECT `+requestCols+` FROM reward_requests WHERE kid_id = ? ORDER BY requested_at DESC, id DESC`,
		kidID,
	)
}

// ListPendingRequests returns requests awaiting a decision, oldest first.
func (s *RewardStore) ListPendingRequests(ctx context.Context) ([]model.RewardRequest, error) {
	return s.listRequests(ctx,
		`SELECT `+requestCols+` FROM reward_requests WHERE status = ? ORDER BY requested_at ASC, id ASC`,
		model.RequestStatusPending,
	)
}

func (s *RewardStore) listRequests(ctx context.Context, query string, args ...any) ([]model.RewardRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reward requests: %w", err)
	}
	defer rows.Close()

	var requests []model.RewardRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward request: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

func (s *RewardStore) CountPendingRequests(ctx context.Context, rewardID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reward_requests WHERE reward_id = ? AND status = ?`,
		rewardID, model.RequestStatusPending,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending requests: %w", err)
	}
	return n, nil
}

// TransitionRequest records a decision on r, but only while the stored row
// is still pending. It reports false otherwise.
func (s *RewardStore) TransitionRequest(ctx context.Context, r model.RewardRequest) (bool, error) {
	var processedBy sql.NullInt64
	if r.ProcessedByParentID != nil {
		processedBy = sql.NullInt64{Int64: *r.ProcessedByParentID, Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE reward_requests SET status = ?, processed_at = ?, processed_by_parent_id = ?
		 WHERE id = ? AND status = ?`,
		r.Status, nullTime(r.ProcessedAt), processedBy, r.ID, model.RequestStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("transition reward request: %w", err)
	}
	ok, err := affectedOne(result)
	if err != nil {
		return false, fmt.Errorf("transition reward request: %w", err)
	}
	return ok, nil
}
