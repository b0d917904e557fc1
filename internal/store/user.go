package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/allowance/internal/model"
)

type UserStore struct {
	db DBTX
}

func NewUserStore(db DBTX) *UserStore {
	return &UserStore{db: db}
}

// WithTx returns a copy of the store that runs its queries inside tx.
func (s *UserStore) WithTx(tx *sql.Tx) *UserStore {
	return &UserStore{db: tx}
}

const userCols = `id, name, role, points, created_at`

func scanUser(row scanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Name, &u.Role, &u.Points, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user with a zero balance.
func (s *UserStore) Create(ctx context.Context, name string, role model.Role) (*model.User, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, role, points, created_at) VALUES (?, ?, 0, ?)`,
		name, role, now(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) List(ctx context.Context) ([]model.User, error) {
	return s.list(ctx, `SELECT `+userCols+` FROM users ORDER BY id ASC`)
}

func (s *UserStore) ListByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	return s.list(ctx, `SELECT `+userCols+` FROM users WHERE role = ? ORDER BY id ASC`, role)
}

// Leaderboard returns kids ordered by balance, highest first.
func (s *UserStore) Leaderboard(ctx context.Context) ([]model.User, error) {
	return s.list(ctx,
		`SELECT `+userCols+` FROM users WHERE role = ? ORDER BY points DESC, name ASC`,
		model.RoleKid,
	)
}

func (s *UserStore) list(ctx context.Context, query string, args ...any) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Rename changes only the name. Balances move through the ledger.
func (s *UserStore) Rename(ctx context.Context, id int64, name string) (*model.User, error) {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return nil, fmt.Errorf("rename user: %w", err)
	}
	return s.GetByID(ctx, id)
}

// AddPoints adds delta (which may be negative) to a kid's balance. It
// reports false when no kid with that id exists.
func (s *UserStore) AddPoints(ctx context.Context, kidID int64, delta int) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET points = points + ? WHERE id = ? AND role = ?`,
		delta, kidID, model.RoleKid,
	)
	if err != nil {
		return false, fmt.Errorf("add points: %w", err)
	}
	ok, err := affectedOne(result)
	if err != nil {
		return false, fmt.Errorf("add points: %w", err)
	}
	return ok, nil
}

// SpendPoints deducts amount only if the kid's balance covers it. It reports
// false when the balance is short or the kid does not exist.
func (s *UserStore) SpendPoints(ctx context.Context, kidID int64, amount int) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET points = points - ? WHERE id = ? AND role = ? AND points >= ?`,
		amount, kidID, model.RoleKid, amount,
	)
	if err != nil {
		return false, fmt.Errorf("spend points: %w", err)
	}
	ok, err := affectedOne(result)
	if err != nil {
		return false, fmt.Errorf("spend points: %w", err)
	}
	return ok, nil
}

// Balances returns every kid's stored balance alongside the sum of its
// ledger entries.
func (s *UserStore) Balances(ctx context.Context) ([]model.PointBalance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.points, COALESCE(SUM(t.points_change), 0)
		FROM users u
		LEFT JOIN point_transactions t ON t.kid_id = u.id
		WHERE u.role = ?
		GROUP BY u.id, u.name, u.points
		ORDER BY u.id ASC`,
		model.RoleKid,
	)
	if err != nil {
		return nil, fmt.Errorf("query balances: %w", err)
	}
	defer rows.Close()

	var balances []model.PointBalance
	for rows.Next() {
		var b model.PointBalance
		if err := rows.Scan(&b.KidID, &b.KidName, &b.Balance, &b.LedgerSum); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		b.Drift = b.Balance - b.LedgerSum
		balances = append(balances, b)
	}
	return balances, rows.Err()
}
