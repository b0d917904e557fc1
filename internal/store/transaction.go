package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/allowance/internal/model"
)

// TransactionStore is the append-only point ledger: it has no update or
// delete.
type TransactionStore struct {
	db DBTX
}

func NewTransactionStore(db DBTX) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) WithTx(tx *sql.Tx) *TransactionStore {
	return &TransactionStore{db: tx}
}

const transactionCols = `id, kid_id, transaction_type, points_change, reference_id, created_at`

func scanTransaction(row scanner) (*model.PointTransaction, error) {
	var t model.PointTransaction
	if err := row.Scan(&t.ID, &t.KidID, &t.TransactionType, &t.PointsChange, &t.ReferenceID, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// Append writes t and returns it with its id filled in. t.ID is ignored.
func (s *TransactionStore) Append(ctx context.Context, t model.PointTransaction) (*model.PointTransaction, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO point_transactions (kid_id, transaction_type, points_change, reference_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.KidID, t.TransactionType, t.PointsChange, t.ReferenceID, t.CreatedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert point transaction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	t.ID = id
	return &t, nil
}

// List returns every entry, newest first. Entries written in the same
// instant come back in reverse insertion order.
func (s *TransactionStore) List(ctx context.Context) ([]model.PointTransaction, error) {
	return s.list(ctx, `SELECT `+transactionCols+` FROM point_transactions ORDER BY created_at DESC, id DESC`)
}

func (s *TransactionStore) ListByKid(ctx context.Context, kidID int64) ([]model.PointTransaction, error) {
	return s.list(ctx,
		`SELECT `+transactionCols+` FROM point_transactions WHERE kid_id = ? ORDER BY created_at DESC, id DESC`,
		kidID,
	)
}

func (s *TransactionStore) ListByReference(ctx context.Context, txType model.TransactionType, referenceID int64) ([]model.PointTransaction, error) {
	return s.list(ctx,
		`SELECT `+transactionCols+` FROM point_transactions WHERE transaction_type = ? AND reference_id = ? ORDER BY id ASC`,
		txType, referenceID,
	)
}

func (s *TransactionStore) list(ctx context.Context, query string, args ...any) ([]model.PointTransaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list point transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.PointTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan point transaction: %w", err)
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

func (s *TransactionStore) SumByKid(ctx context.Context, kidID int64) (int, error) {
	var sum int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(points_change), 0) FROM point_transactions WHERE kid_id = ?`, kidID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum point transactions: %w", err)
	}
	return sum, nil
}
