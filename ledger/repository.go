package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

// SaveExpense persists an expense and its splits atomically. A concurrent
// balance read either sees the whole expense or none of it.
func (r *repository) SaveExpense(ctx context.Context, expense *Expense, splits []ExpenseSplit) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO expenses (id, trip_id, description, amount, currency, date, paid_by_id, activity_id, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	var activityID any
	if expense.ActivityID != uuid.Nil {
		activityID = expense.ActivityID
	}
	_, err = tx.ExecContext(
		ctx,
		query,
		expense.ID,
		expense.TripID,
		expense.Description,
		expense.Amount,
		expense.Currency,
		expense.Date,
		expense.PaidBy,
		activityID,
		expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting expense: %w", err)
	}

	for _, split := range splits {
		query = `INSERT INTO expense_splits (id, expense_id, participant_id, owed_amount, is_settled)
                 VALUES ($1, $2, $3, $4, $5)`
		_, err = tx.ExecContext(ctx, query, split.ID, split.ExpenseID, split.ParticipantID, split.OwedAmount, split.IsSettled)
		if err != nil {
			return fmt.Errorf("inserting split: %w", err)
		}
	}

	return tx.Commit()
}

// GetSnapshot reads all of a trip's expenses and splits inside one
// repeatable-read transaction, so balance math never mixes a half-written
// expense with its splits.
func (r *repository) GetSnapshot(ctx context.Context, tripID uuid.UUID) ([]Expense, []ExpenseSplit, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	expenses, err := queryExpenses(ctx, tx, tripID)
	if err != nil {
		return nil, nil, err
	}

	splits, err := querySplits(ctx, tx, tripID)
	if err != nil {
		return nil, nil, err
	}

	return expenses, splits, tx.Commit()
}

func queryExpenses(ctx context.Context, tx *sql.Tx, tripID uuid.UUID) ([]Expense, error) {
	query := `SELECT id, trip_id, description, amount, currency, date, paid_by_id, activity_id, created_at
              FROM expenses
              WHERE trip_id = $1
              ORDER BY created_at, id`

	rows, err := tx.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		var expense Expense
		var activityID uuid.NullUUID
		err := rows.Scan(
			&expense.ID,
			&expense.TripID,
			&expense.Description,
			&expense.Amount,
			&expense.Currency,
			&expense.Date,
			&expense.PaidBy,
			&activityID,
			&expense.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if activityID.Valid {
			expense.ActivityID = activityID.UUID
		}
		expenses = append(expenses, expense)
	}

	return expenses, rows.Err()
}

func querySplits(ctx context.Context, tx *sql.Tx, tripID uuid.UUID) ([]ExpenseSplit, error) {
	query := `SELECT es.id, es.expense_id, es.participant_id, es.owed_amount, es.is_settled
              FROM expense_splits es
              INNER JOIN expenses e ON es.expense_id = e.id
              WHERE e.trip_id = $1`

	rows, err := tx.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var splits []ExpenseSplit
	for rows.Next() {
		var split ExpenseSplit
		err := rows.Scan(&split.ID, &split.ExpenseID, &split.ParticipantID, &split.OwedAmount, &split.IsSettled)
		if err != nil {
			return nil, err
		}
		splits = append(splits, split)
	}

	return splits, rows.Err()
}

// GetExpense returns a single expense with its splits, or (nil, nil, nil)
// when it doesn't exist.
func (r *repository) GetExpense(ctx context.Context, expenseID uuid.UUID) (*Expense, []ExpenseSplit, error) {
	query := `SELECT id, trip_id, description, amount, currency, date, paid_by_id, activity_id, created_at
              FROM expenses WHERE id = $1`

	var expense Expense
	var activityID uuid.NullUUID
	err := r.db.QueryRowContext(ctx, query, expenseID).Scan(
		&expense.ID,
		&expense.TripID,
		&expense.Description,
		&expense.Amount,
		&expense.Currency,
		&expense.Date,
		&expense.PaidBy,
		&activityID,
		&expense.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if activityID.Valid {
		expense.ActivityID = activityID.UUID
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, expense_id, participant_id, owed_amount, is_settled FROM expense_splits WHERE expense_id = $1`,
		expenseID,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var splits []ExpenseSplit
	for rows.Next() {
		var split ExpenseSplit
		if err := rows.Scan(&split.ID, &split.ExpenseID, &split.ParticipantID, &split.OwedAmount, &split.IsSettled); err != nil {
			return nil, nil, err
		}
		splits = append(splits, split)
	}

	return &expense, splits, rows.Err()
}

// DeleteExpense removes an expense and its splits. Expense edits are
// modeled as delete + recreate, so this is the only mutation besides
// SaveExpense and MarkSplitSettled.
func (r *repository) DeleteExpense(ctx context.Context, expenseID uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expense_splits WHERE expense_id = $1`, expenseID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, expenseID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *repository) MarkSplitSettled(ctx context.Context, splitID uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE expense_splits SET is_settled = true WHERE id = $1`, splitID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}
