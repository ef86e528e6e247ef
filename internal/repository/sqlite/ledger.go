package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"splitledger/internal/domain/ledger"
)

type LedgerRepository struct {
	db *sql.DB
	q  querier
}

func (r *LedgerRepository) Transaction(ctx context.Context, fn func(ledger.Repository) error) error {
	return inTx(ctx, r.db, r.q, func(tx *sql.Tx) error {
		return fn(&LedgerRepository{db: r.db, q: tx})
	})
}

func (r *LedgerRepository) CreateExpense(ctx context.Context, expense *ledger.Expense) error {
	return inTx(ctx, r.db, r.q, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO expenses (id, group_id, description, amount, payer_id, created_by, split_type, approved, rejected, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			expense.ID, expense.GroupID, expense.Description, expense.Amount.String(), expense.PayerID,
			expense.CreatedBy, expense.SplitType, expense.Approved, expense.Rejected, toUnix(expense.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}

		for i, userID := range expense.Involved {
			var share any
			if value, ok := expense.Split[userID]; ok {
				share = value.String()
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO expense_participants (expense_id, user_id, share, position) VALUES (?, ?, ?, ?)`,
				expense.ID, userID, share, i,
			); err != nil {
				return fmt.Errorf("insert participant: %w", err)
			}
		}
		return nil
	})
}

func (r *LedgerRepository) GetExpense(ctx context.Context, expenseID string) (*ledger.Expense, error) {
	expenses, err := r.queryExpenses(ctx, `WHERE id = ?`, expenseID)
	if err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return nil, ledger.ErrExpenseNotFound
	}
	return &expenses[0], nil
}

// LockExpense is a plain read: the single connection already excludes
// concurrent writers for the life of the transaction.
func (r *LedgerRepository) LockExpense(ctx context.Context, expenseID string) (*ledger.Expense, error) {
	return r.GetExpense(ctx, expenseID)
}

func (r *LedgerRepository) ListExpenses(ctx context.Context, filter ledger.ExpenseFilter) ([]ledger.Expense, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.GroupID != nil {
		conditions = append(conditions, "group_id = ?")
		args = append(args, *filter.GroupID)
	}
	if filter.DirectOnly {
		conditions = append(conditions, "group_id IS NULL")
	}
	if filter.InvolvedUser != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM expense_participants p WHERE p.expense_id = expenses.id AND p.user_id = ?)")
		args = append(args, filter.InvolvedUser)
	}
	if filter.ApprovedOnly {
		conditions = append(conditions, "approved = 1")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return r.queryExpenses(ctx, where+" ORDER BY created_at DESC", args...)
}

func (r *LedgerRepository) queryExpenses(ctx context.Context, tail string, args ...any) ([]ledger.Expense, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, group_id, description, amount, payer_id, created_by, split_type, approved, rejected, created_at
		 FROM expenses `+tail,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}

	expenses := make([]ledger.Expense, 0)
	for rows.Next() {
		var (
			expense   ledger.Expense
			groupID   sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&expense.ID, &groupID, &expense.Description, &expense.Amount, &expense.PayerID,
			&expense.CreatedBy, &expense.SplitType, &expense.Approved, &expense.Rejected, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if groupID.Valid {
			id := groupID.String
			expense.GroupID = &id
		}
		expense.CreatedAt = fromUnix(createdAt)
		expenses = append(expenses, expense)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachDetails(ctx, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *LedgerRepository) attachDetails(ctx context.Context, expenses []ledger.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	ids := make([]string, 0, len(expenses))
	index := make(map[string]int, len(expenses))
	for i := range expenses {
		ids = append(ids, expenses[i].ID)
		index[expenses[i].ID] = i
		expenses[i].Involved = []string{}
		expenses[i].Split = make(map[string]decimal.Decimal)
		expenses[i].Settlements = []ledger.Settlement{}
	}
	in := placeholders(len(ids))

	rows, err := r.q.QueryContext(ctx,
		`SELECT expense_id, user_id, share FROM expense_participants
		 WHERE expense_id IN (`+in+`) ORDER BY expense_id, position`,
		stringArgs(ids)...,
	)
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}
	for rows.Next() {
		var (
			expenseID, userID string
			share             decimal.NullDecimal
		)
		if err := rows.Scan(&expenseID, &userID, &share); err != nil {
			rows.Close()
			return fmt.Errorf("scan participant: %w", err)
		}
		expense := &expenses[index[expenseID]]
		expense.Involved = append(expense.Involved, userID)
		if share.Valid {
			expense.Split[userID] = share.Decimal
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.q.QueryContext(ctx,
		`SELECT id, expense_id, from_user_id, to_user_id, amount, approved, created_at FROM expense_settlements
		 WHERE expense_id IN (`+in+`) ORDER BY created_at, rowid`,
		stringArgs(ids)...,
	)
	if err != nil {
		return fmt.Errorf("load settlements: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			settlement ledger.Settlement
			createdAt  int64
		)
		if err := rows.Scan(&settlement.ID, &settlement.ExpenseID, &settlement.FromUserID, &settlement.ToUserID,
			&settlement.Amount, &settlement.Approved, &createdAt); err != nil {
			return fmt.Errorf("scan settlement: %w", err)
		}
		settlement.CreatedAt = fromUnix(createdAt)
		expense := &expenses[index[settlement.ExpenseID]]
		expense.Settlements = append(expense.Settlements, settlement)
	}
	return rows.Err()
}

func (r *LedgerRepository) SetExpenseStatus(ctx context.Context, expenseID string, status ledger.Status) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE expenses SET approved = ?, rejected = ? WHERE id = ?`,
		status == ledger.StatusApproved, status == ledger.StatusRejected, expenseID,
	)
	if err != nil {
		return fmt.Errorf("update expense status: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ledger.ErrExpenseNotFound
	}
	return nil
}

func (r *LedgerRepository) AppendSettlement(ctx context.Context, settlement *ledger.Settlement) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO expense_settlements (id, expense_id, from_user_id, to_user_id, amount, approved, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		settlement.ID, settlement.ExpenseID, settlement.FromUserID, settlement.ToUserID,
		settlement.Amount.String(), settlement.Approved, toUnix(settlement.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}
	return nil
}

func (r *LedgerRepository) CreateApprovalRequest(ctx context.Context, request *ledger.ApprovalRequest) error {
	var amount any
	if settle, ok := request.Payload.(ledger.SettleApproval); ok {
		amount = settle.Amount.String()
	}

	return inTx(ctx, r.db, r.q, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO approval_requests (id, kind, expense_id, sender_id, rejected, amount, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			request.ID, string(request.Kind()), request.ExpenseID, request.SenderID, request.Rejected,
			amount, toUnix(request.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert approval request: %w", err)
		}
		for i, userID := range request.Receivers {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO approval_receivers (request_id, user_id, position) VALUES (?, ?, ?)`,
				request.ID, userID, i,
			); err != nil {
				return fmt.Errorf("insert approval receiver: %w", err)
			}
		}
		return nil
	})
}

func (r *LedgerRepository) LockApprovalRequest(ctx context.Context, requestID string) (*ledger.ApprovalRequest, error) {
	requests, err := r.queryRequests(ctx, `WHERE id = ?`, requestID)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, ledger.ErrRequestNotFound
	}
	return &requests[0], nil
}

func (r *LedgerRepository) MarkApproved(ctx context.Context, requestID, userID string) (bool, error) {
	result, err := r.q.ExecContext(ctx,
		`UPDATE approval_receivers SET approved_at = ?
		 WHERE request_id = ? AND user_id = ? AND approved_at IS NULL`,
		toUnix(time.Now()), requestID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("mark approved: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *LedgerRepository) DeleteApprovalRequest(ctx context.Context, requestID string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM approval_requests WHERE id = ?`, requestID); err != nil {
		return fmt.Errorf("delete approval request: %w", err)
	}
	return nil
}

func (r *LedgerRepository) ListApprovalRequestsByReceiver(ctx context.Context, userID string) ([]ledger.ApprovalRequest, error) {
	return r.queryRequests(ctx,
		`WHERE id IN (SELECT request_id FROM approval_receivers WHERE user_id = ?) ORDER BY created_at`,
		userID,
	)
}

func (r *LedgerRepository) queryRequests(ctx context.Context, tail string, args ...any) ([]ledger.ApprovalRequest, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, kind, expense_id, sender_id, rejected, amount, created_at FROM approval_requests `+tail,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query approval requests: %w", err)
	}

	requests := make([]ledger.ApprovalRequest, 0)
	for rows.Next() {
		var (
			request   ledger.ApprovalRequest
			kind      string
			amount    decimal.NullDecimal
			createdAt int64
		)
		if err := rows.Scan(&request.ID, &kind, &request.ExpenseID, &request.SenderID, &request.Rejected,
			&amount, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan approval request: %w", err)
		}
		request.CreatedAt = fromUnix(createdAt)
		request.Receivers = []string{}
		request.ApprovedBy = []string{}

		switch ledger.Kind(kind) {
		case ledger.KindExpense:
			request.Payload = ledger.ExpenseApproval{}
		case ledger.KindSettle:
			if !amount.Valid {
				rows.Close()
				return nil, fmt.Errorf("settle request %s has no amount", request.ID)
			}
			request.Payload = ledger.SettleApproval{Amount: amount.Decimal}
		default:
			rows.Close()
			return nil, fmt.Errorf("approval request %s has unknown kind %q", request.ID, kind)
		}
		requests = append(requests, request)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return requests, r.attachReceivers(ctx, requests)
}

func (r *LedgerRepository) attachReceivers(ctx context.Context, requests []ledger.ApprovalRequest) error {
	if len(requests) == 0 {
		return nil
	}

	ids := make([]string, 0, len(requests))
	index := make(map[string]int, len(requests))
	for i := range requests {
		ids = append(ids, requests[i].ID)
		index[requests[i].ID] = i
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT request_id, user_id, approved_at FROM approval_receivers
		 WHERE request_id IN (`+placeholders(len(ids))+`) ORDER BY request_id, position`,
		stringArgs(ids)...,
	)
	if err != nil {
		return fmt.Errorf("load approval receivers: %w", err)
	}
	defer rows.Close()

	type vote struct {
		userID string
		at     int64
	}
	votes := make(map[string][]vote)
	for rows.Next() {
		var (
			requestID, userID string
			approvedAt        sql.NullInt64
		)
		if err := rows.Scan(&requestID, &userID, &approvedAt); err != nil {
			return fmt.Errorf("scan approval receiver: %w", err)
		}
		request := &requests[index[requestID]]
		request.Receivers = append(request.Receivers, userID)
		if approvedAt.Valid {
			votes[requestID] = append(votes[requestID], vote{userID: userID, at: approvedAt.Int64})
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for requestID, cast := range votes {
		sort.SliceStable(cast, func(i, j int) bool { return cast[i].at < cast[j].at })
		request := &requests[index[requestID]]
		for _, v := range cast {
			request.ApprovedBy = append(request.ApprovedBy, v.userID)
		}
	}
	return nil
}

var _ ledger.Repository = (*LedgerRepository)(nil)
