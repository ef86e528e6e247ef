package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	ledgerdomain "splitledger/internal/domain/ledger"
)

type approvalRequestRow struct {
	ID        string              `gorm:"type:uuid;primaryKey"`
	Kind      string              `gorm:"type:varchar(16);not null"`
	ExpenseID string              `gorm:"type:uuid;not null"`
	SenderID  string              `gorm:"type:uuid;not null"`
	Rejected  bool                `gorm:"not null"`
	Amount    decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	CreatedAt time.Time
}

func (approvalRequestRow) TableName() string {
	return "approval_requests"
}

type approvalReceiverRow struct {
	RequestID  string `gorm:"type:uuid;primaryKey"`
	UserID     string `gorm:"type:uuid;primaryKey"`
	Position   int    `gorm:"not null"`
	ApprovedAt *time.Time
}

func (approvalReceiverRow) TableName() string {
	return "approval_receivers"
}

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(ledgerdomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	})
}

func (r *PostgresRepository) CreateExpense(ctx context.Context, expense *ledgerdomain.Expense) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(expense).Error; err != nil {
		return err
	}

	participants := make([]ledgerdomain.Participant, 0, len(expense.Involved))
	for i, userID := range expense.Involved {
		participant := ledgerdomain.Participant{ExpenseID: expense.ID, UserID: userID, Position: i}
		if share, ok := expense.Split[userID]; ok {
			participant.Share = decimal.NewNullDecimal(share)
		}
		participants = append(participants, participant)
	}
	if len(participants) == 0 {
		return nil
	}
	return db.Create(&participants).Error
}

func (r *PostgresRepository) GetExpense(ctx context.Context, expenseID string) (*ledgerdomain.Expense, error) {
	return r.getExpense(ctx, expenseID, false)
}

func (r *PostgresRepository) LockExpense(ctx context.Context, expenseID string) (*ledgerdomain.Expense, error) {
	return r.getExpense(ctx, expenseID, true)
}

func (r *PostgresRepository) getExpense(ctx context.Context, expenseID string, lock bool) (*ledgerdomain.Expense, error) {
	if uuid.Validate(expenseID) != nil {
		return nil, ledgerdomain.ErrExpenseNotFound
	}

	query := r.db.WithContext(ctx).Where("id = ?", expenseID)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var expense ledgerdomain.Expense
	if err := query.First(&expense).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledgerdomain.ErrExpenseNotFound
		}
		return nil, err
	}

	expenses := []ledgerdomain.Expense{expense}
	if err := r.attachDetails(ctx, expenses); err != nil {
		return nil, err
	}
	return &expenses[0], nil
}

func (r *PostgresRepository) ListExpenses(ctx context.Context, filter ledgerdomain.ExpenseFilter) ([]ledgerdomain.Expense, error) {
	query := r.db.WithContext(ctx).Model(&ledgerdomain.Expense{})
	if filter.GroupID != nil {
		if uuid.Validate(*filter.GroupID) != nil {
			return []ledgerdomain.Expense{}, nil
		}
		query = query.Where("group_id = ?", *filter.GroupID)
	}
	if filter.DirectOnly {
		query = query.Where("group_id IS NULL")
	}
	if filter.InvolvedUser != "" {
		query = query.Where(
			"EXISTS (SELECT 1 FROM expense_participants p WHERE p.expense_id = expenses.id AND p.user_id = ?)",
			filter.InvolvedUser,
		)
	}
	if filter.ApprovedOnly {
		query = query.Where("approved = ?", true)
	}

	expenses := make([]ledgerdomain.Expense, 0)
	if err := query.Order("created_at desc").Find(&expenses).Error; err != nil {
		return nil, err
	}
	if err := r.attachDetails(ctx, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// attachDetails loads participants and settlements for a batch of expenses.
func (r *PostgresRepository) attachDetails(ctx context.Context, expenses []ledgerdomain.Expense) error {
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
		expenses[i].Settlements = []ledgerdomain.Settlement{}
	}

	var participants []ledgerdomain.Participant
	if err := r.db.WithContext(ctx).
		Where("expense_id IN ?", ids).
		Order("expense_id, position asc").
		Find(&participants).Error; err != nil {
		return fmt.Errorf("load participants: %w", err)
	}
	for _, participant := range participants {
		expense := &expenses[index[participant.ExpenseID]]
		expense.Involved = append(expense.Involved, participant.UserID)
		if participant.Share.Valid {
			expense.Split[participant.UserID] = participant.Share.Decimal
		}
	}

	var settlements []ledgerdomain.Settlement
	if err := r.db.WithContext(ctx).
		Where("expense_id IN ?", ids).
		Order("created_at asc").
		Find(&settlements).Error; err != nil {
		return fmt.Errorf("load settlements: %w", err)
	}
	for _, settlement := range settlements {
		expense := &expenses[index[settlement.ExpenseID]]
		expense.Settlements = append(expense.Settlements, settlement)
	}
	return nil
}

func (r *PostgresRepository) SetExpenseStatus(ctx context.Context, expenseID string, status ledgerdomain.Status) error {
	result := r.db.WithContext(ctx).
		Model(&ledgerdomain.Expense{}).
		Where("id = ?", expenseID).
		Updates(map[string]interface{}{
			"approved": status == ledgerdomain.StatusApproved,
			"rejected": status == ledgerdomain.StatusRejected,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledgerdomain.ErrExpenseNotFound
	}
	return nil
}

func (r *PostgresRepository) AppendSettlement(ctx context.Context, settlement *ledgerdomain.Settlement) error {
	return r.db.WithContext(ctx).Create(settlement).Error
}

func (r *PostgresRepository) CreateApprovalRequest(ctx context.Context, request *ledgerdomain.ApprovalRequest) error {
	row := approvalRequestRow{
		ID:        request.ID,
		Kind:      string(request.Kind()),
		ExpenseID: request.ExpenseID,
		SenderID:  request.SenderID,
		Rejected:  request.Rejected,
		CreatedAt: request.CreatedAt,
	}
	if settle, ok := request.Payload.(ledgerdomain.SettleApproval); ok {
		row.Amount = decimal.NewNullDecimal(settle.Amount)
	}

	db := r.db.WithContext(ctx)
	if err := db.Create(&row).Error; err != nil {
		return err
	}

	receivers := make([]approvalReceiverRow, 0, len(request.Receivers))
	for i, userID := range request.Receivers {
		receivers = append(receivers, approvalReceiverRow{RequestID: request.ID, UserID: userID, Position: i})
	}
	if len(receivers) == 0 {
		return nil
	}
	return db.Create(&receivers).Error
}

func (r *PostgresRepository) LockApprovalRequest(ctx context.Context, requestID string) (*ledgerdomain.ApprovalRequest, error) {
	if uuid.Validate(requestID) != nil {
		return nil, ledgerdomain.ErrRequestNotFound
	}

	var row approvalRequestRow
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", requestID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledgerdomain.ErrRequestNotFound
		}
		return nil, err
	}

	requests, err := r.assembleRequests(ctx, []approvalRequestRow{row})
	if err != nil {
		return nil, err
	}
	return &requests[0], nil
}

// MarkApproved stamps the receiver row only if it has not voted yet, so a
// repeated vote affects no rows.
func (r *PostgresRepository) MarkApproved(ctx context.Context, requestID, userID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&approvalReceiverRow{}).
		Where("request_id = ? AND user_id = ? AND approved_at IS NULL", requestID, userID).
		Update("approved_at", time.Now().UTC())
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DeleteApprovalRequest relies on ON DELETE CASCADE for receiver rows.
func (r *PostgresRepository) DeleteApprovalRequest(ctx context.Context, requestID string) error {
	return r.db.WithContext(ctx).Delete(&approvalRequestRow{}, "id = ?", requestID).Error
}

func (r *PostgresRepository) ListApprovalRequestsByReceiver(ctx context.Context, userID string) ([]ledgerdomain.ApprovalRequest, error) {
	if uuid.Validate(userID) != nil {
		return []ledgerdomain.ApprovalRequest{}, nil
	}

	var rows []approvalRequestRow
	if err := r.db.WithContext(ctx).
		Where("id IN (?)", r.db.Model(&approvalReceiverRow{}).Select("request_id").Where("user_id = ?", userID)).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.assembleRequests(ctx, rows)
}

func (r *PostgresRepository) assembleRequests(ctx context.Context, rows []approvalRequestRow) ([]ledgerdomain.ApprovalRequest, error) {
	requests := make([]ledgerdomain.ApprovalRequest, 0, len(rows))
	if len(rows) == 0 {
		return requests, nil
	}

	ids := make([]string, 0, len(rows))
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		request, err := requestFromRow(row)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
		ids = append(ids, row.ID)
		index[row.ID] = i
	}

	var receivers []approvalReceiverRow
	if err := r.db.WithContext(ctx).
		Where("request_id IN ?", ids).
		Order("request_id, position asc").
		Find(&receivers).Error; err != nil {
		return nil, fmt.Errorf("load receivers: %w", err)
	}

	approvedAt := make(map[string][]approvalReceiverRow)
	for _, receiver := range receivers {
		request := &requests[index[receiver.RequestID]]
		request.Receivers = append(request.Receivers, receiver.UserID)
		if receiver.ApprovedAt != nil {
			approvedAt[receiver.RequestID] = append(approvedAt[receiver.RequestID], receiver)
		}
	}
	for requestID, voted := range approvedAt {
		sort.SliceStable(voted, func(i, j int) bool {
			return voted[i].ApprovedAt.Before(*voted[j].ApprovedAt)
		})
		request := &requests[index[requestID]]
		for _, receiver := range voted {
			request.ApprovedBy = append(request.ApprovedBy, receiver.UserID)
		}
	}
	return requests, nil
}

func requestFromRow(row approvalRequestRow) (ledgerdomain.ApprovalRequest, error) {
	request := ledgerdomain.ApprovalRequest{
		ID:         row.ID,
		ExpenseID:  row.ExpenseID,
		SenderID:   row.SenderID,
		Receivers:  []string{},
		ApprovedBy: []string{},
		Rejected:   row.Rejected,
		CreatedAt:  row.CreatedAt,
	}
	switch ledgerdomain.Kind(row.Kind) {
	case ledgerdomain.KindExpense:
		request.Payload = ledgerdomain.ExpenseApproval{}
	case ledgerdomain.KindSettle:
		if !row.Amount.Valid {
			return request, fmt.Errorf("settle request %s has no amount", row.ID)
		}
		request.Payload = ledgerdomain.SettleApproval{Amount: row.Amount.Decimal}
	default:
		return request, fmt.Errorf("approval request %s has unknown kind %q", row.ID, row.Kind)
	}
	return request, nil
}

