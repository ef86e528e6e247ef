package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SplitEqual  = "equal"
	SplitCustom = "custom"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Expense is a cost paid by PayerID and divided among Involved users.
// A nil GroupID marks a direct expense between users.
type Expense struct {
	ID          string          `gorm:"type:uuid;primaryKey"`
	GroupID     *string         `gorm:"type:uuid;index"`
	Description string          `gorm:"not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	PayerID     string          `gorm:"type:uuid;index;not null"`
	CreatedBy   string          `gorm:"type:uuid;not null"`
	SplitType   string          `gorm:"type:varchar(16);not null"`
	Approved    bool            `gorm:"not null;default:false"`
	Rejected    bool            `gorm:"not null;default:false"`
	CreatedAt   time.Time       `gorm:"autoCreateTime"`

	Involved    []string                   `gorm:"-"`
	Split       map[string]decimal.Decimal `gorm:"-"`
	Settlements []Settlement               `gorm:"-"`
}

func (e *Expense) Status() Status {
	switch {
	case e.Approved:
		return StatusApproved
	case e.Rejected:
		return StatusRejected
	default:
		return StatusPending
	}
}

func (e *Expense) IsInvolved(userID string) bool {
	return containsID(e.Involved, userID)
}

// Outstanding returns what fromUserID still owes the payer for this
// expense after approved settlements.
func (e *Expense) Outstanding(fromUserID string) decimal.Decimal {
	owed := e.Split[fromUserID]
	for _, settlement := range e.Settlements {
		if settlement.Approved && settlement.FromUserID == fromUserID && settlement.ToUserID == e.PayerID {
			owed = owed.Sub(settlement.Amount)
		}
	}
	return owed
}

// Participant is one involved user of an expense together with the share
// they owe. Share is null for involved users that carry no share.
type Participant struct {
	ExpenseID string              `gorm:"type:uuid;primaryKey"`
	UserID    string              `gorm:"type:uuid;primaryKey;index"`
	Share     decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	Position  int                 `gorm:"not null"`
}

func (Participant) TableName() string {
	return "expense_participants"
}

// Settlement records a payment from FromUserID to ToUserID against one
// expense. Rejected settle requests are kept with Approved=false.
type Settlement struct {
	ID         string          `gorm:"type:uuid;primaryKey"`
	ExpenseID  string          `gorm:"type:uuid;index;not null"`
	FromUserID string          `gorm:"type:uuid;not null"`
	ToUserID   string          `gorm:"type:uuid;not null"`
	Amount     decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Approved   bool            `gorm:"not null"`
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
}

func (Settlement) TableName() string {
	return "expense_settlements"
}

type ExpenseFilter struct {
	GroupID      *string
	DirectOnly   bool
	InvolvedUser string
	ApprovedOnly bool
}

type CreateExpenseInput struct {
	GroupID     *string
	Description string
	Amount      decimal.Decimal
	PayerID     string
	Involved    []string
	SplitType   string
	Split       map[string]decimal.Decimal
}

type CreateSettleInput struct {
	ExpenseID  string
	ReceiverID string
	Amount     decimal.Decimal
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
