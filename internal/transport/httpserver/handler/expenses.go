package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"splitledger/internal/domain/ledger"
)

type createExpenseRequest struct {
	GroupID     *string                    `json:"groupId"`
	Description string                     `json:"description"`
	Amount      decimal.Decimal            `json:"amount"`
	PayerID     string                     `json:"payerId"`
	Involved    []string                   `json:"involved"`
	SplitType   string                     `json:"splitType"`
	Split       map[string]decimal.Decimal `json:"split"`
}

type settleRequest struct {
	ReceiverID string          `json:"receiverId"`
	Amount     decimal.Decimal `json:"amount"`
}

type settlementResponse struct {
	ID         string    `json:"id"`
	FromUserID string    `json:"from"`
	ToUserID   string    `json:"to"`
	Amount     money     `json:"amount"`
	Approved   bool      `json:"approved"`
	CreatedAt  time.Time `json:"createdAt"`
}

type expenseResponse struct {
	ID          string               `json:"id"`
	GroupID     *string              `json:"groupId"`
	Description string               `json:"description"`
	Amount      money                `json:"amount"`
	PayerID     string               `json:"payerId"`
	CreatedBy   string               `json:"createdBy"`
	SplitType   string               `json:"splitType"`
	Involved    []string             `json:"involved"`
	Split       map[string]money     `json:"split"`
	Status      ledger.Status        `json:"status"`
	Approved    bool                 `json:"approved"`
	Rejected    bool                 `json:"rejected"`
	Settlements []settlementResponse `json:"settlements"`
	CreatedAt   time.Time            `json:"createdAt"`
}

type createExpenseResponse struct {
	Expense expenseResponse          `json:"expense"`
	Request *approvalRequestResponse `json:"request"`
}

func toSettlementResponse(s ledger.Settlement) settlementResponse {
	return settlementResponse{
		ID:         s.ID,
		FromUserID: s.FromUserID,
		ToUserID:   s.ToUserID,
		Amount:     money(s.Amount),
		Approved:   s.Approved,
		CreatedAt:  s.CreatedAt,
	}
}

func toExpenseResponse(e ledger.Expense) expenseResponse {
	settlements := make([]settlementResponse, 0, len(e.Settlements))
	for _, s := range e.Settlements {
		settlements = append(settlements, toSettlementResponse(s))
	}
	return expenseResponse{
		ID:          e.ID,
		GroupID:     e.GroupID,
		Description: e.Description,
		Amount:      money(e.Amount),
		PayerID:     e.PayerID,
		CreatedBy:   e.CreatedBy,
		SplitType:   e.SplitType,
		Involved:    e.Involved,
		Split:       toMoneyMap(e.Split),
		Status:      e.Status(),
		Approved:    e.Approved,
		Rejected:    e.Rejected,
		Settlements: settlements,
		CreatedAt:   e.CreatedAt,
	}
}

func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID := groupIDQuery(r)

	items, err := h.Ledger.ListExpenses(r.Context(), userID, groupID)
	if err != nil {
		h.fail(w, "expenses.list", err, "user_id", userID)
		return
	}

	response := make([]expenseResponse, 0, len(items))
	for _, expense := range items {
		response = append(response, toExpenseResponse(expense))
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": response})
}

func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	expense, request, err := h.Ledger.CreateExpense(r.Context(), userID, ledger.CreateExpenseInput{
		GroupID:     optionalID(req.GroupID),
		Description: req.Description,
		Amount:      req.Amount,
		PayerID:     req.PayerID,
		Involved:    req.Involved,
		SplitType:   req.SplitType,
		Split:       req.Split,
	})
	if err != nil {
		h.fail(w, "expenses.create", err, "user_id", userID)
		return
	}

	response := createExpenseResponse{Expense: toExpenseResponse(*expense)}
	if request != nil {
		converted := toApprovalRequestResponse(*request)
		response.Request = &converted
	}
	h.log.Info("expenses.create: expense created", "expense_id", expense.ID, "user_id", userID, "status", expense.Status())
	writeJSON(w, http.StatusCreated, response)
}

func (h *Handlers) GetExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	expenseID := pathParam(r, "expense_id")

	expense, err := h.Ledger.GetExpense(r.Context(), userID, expenseID)
	if err != nil {
		h.fail(w, "expenses.get", err, "user_id", userID, "expense_id", expenseID)
		return
	}

	writeJSON(w, http.StatusOK, toExpenseResponse(*expense))
}

func (h *Handlers) SettleExpense(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	expenseID := pathParam(r, "expense_id")

	request, err := h.Ledger.CreateSettleRequest(r.Context(), userID, ledger.CreateSettleInput{
		ExpenseID:  expenseID,
		ReceiverID: req.ReceiverID,
		Amount:     req.Amount,
	})
	if err != nil {
		h.fail(w, "expenses.settle", err, "user_id", userID, "expense_id", expenseID)
		return
	}

	h.log.Info("expenses.settle: settle requested", "request_id", request.ID, "expense_id", expenseID, "user_id", userID)
	writeJSON(w, http.StatusCreated, toApprovalRequestResponse(*request))
}
