package handler

import (
	"context"
	"net/http"
	"time"

	"splitledger/internal/domain/ledger"
)

type respondRequest struct {
	Accept *bool `json:"accept"`
}

type approvalRequestResponse struct {
	ID         string      `json:"id"`
	Type       ledger.Kind `json:"type"`
	ExpenseID  string      `json:"expenseId"`
	SenderID   string      `json:"senderId"`
	Receivers  []string    `json:"receivers"`
	ApprovedBy []string    `json:"approvedBy"`
	Rejected   bool        `json:"rejected"`
	Amount     *money      `json:"amount,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

type pendingApprovalResponse struct {
	Request approvalRequestResponse `json:"request"`
	Expense expenseResponse         `json:"expense"`
}

type respondResponse struct {
	RequestID  string              `json:"requestId"`
	Type       ledger.Kind         `json:"type"`
	Outcome    ledger.Outcome      `json:"outcome"`
	ExpenseID  string              `json:"expenseId"`
	Settlement *settlementResponse `json:"settlement,omitempty"`
	Outdated   bool                `json:"outdated,omitempty"`
}

func toApprovalRequestResponse(req ledger.ApprovalRequest) approvalRequestResponse {
	response := approvalRequestResponse{
		ID:         req.ID,
		Type:       req.Kind(),
		ExpenseID:  req.ExpenseID,
		SenderID:   req.SenderID,
		Receivers:  req.Receivers,
		ApprovedBy: req.ApprovedBy,
		Rejected:   req.Rejected,
		CreatedAt:  req.CreatedAt,
	}
	if response.ApprovedBy == nil {
		response.ApprovedBy = []string{}
	}
	if settle, ok := req.Payload.(ledger.SettleApproval); ok {
		amount := money(settle.Amount)
		response.Amount = &amount
	}
	return response
}

func (h *Handlers) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	pending, err := h.Ledger.ListPendingApprovals(r.Context(), userID)
	if err != nil {
		h.fail(w, "approvals.pending", err, "user_id", userID)
		return
	}

	response := make([]pendingApprovalResponse, 0, len(pending))
	for _, item := range pending {
		response = append(response, pendingApprovalResponse{
			Request: toApprovalRequestResponse(item.Request),
			Expense: toExpenseResponse(item.Expense),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": response})
}

func (h *Handlers) RespondExpense(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "approvals.expense", h.Ledger.RespondToExpenseApproval)
}

func (h *Handlers) RespondSettle(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "approvals.settle", h.Ledger.RespondToSettleApproval)
}

type respondFunc func(ctx context.Context, requestID, callerID string, accept bool) (*ledger.RespondResult, error)

func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, op string, fn respondFunc) {
	var req respondRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if req.Accept == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "accept is required")
		return
	}

	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	requestID := pathParam(r, "request_id")

	result, err := fn(r.Context(), requestID, userID, *req.Accept)
	if err != nil {
		h.fail(w, op, err, "user_id", userID, "request_id", requestID)
		return
	}

	h.log.Info(op+": vote recorded", "request_id", requestID, "user_id", userID, "accept", *req.Accept, "outcome", result.Outcome)

	response := respondResponse{
		RequestID: result.RequestID,
		Type:      result.Kind,
		Outcome:   result.Outcome,
		ExpenseID: result.ExpenseID,
		Outdated:  result.Outdated,
	}
	if result.Settlement != nil {
		settlement := toSettlementResponse(*result.Settlement)
		response.Settlement = &settlement
	}
	writeJSON(w, http.StatusOK, response)
}
