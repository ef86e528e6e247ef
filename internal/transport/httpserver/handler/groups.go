package handler

import (
	"net/http"
	"time"

	"splitledger/internal/domain/balances"
	"splitledger/internal/domain/group"
	"splitledger/internal/domain/user"
)

type createGroupRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIds"`
}

type inviteRequest struct {
	Email string `json:"email"`
}

type groupResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type groupDetailsResponse struct {
	groupResponse
	Members []user.Profile `json:"members"`
}

func toGroupResponse(g group.Group) groupResponse {
	return groupResponse{
		ID:        g.ID,
		Name:      g.Name,
		CreatedBy: g.CreatedBy,
		CreatedAt: g.CreatedAt,
	}
}

func (h *Handlers) ListGroups(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	groups, err := h.Groups.ListGroups(r.Context(), userID)
	if err != nil {
		h.fail(w, "groups.list", err, "user_id", userID)
		return
	}

	response := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		response = append(response, toGroupResponse(g))
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": response})
}

func (h *Handlers) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	created, err := h.Groups.CreateGroup(r.Context(), userID, group.CreateGroupInput{
		Name:      req.Name,
		MemberIDs: req.MemberIDs,
	})
	if err != nil {
		h.fail(w, "groups.create", err, "user_id", userID)
		return
	}

	writeJSON(w, http.StatusCreated, toGroupResponse(*created))
}

func (h *Handlers) GetGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID := pathParam(r, "group_id")

	details, err := h.Groups.GetGroup(r.Context(), userID, groupID)
	if err != nil {
		h.fail(w, "groups.get", err, "user_id", userID, "group_id", groupID)
		return
	}

	writeJSON(w, http.StatusOK, groupDetailsResponse{
		groupResponse: toGroupResponse(details.Group),
		Members:       details.Members,
	})
}

func (h *Handlers) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID := pathParam(r, "group_id")

	if err := h.Groups.DeleteGroup(r.Context(), userID, groupID); err != nil {
		h.fail(w, "groups.delete", err, "user_id", userID, "group_id", groupID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) JoinGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID := pathParam(r, "group_id")

	joined, err := h.Groups.JoinGroup(r.Context(), userID, groupID)
	if err != nil {
		h.fail(w, "groups.join", err, "user_id", userID, "group_id", groupID)
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponse(*joined))
}

func (h *Handlers) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID := pathParam(r, "group_id")

	if err := h.Groups.LeaveGroup(r.Context(), userID, groupID); err != nil {
		h.fail(w, "groups.leave", err, "user_id", userID, "group_id", groupID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) InviteMember(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID := pathParam(r, "group_id")

	added, err := h.Groups.InviteByEmail(r.Context(), userID, groupID, req.Email)
	if err != nil {
		h.fail(w, "groups.invite", err, "user_id", userID, "group_id", groupID)
		return
	}

	writeJSON(w, http.StatusOK, added)
}

type debtResponse struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount money  `json:"amount"`
}

type summaryResponse struct {
	TotalOwe  money            `json:"totalOwe"`
	TotalOwed money            `json:"totalOwed"`
	PerUser   map[string]money `json:"perUser"`
}

type aggregationResponse struct {
	Debts              []debtResponse  `json:"debts"`
	CurrentUserSummary summaryResponse `json:"currentUserSummary"`
}

func toAggregationResponse(a *balances.Aggregation) aggregationResponse {
	debts := make([]debtResponse, 0, len(a.Debts))
	for _, edge := range a.Debts {
		debts = append(debts, debtResponse{From: edge.From, To: edge.To, Amount: money(edge.Amount)})
	}
	return aggregationResponse{
		Debts: debts,
		CurrentUserSummary: summaryResponse{
			TotalOwe:  money(a.CurrentUserSummary.TotalOwe),
			TotalOwed: money(a.CurrentUserSummary.TotalOwed),
			PerUser:   toMoneyMap(a.CurrentUserSummary.PerUser),
		},
	}
}

func (h *Handlers) GroupAggregation(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	groupID := pathParam(r, "group_id")

	aggregation, err := h.Balances.GroupAggregation(r.Context(), groupID, userID)
	if err != nil {
		h.fail(w, "groups.aggregation", err, "user_id", userID, "group_id", groupID)
		return
	}

	writeJSON(w, http.StatusOK, toAggregationResponse(aggregation))
}
