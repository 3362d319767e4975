package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"solana-sniper/internal/approval"
	"solana-sniper/internal/domain"
	"solana-sniper/internal/service"
	"solana-sniper/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	maxBodyBytes     = 1 << 20
)

type handlers struct {
	deps Deps
	log  logrus.FieldLogger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeStoreError maps domain and storage errors onto status codes.
func (h *handlers) writeStoreError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, approval.ErrMatchNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrDuplicateKey):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrInvalidRule), errors.Is(err, domain.ErrInvalidAccount), errors.Is(err, storage.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.WithError(err).WithField("path", r.URL.Path).Error(op)
		writeError(w, http.StatusInternalServerError, op)
	}
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- rules ---

type listRulesResponse struct {
	Rules []*domain.Rule `json:"rules"`
}

func (h *handlers) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.deps.Rules.List(r.Context())
	if err != nil {
		h.writeStoreError(w, r, err, "failed to list rules")
		return
	}
	if rules == nil {
		rules = []*domain.Rule{}
	}
	writeJSON(w, http.StatusOK, listRulesResponse{Rules: rules})
}

func (h *handlers) createRule(w http.ResponseWriter, r *http.Request) {
	var rule domain.Rule
	if !decodeBody(w, r, &rule) {
		return
	}
	created, err := h.deps.Rules.Create(r.Context(), &rule)
	if err != nil {
		h.writeStoreError(w, r, err, "failed to create rule")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handlers) getRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.deps.Rules.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, r, err, "failed to get rule")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (h *handlers) updateRule(w http.ResponseWriter, r *http.Request) {
	var rule domain.Rule
	if !decodeBody(w, r, &rule) {
		return
	}
	updated, err := h.deps.Rules.Update(r.Context(), chi.URLParam(r, "id"), &rule)
	if err != nil {
		h.writeStoreError(w, r, err, "failed to update rule")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handlers) deleteRule(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Rules.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeStoreError(w, r, err, "failed to delete rule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) setRuleEnabled(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := h.deps.Rules.SetEnabled(r.Context(), id, enabled); err != nil {
			h.writeStoreError(w, r, err, "failed to update rule")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "enabled": enabled})
	}
}

// --- accounts ---

type listAccountsResponse struct {
	Accounts []*domain.Account `json:"accounts"`
}

func (h *handlers) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.deps.Accounts.List(r.Context())
	if err != nil {
		h.writeStoreError(w, r, err, "failed to list accounts")
		return
	}
	if accounts == nil {
		accounts = []*domain.Account{}
	}
	writeJSON(w, http.StatusOK, listAccountsResponse{Accounts: accounts})
}

func (h *handlers) addAccount(w http.ResponseWriter, r *http.Request) {
	var in service.NewAccount
	if !decodeBody(w, r, &in) {
		return
	}
	acc, err := h.deps.Accounts.Add(r.Context(), in)
	if err != nil {
		h.writeStoreError(w, r, err, "failed to add account")
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

func (h *handlers) setAccountActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := h.deps.Accounts.SetActive(r.Context(), id, active); err != nil {
			h.writeStoreError(w, r, err, "failed to update account")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "active": active})
	}
}

// --- approvals ---

type listPendingResponse struct {
	Pending []approval.Pending `json:"pending"`
}

type approveResponse struct {
	MatchID string `json:"match_id"`
	Status  string `json:"status"`
}

func (h *handlers) listPending(w http.ResponseWriter, _ *http.Request) {
	pending := []approval.Pending{}
	if h.deps.Approvals != nil {
		pending = append(pending, h.deps.Approvals.Pending()...)
	}
	writeJSON(w, http.StatusOK, listPendingResponse{Pending: pending})
}

// approveMatch claims the match and returns before the acquisition finishes.
// Its records appear under /api/transactions?match_id=.
func (h *handlers) approveMatch(w http.ResponseWriter, r *http.Request) {
	if h.deps.Approvals == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	id := chi.URLParam(r, "id")
	switch err := h.deps.Approvals.Dispatch(id); {
	case errors.Is(err, approval.ErrGateClosed):
		writeError(w, http.StatusServiceUnavailable, "shutting down")
		return
	case err != nil:
		h.writeStoreError(w, r, err, "failed to approve match")
		return
	}
	writeJSON(w, http.StatusAccepted, approveResponse{MatchID: id, Status: "executing"})
}

func (h *handlers) rejectMatch(w http.ResponseWriter, r *http.Request) {
	if h.deps.Approvals == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.deps.Approvals.Reject(id); err != nil {
		h.writeStoreError(w, r, err, "failed to reject match")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"match_id": id, "status": "rejected"})
}

// --- transactions and stats ---

type listTransactionsResponse struct {
	Transactions []*domain.TransactionRecord `json:"transactions"`
}

func (h *handlers) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultListLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	var (
		records []*domain.TransactionRecord
		err     error
	)
	switch {
	case q.Get("mint") != "":
		records, err = h.deps.Transactions.GetByMint(r.Context(), q.Get("mint"))
	case q.Get("match_id") != "":
		records, err = h.deps.Transactions.GetByMatchID(r.Context(), q.Get("match_id"))
	default:
		records, err = h.deps.Transactions.ListRecent(r.Context(), limit)
	}
	if err != nil {
		h.writeStoreError(w, r, err, "failed to list transactions")
		return
	}

	if len(records) > limit {
		records = records[len(records)-limit:]
	}
	if records == nil {
		records = []*domain.TransactionRecord{}
	}
	writeJSON(w, http.StatusOK, listTransactionsResponse{Transactions: records})
}

type statsResponse struct {
	domain.SafetyState
	SuccessRate      float64 `json:"success_rate"`
	PendingApprovals int     `json:"pending_approvals"`
}

func (h *handlers) stats(w http.ResponseWriter, _ *http.Request) {
	snap := h.deps.Safety.Snapshot(h.deps.Now())
	resp := statsResponse{SafetyState: snap, SuccessRate: snap.SuccessRate()}
	if h.deps.Approvals != nil {
		resp.PendingApprovals = len(h.deps.Approvals.Pending())
	}
	writeJSON(w, http.StatusOK, resp)
}
