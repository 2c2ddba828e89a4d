package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/punchamoorthee/mxledger/internal/domain"
	"github.com/punchamoorthee/mxledger/internal/models"
	"github.com/punchamoorthee/mxledger/internal/service"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "GET", "/health")
}

func (h *Handler) CreateMxTransaction(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/mx_transactions"))
	defer timer.ObserveDuration()

	var req models.CreateMxTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON", false, "POST", "/mx_transactions")
		return
	}

	// The header wins over the body field.
	if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" {
		req.IdempotencyKey = key
	}

	res, err := h.mxTxns.RecordTransaction(r.Context(), service.RecordTransactionInput{
		PaymentAccountID:    req.PaymentAccountID,
		TargetType:          domain.MxTransactionType(req.TargetType),
		Amount:              req.Amount,
		Currency:            req.Currency,
		IdempotencyKey:      req.IdempotencyKey,
		RoutingKey:          req.RoutingKey,
		IntervalType:        domain.MxScheduledLedgerIntervalType(req.IntervalType),
		TargetID:            req.TargetID,
		Context:             req.Context,
		Metadata:            req.Metadata,
		LegacyTransactionID: req.LegacyTransactionID,
	})
	if err != nil {
		h.respondServiceError(w, err, "POST", "/mx_transactions")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/mx_ledgers/%s", res.Transaction.LedgerID))
	h.respondJSON(w, http.StatusCreated, models.CreateMxTransactionResponse{
		Transaction: *res.Transaction,
		Outcome:     string(res.Outcome),
	}, "POST", "/mx_transactions")
}

func (h *Handler) GetMxLedger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_id", "Invalid ledger id", false, "GET", "/mx_ledgers/{id}")
		return
	}

	ledger, err := h.mxTxns.GetLedger(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err, "GET", "/mx_ledgers/{id}")
		return
	}
	h.respondJSON(w, http.StatusOK, ledger, "GET", "/mx_ledgers/{id}")
}

func (h *Handler) GetMxScheduledLedger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_id", "Invalid scheduled ledger id", false, "GET", "/mx_scheduled_ledgers/{id}")
		return
	}

	sl, err := h.mxTxns.GetScheduledLedger(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err, "GET", "/mx_scheduled_ledgers/{id}")
		return
	}
	h.respondJSON(w, http.StatusOK, sl, "GET", "/mx_scheduled_ledgers/{id}")
}

func (h *Handler) GetTransferStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_id", "Invalid transfer id", false, "GET", "/transfers/{id}/status")
		return
	}

	transfer, status, err := h.transfers.ResolveByID(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err, "GET", "/transfers/{id}/status")
		return
	}

	resp := models.TransferStatusResponse{TransferID: transfer.ID, Resolved: status.Resolved()}
	if status.Resolved() {
		s := string(status)
		resp.Status = &s
	}
	h.respondJSON(w, http.StatusOK, resp, "GET", "/transfers/{id}/status")
}
