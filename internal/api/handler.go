package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/punchamoorthee/mxledger/internal/domain"
	"github.com/punchamoorthee/mxledger/internal/models"
	"github.com/punchamoorthee/mxledger/internal/service"
	"github.com/punchamoorthee/mxledger/internal/store"
)

// Metrics
var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "endpoint"})
)

type MxTransactionService interface {
	RecordTransaction(ctx context.Context, in service.RecordTransactionInput) (service.RecordResult, error)
	GetLedger(ctx context.Context, id uuid.UUID) (*domain.MxLedger, error)
	GetScheduledLedger(ctx context.Context, id uuid.UUID) (*domain.MxScheduledLedger, error)
}

type TransferStatusResolver interface {
	ResolveByID(ctx context.Context, transferID int64) (*domain.Transfer, domain.TransferStatus, error)
}

type Handler struct {
	mxTxns    MxTransactionService
	transfers TransferStatusResolver
	logger    *zap.Logger
}

func NewHandler(mxTxns MxTransactionService, transfers TransferStatusResolver, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{mxTxns: mxTxns, transfers: transfers, logger: logger}
}

// Routes registers every endpoint on r.
func (h *Handler) Routes(r *mux.Router) {
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.Health).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/mx_transactions", h.CreateMxTransaction).Methods("POST")
	apiV1.HandleFunc("/mx_ledgers/{id}", h.GetMxLedger).Methods("GET")
	apiV1.HandleFunc("/mx_scheduled_ledgers/{id}", h.GetMxScheduledLedger).Methods("GET")
	apiV1.HandleFunc("/transfers/{id}/status", h.GetTransferStatus).Methods("GET")
}

// Helpers
func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpReqTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) respondError(w http.ResponseWriter, code int, errCode, msg string, retryable bool, method, endpoint string) {
	h.respondJSON(w, code, models.ErrorResponse{ErrorCode: errCode, ErrorMessage: msg, Retryable: retryable}, method, endpoint)
}

// respondServiceError maps classified errors onto HTTP statuses. Unclassified errors are 500s.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error, method, endpoint string) {
	var le *domain.LedgerError
	switch {
	case errors.As(err, &le):
		h.respondError(w, ledgerErrorStatus(le.Code), string(le.Code), le.Message, le.Retryable, method, endpoint)
	case errors.Is(err, domain.ErrInvalidInput):
		h.respondError(w, http.StatusUnprocessableEntity, "invalid_input", err.Error(), false, method, endpoint)
	case errors.Is(err, store.ErrLedgerNotOpen):
		h.respondError(w, http.StatusConflict, "mx_ledger_not_open", "mx_ledger was closed, retry to open a new one", true, method, endpoint)
	case errors.Is(err, store.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "not_found", "Not Found", false, method, endpoint)
	default:
		h.logger.Error("[api] unhandled error", zap.String("endpoint", endpoint), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "internal_error", "Internal Server Error", false, method, endpoint)
	}
}

func ledgerErrorStatus(code domain.LedgerErrorCode) int {
	switch code {
	case domain.MxLedgerNotFound, domain.MxScheduledLedgerNotFound:
		return http.StatusNotFound
	case domain.MxLedgerCreateUniqueViolationError:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
