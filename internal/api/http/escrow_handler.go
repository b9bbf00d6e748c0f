package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/security"
	"rental-escrow-backend/internal/service"
)

// Pinger reports whether the ledger database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EscrowHandler serves the read-only HTTP surface next to the gRPC API.
type EscrowHandler struct {
	escrowSvc service.EscrowService
	tokens    security.TokenManager
	db        Pinger
}

func NewEscrowHandler(escrowSvc service.EscrowService, tokens security.TokenManager, db Pinger) *EscrowHandler {
	return &EscrowHandler{
		escrowSvc: escrowSvc,
		tokens:    tokens,
		db:        db,
	}
}

type errorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// HandleHealth reports 200 when the database answers within two seconds.
func (h *EscrowHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		logger.Warn("Health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *EscrowHandler) HandleGetEscrow(w http.ResponseWriter, r *http.Request) {
	id, ok := escrowID(w, r)
	if !ok {
		return
	}
	agreement, err := h.escrowSvc.GetEscrow(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agreement)
}

func (h *EscrowHandler) HandleUserEscrows(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	agreements, err := h.escrowSvc.GetUserEscrows(r.Context(), callerFromContext(r.Context()), address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"escrows": agreements})
}

func (h *EscrowHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := escrowID(w, r)
	if !ok {
		return
	}
	events, err := h.escrowSvc.ListEvents(r.Context(), callerFromContext(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// RequireToken rejects requests without a valid bearer access token and puts the
// caller address on the request context.
func (h *EscrowHandler) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimSpace(header)
		if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
			token = token[7:]
		}
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Code: "UNAUTHENTICATED", Message: "authorization token is not provided"})
			return
		}
		claims, err := h.tokens.ValidateToken(token)
		if err != nil || claims.Type != security.TokenTypeAccess {
			writeJSON(w, http.StatusUnauthorized, errorBody{Code: "UNAUTHENTICATED", Message: "invalid token"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, claims.Address)))
	})
}

type callerKey struct{}

// callerFromContext returns the address RequireToken authenticated, or "".
func callerFromContext(ctx context.Context) string {
	address, _ := ctx.Value(callerKey{}).(string)
	return address
}

// RegisterRoutes registers health, metrics and the escrow read endpoints.
func RegisterRoutes(router *mux.Router, h *EscrowHandler, gatherer prometheus.Gatherer) {
	router.HandleFunc("/healthz", h.HandleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/escrows/{id}", h.HandleGetEscrow).Methods(http.MethodGet)

	private := v1.NewRoute().Subrouter()
	private.Use(h.RequireToken)
	private.HandleFunc("/users/{address}/escrows", h.HandleUserEscrows).Methods(http.MethodGet)
	private.HandleFunc("/escrows/{id}/events", h.HandleEvents).Methods(http.MethodGet)
}

func escrowID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "INVALID_ARGUMENT", Message: "escrow id must be a positive integer"})
		return 0, false
	}
	return id, true
}

func httpStatus(code domain.ErrorCode) int {
	switch code {
	case domain.CodeEscrowNotFound:
		return http.StatusNotFound
	case domain.CodeUnauthorizedAccess:
		return http.StatusForbidden
	case domain.CodeInvalidEscrowState, domain.CodeRentalNotEnded, domain.CodeDisputeTimeoutExceeded,
		domain.CodeInsufficientFees:
		return http.StatusConflict
	case domain.CodeRateLimited:
		return http.StatusTooManyRequests
	case domain.CodeTransferFailed:
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func writeError(w http.ResponseWriter, err error) {
	var e *domain.Error
	if !errors.As(err, &e) {
		logger.Error("HTTP request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: "internal error"})
		return
	}
	writeJSON(w, httpStatus(e.Code), errorBody{Code: string(e.Code), Message: e.Message, Metadata: e.Metadata()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode HTTP response", "error", err)
	}
}
