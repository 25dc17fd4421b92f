package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/waseembabar1113-crypto/Treasure-money-backend/internal/domain"
	"github.com/waseembabar1113-crypto/Treasure-money-backend/internal/service"
)

type Handler struct {
	svc service.LedgerService
}

func NewHandler(svc service.LedgerService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /accounts", h.CreateAccount)
	mux.HandleFunc("GET /accounts/{id}", h.GetAccount)
	mux.HandleFunc("GET /accounts/{id}/balance", h.GetBalance)
	mux.HandleFunc("POST /deposits", h.CreateDeposit)
	mux.HandleFunc("GET /deposits/{id}", h.GetDeposit)
	mux.HandleFunc("POST /withdrawals", h.CreateWithdrawal)
	mux.HandleFunc("POST /payments/confirm", h.ConfirmPayment)
	mux.HandleFunc("GET /simulator", h.Simulator)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	acc, err := h.svc.CreateAccount(r.Context(), req)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, acc)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := h.svc.GetAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, acc)
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := h.svc.GetBalance(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]int64{"balance": bal})
}

func (h *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	intent, err := h.svc.CreateDepositIntent(r.Context(), req)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, intent)
}

func (h *Handler) GetDeposit(w http.ResponseWriter, r *http.Request) {
	intent, err := h.svc.GetDepositIntent(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, intent)
}

func (h *Handler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateWithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	intent, err := h.svc.CreateWithdrawIntent(r.Context(), req)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, intent)
}

// confirmPayload is the wire shape payment confirmers (and the simulator
// page) post to /payments/confirm.
type confirmPayload struct {
	DepositID string `json:"depositId"`
	TxID      string `json:"txId"`
	Status    string `json:"status"`
	AmountPKR int64  `json:"amountPKR"`
	Method    string `json:"method"`
}

// ConfirmPayment is the single confirmation entry point: webhook deliveries
// and simulator clicks both land here and feed the reconciler.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var payload confirmPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	outcome, ok := outcomeFromStatus(payload.Status)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "unknown_status")
		return
	}

	res, err := h.svc.ReconcileDeposit(r.Context(), domain.DepositConfirmation{
		DepositID:     payload.DepositID,
		ExternalTxRef: payload.TxID,
		Outcome:       outcome,
	})
	if err != nil {
		if errors.Is(err, domain.ErrIllegalTransition) {
			// A confirmer trying to flip a settled deposit is misbehaving.
			slog.Warn("anomalous confirmation rejected",
				"deposit_id", payload.DepositID,
				"tx_id", payload.TxID,
				"status", payload.Status,
			)
		}
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, res)
}

func outcomeFromStatus(status string) (domain.Outcome, bool) {
	switch status {
	case "success", "completed":
		return domain.OutcomeSuccess, true
	case "failure", "failed":
		return domain.OutcomeFailure, true
	default:
		return "", false
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	h.respondError(w, statusFromError(err), err.Error())
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
