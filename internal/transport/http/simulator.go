package http

import (
	_ "embed"
	"html/template"
	"log/slog"
	"net/http"
)

//go:embed simulator.html
var simulatorHTML string

var simulatorTmpl = template.Must(template.New("simulator").Parse(simulatorHTML))

// Simulator serves the demo payment page for a pending deposit. Its buttons
// post to /payments/confirm, the same entry point real confirmers use.
func (h *Handler) Simulator(w http.ResponseWriter, r *http.Request) {
	depositID := r.URL.Query().Get("deposit_id")
	if depositID == "" {
		h.respondError(w, http.StatusBadRequest, "missing_deposit_id")
		return
	}

	intent, err := h.svc.GetDepositIntent(r.Context(), depositID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := simulatorTmpl.Execute(w, intent); err != nil {
		slog.Error("failed to render simulator page", "deposit_id", depositID, "error", err)
	}
}
