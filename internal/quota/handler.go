package quota

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sentiq-platform/sentiq/internal/api"
)

// Handler exposes operator endpoints for the abuse subsystem.
type Handler struct {
	gate       *Gate
	violations *ViolationRepository
}

// NewHandler creates a new abuse Handler.
func NewHandler(gate *Gate, violations *ViolationRepository) *Handler {
	return &Handler{gate: gate, violations: violations}
}

// Status returns the stored quota record for a raw client address.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	addr := r.URL.Query().Get("addr")
	if addr == "" {
		api.HandleError(w, api.NewBadRequestError("addr query parameter is required"))
		return
	}

	rec, err := h.gate.Inspect(r.Context(), addr)
	if errors.Is(err, ErrNotFound) {
		api.HandleError(w, api.ErrNotFound)
		return
	}
	if err != nil {
		slog.Error("inspecting quota record", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, rec)
}

// ListViolations returns the newest denials for the dashboard.
func (h *Handler) ListViolations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil {
			limit = v
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}

	violations, err := h.violations.ListViolations(r.Context(), limit)
	if err != nil {
		slog.Error("listing violations", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, map[string]any{
		"count": len(violations),
		"items": violations,
	})
}
