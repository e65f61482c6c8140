package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tillpoint/tillpoint/internal/shared"
)

// Handler manages auth endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/unlock", h.unlock)
}

type unlockRequest struct {
	Passcode string `json:"passcode" validate:"required"`
}

func (h *Handler) unlock(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	token, err := h.service.Unlock(r.Context(), req.Passcode)
	switch {
	case errors.Is(err, shared.ErrPasscodeNotSet):
		shared.WriteError(w, http.StatusConflict, "passcode_not_set", "device has no passcode configured")
		return
	case errors.Is(err, shared.ErrInvalidPasscode):
		shared.WriteError(w, http.StatusUnauthorized, "invalid_passcode", "passcode rejected")
		return
	case err != nil:
		h.logger.Error("unlock", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "internal_error", "unlock failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Middleware rejects mutating requests without a live session token. Reads
// stay open so the UI can render while locked; with no passcode configured
// the middleware passes everything through.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if !h.service.Enabled(r.Context()) {
			next.ServeHTTP(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || !h.service.Validate(token) {
			shared.WriteError(w, http.StatusUnauthorized, "locked", "unlock required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
