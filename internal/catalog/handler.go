package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tillpoint/tillpoint/internal/shared"
	"github.com/tillpoint/tillpoint/internal/store"
)

// Handler manages catalog endpoints.
type Handler struct {
	logger    *slog.Logger
	repo      *Repository
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validator: validator.New()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.upsert)
	r.Get("/{id}", h.get)
}

type upsertRequest struct {
	ID            string  `json:"id" validate:"required"`
	Name          string  `json:"name" validate:"required"`
	Description   string  `json:"description"`
	Barcode       string  `json:"barcode"`
	Category      string  `json:"category"`
	ImageBase64   string  `json:"imageBase64"`
	Price         float64 `json:"price" validate:"gte=0"`
	Cost          float64 `json:"cost" validate:"gte=0"`
	StockQuantity int     `json:"stockQuantity"`
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	p := Product{
		ID:            req.ID,
		Name:          req.Name,
		Description:   req.Description,
		Barcode:       req.Barcode,
		Category:      req.Category,
		ImageBase64:   req.ImageBase64,
		Price:         req.Price,
		Cost:          req.Cost,
		StockQuantity: req.StockQuantity,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := h.repo.Upsert(r.Context(), p); err != nil {
		h.logger.Error("upsert product", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to save product")
		return
	}
	shared.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.GetAll(r.Context())
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to list products")
		return
	}
	shared.WriteJSON(w, http.StatusOK, products)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		shared.WriteError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}
	if err != nil {
		h.logger.Error("get product", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to get product")
		return
	}
	shared.WriteJSON(w, http.StatusOK, p)
}
