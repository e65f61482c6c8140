package sales

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"

	"github.com/tillpoint/tillpoint/internal/shared"
	"github.com/tillpoint/tillpoint/internal/store"
)

// Handler manages sales endpoints.
type Handler struct {
	logger    *slog.Logger
	repo      *Repository
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validator: validator.New()}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Get("/{id}/receipt", h.receipt)
	r.Post("/adjustments", h.adjust)
	r.Post("/reconcile", h.reconcile)
}

type saleItemRequest struct {
	ProductID string  `json:"productId" validate:"required"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Discount  float64 `json:"discount"`
}

type createSaleRequest struct {
	Items           []saleItemRequest `json:"items" validate:"required,min=1,dive"`
	Discount        float64           `json:"discount"`
	TaxRatePercent  float64           `json:"taxRatePercent"`
	CashPaid        float64           `json:"cashPaid"`
	CardPaid        float64           `json:"cardPaid"`
	MobileMoneyPaid float64           `json:"mobileMoneyPaid"`
}

type saleResponse struct {
	Sale
	Subtotal  float64 `json:"subtotal"`
	Tax       float64 `json:"tax"`
	Total     float64 `json:"total"`
	PaidTotal float64 `json:"paidTotal"`
}

func newSaleResponse(s Sale) saleResponse {
	return saleResponse{
		Sale:      s,
		Subtotal:  s.Subtotal(),
		Tax:       s.Tax(),
		Total:     s.Total(),
		PaidTotal: s.PaidTotal(),
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	items := make([]SaleItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, SaleItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Discount:  it.Discount,
		})
	}
	sale, err := h.repo.CreateSale(r.Context(), CreateSaleInput{
		Items:           items,
		Discount:        req.Discount,
		TaxRatePercent:  req.TaxRatePercent,
		CashPaid:        req.CashPaid,
		CardPaid:        req.CardPaid,
		MobileMoneyPaid: req.MobileMoneyPaid,
	})
	if err != nil {
		// The sale may already be durable with stock reconciliation pending;
		// surface that instead of a plain failure.
		if sale.ID != "" {
			h.logger.Error("sale recorded with incomplete stock deduction",
				slog.String("sale_id", sale.ID), slog.Any("error", err))
			shared.WriteJSON(w, http.StatusAccepted, newSaleResponse(sale))
			return
		}
		h.logger.Error("create sale", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to create sale")
		return
	}
	shared.WriteJSON(w, http.StatusCreated, newSaleResponse(sale))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	all, err := h.repo.GetAll(r.Context())
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to list sales")
		return
	}
	out := make([]saleResponse, 0, len(all))
	for _, s := range all {
		out = append(out, newSaleResponse(s))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sale, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		shared.WriteError(w, http.StatusNotFound, "not_found", "sale not found")
		return
	}
	if err != nil {
		h.logger.Error("get sale", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to get sale")
		return
	}
	shared.WriteJSON(w, http.StatusOK, newSaleResponse(sale))
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	sale, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		shared.WriteError(w, http.StatusNotFound, "not_found", "sale not found")
		return
	}
	if err != nil {
		h.logger.Error("get sale", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to get sale")
		return
	}
	tag, err := language.Parse(r.URL.Query().Get("locale"))
	if err != nil {
		tag = language.English
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(FormatReceipt(sale, tag)))
}

type adjustmentRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Delta     int    `json:"delta" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	if err := h.repo.RecordManualAdjustment(r.Context(), req.ProductID, req.Delta, req.Reason); err != nil {
		h.logger.Error("record adjustment", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to record adjustment")
		return
	}
	shared.WriteJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	repaired, err := h.repo.Reconcile(r.Context())
	if err != nil {
		h.logger.Error("reconcile sales", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "internal_error", "reconciliation failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{"repairedLines": repaired})
}
