package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"shopflow/internal/catalog"
	"shopflow/internal/domain"
	"shopflow/internal/imagegen"
	"shopflow/internal/workflow"
)

const userOrdersLimit = 50

// Handler serves the web client API: catalog, order history, order
// submission and the placeholder image generator.
type Handler struct {
	engine  *workflow.Engine
	catalog *catalog.Catalog
	images  *imagegen.Generator
	logger  *slog.Logger
}

func NewHandler(engine *workflow.Engine, cat *catalog.Catalog, images *imagegen.Generator, logger *slog.Logger) *Handler {
	return &Handler{
		engine:  engine,
		catalog: cat,
		images:  images,
		logger:  logger,
	}
}

func (h *Handler) HandleProducts(w http.ResponseWriter, r *http.Request) {
	var products []catalog.Product
	var err error

	if r.URL.Query().Get("refresh") == "true" {
		products, err = h.catalog.Refresh()
	} else {
		products, err = h.catalog.Products()
	}
	if err != nil {
		h.logger.Error("failed to load catalog", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleUserOrders(w http.ResponseWriter, r *http.Request) {
	telegramID, err := strconv.ParseInt(r.PathValue("telegramId"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	orders, err := h.engine.UserOrders(r.Context(), telegramID, userOrdersLimit)
	if err != nil {
		h.logger.Error("failed to list user orders", "error", err, "telegram_id", telegramID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

type promoValidateRequest struct {
	Code        string  `json:"code"`
	OrderAmount float64 `json:"orderAmount"`
}

// HandlePromoValidate is a stub: codes are modelled but not enforced yet.
func (h *Handler) HandlePromoValidate(w http.ResponseWriter, r *http.Request) {
	var req promoValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"valid": false, "error": "Not implemented yet"})
}

// externalID accepts the buyer id as a JSON number or a numeric string.
// Anything else ("guest", empty) fails, which the handler maps to a 400.
type externalID int64

func (e *externalID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return errors.New("missing user id")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return errors.New("user id is not numeric")
	}
	*e = externalID(n)
	return nil
}

type orderItemRequest struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type orderRequest struct {
	Items          []orderItemRequest `json:"items"`
	Total          float64            `json:"total"`
	PromoCode      string             `json:"promoCode"`
	DiscountAmount float64            `json:"discountAmount"`
	UserID         externalID         `json:"userId"`
	UserName       string             `json:"userName"`
	Timestamp      string             `json:"timestamp"`
}

func (h *Handler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == 0 {
		h.writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	name := req.UserName
	if name == "" {
		name = "Customer"
	}

	items := make([]workflow.ItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, workflow.ItemRequest{
			ProductID: item.ID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	order, err := h.engine.PlaceOrder(r.Context(), workflow.PlaceOrderRequest{
		TelegramID:     int64(req.UserID),
		FirstName:      name,
		Items:          items,
		DeclaredTotal:  req.Total,
		PromoCode:      req.PromoCode,
		DiscountAmount: req.DiscountAmount,
		Source:         "Web",
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create order", "error", err, "telegram_id", int64(req.UserID))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("web order accepted", "order_number", order.OrderNumber, "telegram_id", int64(req.UserID))
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type generateImageRequest struct {
	Prompt string `json:"prompt"`
}

func (h *Handler) HandleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var req generateImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	data, err := h.images.Generate(req.Prompt)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to generate image", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	name := req.Prompt
	if len(name) > 20 {
		name = name[:20]
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="generated_`+name+`.png"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("failed to write image response", "error", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
