package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/marketplace-order-sync/internal/api/dto"
	"github.com/eshaffer321/marketplace-order-sync/internal/infrastructure/storage"
)

// OrdersHandler handles order-related HTTP requests.
type OrdersHandler struct {
	*Base
}

// NewOrdersHandler creates a new orders handler.
func NewOrdersHandler(repo storage.Repository) *OrdersHandler {
	return &OrdersHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/orders - returns paginated list of orders.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	defaults := dto.DefaultOrderListParams()
	filters := storage.OrderFilters{
		Limit:  ParseIntParam(r, "limit", defaults.Limit),
		Offset: ParseIntParam(r, "offset", defaults.Offset),
	}

	result, err := h.repo.ListOrders(r.Context(), filters)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.OrderListResponse{
		Orders:     make([]dto.OrderResponse, 0, len(result.Orders)),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	}
	for _, order := range result.Orders {
		response.Orders = append(response.Orders, toOrderResponse(order, nil))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/orders/{orderId} - returns one order with its lines,
// looked up by marketplace order id.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("order ID is required"))
		return
	}

	order, err := h.repo.GetOrderByMarketplaceID(r.Context(), orderID)
	if errors.Is(err, storage.ErrNotFound) {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("order"))
		return
	}
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	lines, err := h.repo.ListOrderLines(r.Context(), order.ID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, toOrderResponse(order, lines))
}

// toOrderResponse converts a storage order to an API response.
func toOrderResponse(order *storage.Order, lines []storage.OrderLine) dto.OrderResponse {
	response := dto.OrderResponse{
		ID:                 order.ID,
		MarketplaceOrderID: order.MarketplaceOrderID,
		Buyer:              order.Buyer,
		TotalCents:         order.TotalCents,
		TaxCents:           order.TaxCents,
		ShippingCents:      order.ShippingCents,
		RawPayloadID:       order.RawPayloadID,
		ImportedAt:         order.ImportedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          order.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if !order.CreatedAt.IsZero() {
		created := order.CreatedAt.UTC().Format(time.RFC3339)
		response.CreatedAt = &created
	}

	if lines != nil {
		response.Lines = make([]dto.OrderLineResponse, 0, len(lines))
	}
	for _, line := range lines {
		response.Lines = append(response.Lines, dto.OrderLineResponse{
			ID:                line.ID,
			LineKey:           line.LineKey,
			MarketplaceLineID: line.MarketplaceLineID,
			SKU:               line.SKU,
			MarketplaceItemID: line.MarketplaceItemID,
			Quantity:          line.Quantity,
			ItemPriceCents:    line.ItemPriceCents,
			InventoryItemID:   line.InventoryItemID,
		})
	}

	return response
}
