package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/franchisehub/api/internal/platform/auth"
	"github.com/franchisehub/api/internal/platform/httpx"
	"github.com/franchisehub/api/internal/platform/requestctx"
	"github.com/franchisehub/api/internal/services"
)

// OrdersHandler exposes the order lifecycle endpoints.
type OrdersHandler struct {
	service   services.OrderService
	projector *services.OrderProjector
}

// NewOrdersHandler constructs the handler from its collaborators.
func NewOrdersHandler(service services.OrderService, projector *services.OrderProjector) (*OrdersHandler, error) {
	if service == nil {
		return nil, errors.New("orders handler: order service is required")
	}
	if projector == nil {
		projector = services.NewOrderProjector(nil)
	}
	return &OrdersHandler{service: service, projector: projector}, nil
}

// Mount registers the order routes on the provided router.
func (h *OrdersHandler) Mount(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{orderID}", h.get)
	r.Put("/{orderID}", h.update)
	r.Delete("/{orderID}", h.cancel)
}

type orderLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

type createOrderRequest struct {
	Items           []orderLineRequest `json:"items"`
	ShippingAddress string             `json:"shippingAddress"`
	ShippingMethod  *string            `json:"shippingMethod"`
}

type updateOrderRequest struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"paymentStatus"`
	DeliveryDate  *string `json:"deliveryDate"`
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	var req createOrderRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	cmd := services.CreateOrderCommand{
		UserID:          identity.UID,
		ShippingAddress: req.ShippingAddress,
		ShippingMethod:  req.ShippingMethod,
		Lines:           make([]services.OrderLineInput, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		cmd.Lines = append(cmd.Lines, services.OrderLineInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	order, err := h.service.CreateOrder(r.Context(), cmd)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"order": h.projector.Project(r.Context(), order),
	})
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	query := services.ListOrdersQuery{
		Actor:       actorFromIdentity(identity),
		Status:      r.URL.Query().Get("status"),
		StoreID:     r.URL.Query().Get("storeId"),
		FranchiseID: r.URL.Query().Get("franchiseId"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := parsePositiveInt(raw); err == nil {
			query.Limit = limit
		} else {
			httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "limit must be a positive integer", http.StatusBadRequest))
			return
		}
	}

	orders, err := h.service.ListOrders(r.Context(), query)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"orders": h.projector.ProjectAll(r.Context(), orders),
	})
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	order, err := h.service.GetOrder(r.Context(), actorFromIdentity(identity), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"order": h.projector.Project(r.Context(), order),
	})
}

func (h *OrdersHandler) update(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}
	if !identity.IsAdmin() {
		httpx.WriteError(r.Context(), w, httpx.NewError("forbidden", "administrator role required", http.StatusForbidden))
		return
	}

	var req updateOrderRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	order, err := h.service.UpdateOrder(r.Context(), services.UpdateOrderCommand{
		OrderID:       chi.URLParam(r, "orderID"),
		ActorID:       identity.UID,
		Status:        req.Status,
		PaymentStatus: req.PaymentStatus,
		DeliveryDate:  req.DeliveryDate,
	})
	if errors.Is(err, services.ErrOrderNoChanges) {
		// Tolerated: the caller sent nothing that differs from stored state.
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"order":   h.projector.Project(r.Context(), order),
			"warning": "no_changes",
		})
		return
	}
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"order": h.projector.Project(r.Context(), order),
	})
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	order, err := h.service.CancelOrder(r.Context(), services.CancelOrderCommand{
		OrderID: chi.URLParam(r, "orderID"),
		UserID:  identity.UID,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"order": h.projector.Project(r.Context(), order),
	})
}

func (h *OrdersHandler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrEmptyOrder):
		httpx.WriteError(ctx, w, httpx.NewError("order_empty", "order must contain at least one item", http.StatusBadRequest))
	case errors.Is(err, services.ErrInvalidLine):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_line", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrNoStoreLinked):
		httpx.WriteError(ctx, w, httpx.NewError("store_not_linked", "no store is linked to this account", http.StatusBadRequest))
	case errors.Is(err, services.ErrStoreNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("store_not_found", "linked store not found or inactive", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_input", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderForbiddenState):
		httpx.WriteError(ctx, w, httpx.NewError("order_forbidden_state", "orders can only be cancelled while NEW", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", "order was modified concurrently, retry with fresh state", http.StatusConflict))
	default:
		requestctx.Logger(ctx).Error("order request failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "unable to process order request", http.StatusInternalServerError))
	}
}

func actorFromIdentity(identity *auth.Identity) services.Actor {
	return services.Actor{UserID: identity.UID, Admin: identity.IsAdmin()}
}

func decodeJSON(body io.Reader, dst any) error {
	decoder := json.NewDecoder(body)
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	// A second document in the body is a malformed request.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected trailing data")
	}
	return nil
}

func parsePositiveInt(raw string) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, errors.New("not a positive integer")
	}
	return value, nil
}
