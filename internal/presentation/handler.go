package presentation

import (
	"errors"
	"net/http"
	"strings"

	"github.com/RaikyD/storefront-orders/internal/application"
	"github.com/RaikyD/storefront-orders/internal/domain"
	"github.com/RaikyD/storefront-orders/internal/gateway"
	"github.com/RaikyD/storefront-orders/internal/logger"
	"github.com/RaikyD/storefront-orders/internal/presentation/helpers"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	svc         *application.OrdersService
	adminSecret string
}

func NewOrdersHandler(svc *application.OrdersService, adminSecret string) *OrdersHandler {
	return &OrdersHandler{svc: svc, adminSecret: adminSecret}
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/payment", func(r chi.Router) {
		r.Post("/create-order", h.CreateOrder)
		r.Post("/verify", h.VerifyPayment)
	})

	r.Get("/public/orders/track/{id}", h.TrackOrder)

	r.Route("/admin/orders", func(r chi.Router) {
		r.Use(AdminOnly(h.adminSecret))
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
		r.Patch("/{id}/status", h.UpdateStatus)
	})
	r.With(AdminOnly(h.adminSecret)).Get("/admin/overview", h.Overview)
}

func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req application.CreateIntentRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get("Idempotency-Key"))

	intent, err := h.svc.CreateIntent(r.Context(), req)
	if err != nil {
		if fe, ok := domain.AsFieldError(err); ok {
			helpers.FieldError(w, fe.Field, fe.Reason)
			return
		}
		switch {
		case errors.Is(err, application.ErrEmptyCart),
			errors.Is(err, application.ErrInvalidItem),
			errors.Is(err, application.ErrAmountMismatch):
			helpers.HttpError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, gateway.ErrUnavailable):
			helpers.HttpError(w, http.StatusServiceUnavailable, "payment gateway unavailable, try again shortly")
		case errors.Is(err, application.ErrOrderClosed):
			helpers.HttpError(w, http.StatusConflict, application.ErrOrderClosed.Error())
		default:
			logger.Error("create order failed", "err", err)
			helpers.HttpError(w, http.StatusBadGateway, "failed to create payment order")
		}
		return
	}
	helpers.WriteJSON(w, http.StatusOK, intent)
}

func (h *OrdersHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req application.VerifyRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.GatewayOrderID == "" || req.GatewayPaymentID == "" || req.Signature == "" {
		helpers.HttpError(w, http.StatusBadRequest, "razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
		return
	}

	o, err := h.svc.VerifyPayment(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrSignatureMismatch):
			helpers.HttpError(w, http.StatusBadRequest, "invalid payment signature")
		case errors.Is(err, application.ErrPaymentMismatch):
			helpers.HttpError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, application.ErrOrderNotFound):
			helpers.HttpError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, application.ErrAlreadySettled):
			helpers.HttpError(w, http.StatusConflict, err.Error())
		default:
			logger.Error("verify payment failed", "err", err)
			helpers.HttpError(w, http.StatusInternalServerError, "failed to verify payment")
		}
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"status":   "verified",
		"order_id": o.ID,
	})
}

func (h *OrdersHandler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.lookup(w, r)
	if !ok {
		return
	}
	helpers.WriteJSON(w, http.StatusOK, o.Public())
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit := helpers.QueryInt(r, "limit", application.DefaultListLimit)
	orders, err := h.svc.List(r.Context(), limit)
	if err != nil {
		logger.Error("list orders failed", "err", err)
		helpers.HttpError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	helpers.WriteJSON(w, http.StatusOK, orders)
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.lookup(w, r)
	if !ok {
		return
	}
	helpers.WriteJSON(w, http.StatusOK, o)
}

type statusUpdateRequest struct {
	Status string `json:"status"`
	domain.TrackingPatch
}

func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	var req statusUpdateRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	st, err := domain.ParseStatus(req.Status)
	if err != nil {
		helpers.HttpError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.svc.UpdateStatus(r.Context(), id, st, req.TrackingPatch)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrOrderNotFound):
			helpers.HttpError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, application.ErrStatusNotSettable):
			helpers.HttpError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, application.ErrTransitionNotAllowed):
			helpers.HttpError(w, http.StatusConflict, err.Error())
		default:
			logger.Error("update status failed", "err", err, "order_id", id)
			helpers.HttpError(w, http.StatusInternalServerError, "failed to update order")
		}
		return
	}
	logger.Info("admin status change", "admin", AdminSubject(r.Context()), "order_id", o.ID, "status", o.Status)
	helpers.WriteJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) Overview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.svc.Overview(r.Context())
	if err != nil {
		logger.Error("admin overview failed", "err", err)
		helpers.HttpError(w, http.StatusInternalServerError, "failed to build overview")
		return
	}
	helpers.WriteJSON(w, http.StatusOK, ov)
}

func (h *OrdersHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		logger.Warn("health check failed", "err", err)
		helpers.HttpError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *OrdersHandler) lookup(w http.ResponseWriter, r *http.Request) (*domain.Order, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		helpers.HttpError(w, http.StatusBadRequest, "id is empty")
		return nil, false
	}
	o, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, application.ErrOrderNotFound) {
			helpers.HttpError(w, http.StatusNotFound, "order not found")
			return nil, false
		}
		logger.Error("get order failed", "err", err, "id", id)
		helpers.HttpError(w, http.StatusInternalServerError, "failed to get order")
		return nil, false
	}
	return o, true
}
