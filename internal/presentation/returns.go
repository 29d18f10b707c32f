package presentation

import (
	"errors"
	"net/http"

	"github.com/RaikyD/storefront-orders/internal/application"
	"github.com/RaikyD/storefront-orders/internal/domain"
	"github.com/RaikyD/storefront-orders/internal/gateway"
	"github.com/RaikyD/storefront-orders/internal/logger"
	"github.com/RaikyD/storefront-orders/internal/presentation/helpers"
	"github.com/go-chi/chi/v5"
)

type ReturnsHandler struct {
	svc         *application.ReturnsService
	adminSecret string
}

func NewReturnsHandler(svc *application.ReturnsService, adminSecret string) *ReturnsHandler {
	return &ReturnsHandler{svc: svc, adminSecret: adminSecret}
}

func (h *ReturnsHandler) Register(r chi.Router) {
	r.Route("/returns", func(r chi.Router) {
		r.Post("/request", h.Request)
		r.Group(func(r chi.Router) {
			r.Use(AdminOnly(h.adminSecret))
			r.Get("/admin/list", h.List)
			r.Post("/admin/action", h.Action)
		})
	})
}

func (h *ReturnsHandler) Request(w http.ResponseWriter, r *http.Request) {
	var in application.ReturnInput
	if err := helpers.DecodeJSON(r.Body, &in); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	ret, err := h.svc.RequestReturn(r.Context(), in)
	if err != nil {
		if fe, ok := domain.AsFieldError(err); ok {
			helpers.FieldError(w, fe.Field, fe.Reason)
			return
		}
		switch {
		case errors.Is(err, application.ErrOrderNotFound):
			helpers.HttpError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, application.ErrNotOrderOwner):
			helpers.HttpError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, application.ErrNotDelivered),
			errors.Is(err, application.ErrProductNotInOrder):
			helpers.HttpError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, application.ErrReturnExists):
			helpers.HttpError(w, http.StatusConflict, err.Error())
		default:
			logger.Error("request return failed", "err", err, "order_id", in.OrderID)
			helpers.HttpError(w, http.StatusInternalServerError, "failed to create return request")
		}
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, ret)
}

func (h *ReturnsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), helpers.QueryInt(r, "limit", application.DefaultListLimit))
	if err != nil {
		logger.Error("list returns failed", "err", err)
		helpers.HttpError(w, http.StatusInternalServerError, "failed to list return requests")
		return
	}
	helpers.WriteJSON(w, http.StatusOK, list)
}

type returnActionRequest struct {
	RequestID string `json:"request_id"`
	Action    string `json:"action"`
	AdminNote string `json:"admin_note,omitempty"`
}

func (h *ReturnsHandler) Action(w http.ResponseWriter, r *http.Request) {
	var req returnActionRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	action, err := domain.ParseReturnAction(req.Action)
	if err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "Unknown action")
		return
	}

	ret, err := h.svc.Act(r.Context(), req.RequestID, action, req.AdminNote)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrReturnNotFound):
			helpers.HttpError(w, http.StatusNotFound, "return request not found")
		case errors.Is(err, application.ErrReturnProcessed):
			helpers.HttpError(w, http.StatusConflict, err.Error())
		case errors.Is(err, application.ErrRefundUnavailable):
			helpers.HttpError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, gateway.ErrUnavailable):
			helpers.HttpError(w, http.StatusServiceUnavailable, "payment gateway unavailable, try again shortly")
		case errors.Is(err, application.ErrRefundFailed):
			logger.Error("refund failed", "err", err, "return_id", req.RequestID)
			helpers.HttpError(w, http.StatusBadGateway, "refund failed")
		default:
			logger.Error("return action failed", "err", err, "return_id", req.RequestID)
			helpers.HttpError(w, http.StatusInternalServerError, "failed to process return request")
		}
		return
	}
	logger.Info("admin return action", "admin", AdminSubject(r.Context()), "return_id", ret.ID, "status", ret.Status)
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "return": ret})
}
