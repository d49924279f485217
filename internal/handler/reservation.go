package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/driesverstreepen/studio-reservations/internal/logger"
	"github.com/driesverstreepen/studio-reservations/internal/middleware"
	"github.com/driesverstreepen/studio-reservations/internal/model"
	"github.com/driesverstreepen/studio-reservations/internal/reservation"
)

// ReservationService is the part of reservation.Service the API uses.
type ReservationService interface {
	ReserveAndBook(ctx context.Context, req reservation.Request) (reservation.Result, error)
	Balance(ctx context.Context, requesterID, organizationID string, productID *string) ([]model.CreditPool, error)
	Sessions(ctx context.Context, offeringID string) ([]model.Session, error)
}

// ReservationHandler exposes credit reservations over HTTP.  Reserve and
// Balance expect JWTAuth to have run; Sessions is public.
type ReservationHandler struct {
	svc ReservationService
}

func NewReservationHandler(svc ReservationService) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{svc: svc}
}

type reserveRequest struct {
	OrganizationID string  `json:"organization_id"`
	SessionMarker  string  `json:"session_marker"`
	DependentID    *string `json:"dependent_id"`
}

type reserveResponse struct {
	Outcome          reservation.Outcome `json:"outcome"`
	BookingID        string              `json:"booking_id,omitempty"`
	PoolID           string              `json:"pool_id,omitempty"`
	CreditsRemaining *int                `json:"credits_remaining,omitempty"`
}

// Reserve handles POST /v1/offerings/:id/reservations.  It spends one
// credit on the session named in the body and answers 201 when booked,
// 402 when no pool has a credit left, 409 when the slot is already booked
// and 503 when the booking could not be completed.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body reserveRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	res, err := h.svc.ReserveAndBook(c.Request().Context(), reservation.Request{
		RequesterID:    userID,
		OrganizationID: strings.TrimSpace(body.OrganizationID),
		OfferingID:     c.Param("id"),
		SessionMarker:  body.SessionMarker,
		DependentID:    body.DependentID,
	})
	if err != nil {
		return rejection(c, err)
	}

	resp := reserveResponse{Outcome: res.Outcome}
	switch res.Outcome {
	case reservation.OutcomeBooked:
		resp.BookingID, resp.PoolID = res.BookingID, res.PoolID
		resp.CreditsRemaining = &res.CreditsRemaining
		return c.JSON(http.StatusCreated, resp)
	case reservation.OutcomeInsufficientBalance:
		return c.JSON(http.StatusPaymentRequired, resp)
	case reservation.OutcomeAlreadyBooked:
		return c.JSON(http.StatusConflict, resp)
	default:
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
}

type poolView struct {
	ID               string     `json:"id"`
	ProductID        *string    `json:"product_id"`
	CreditsTotal     int        `json:"credits_total"`
	CreditsUsed      int        `json:"credits_used"`
	CreditsRemaining int        `json:"credits_remaining"`
	ExpiresAt        *time.Time `json:"expires_at"`
}

// Balance handles GET /v1/organizations/:id/credit-pools.  It lists the
// caller's spendable pools at the organization in the order credits are
// spent.  The optional product_id query narrows to pools valid for that
// product.
func (h *ReservationHandler) Balance(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var productID *string
	if p := strings.TrimSpace(c.QueryParam("product_id")); p != "" {
		productID = &p
	}
	pools, err := h.svc.Balance(c.Request().Context(), userID, c.Param("id"), productID)
	if err != nil {
		return rejection(c, err)
	}

	out := make([]poolView, 0, len(pools))
	total := 0
	for _, p := range pools {
		v := poolView{
			ID:               p.ID,
			ProductID:        p.ProductID,
			CreditsTotal:     p.CreditsTotal,
			CreditsUsed:      p.CreditsUsed,
			CreditsRemaining: p.Remaining(),
			ExpiresAt:        p.ExpiresAt,
		}
		total += p.Remaining()
		out = append(out, v)
	}
	return c.JSON(http.StatusOK, echo.Map{"credits_remaining": total, "pools": out})
}

// Sessions handles GET /v1/offerings/:id/sessions.
func (h *ReservationHandler) Sessions(c echo.Context) error {
	sessions, err := h.svc.Sessions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return rejection(c, err)
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": sessions})
}

// rejection maps request validation errors to client statuses.  Anything
// else is an infrastructure failure.
func rejection(c echo.Context, err error) error {
	switch {
	case errors.Is(err, reservation.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, reservation.ErrOfferingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "offering not found"})
	case errors.Is(err, reservation.ErrDependentNotOwned):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "dependent does not belong to you"})
	case errors.Is(err, reservation.ErrCreditsNotAccepted),
		errors.Is(err, reservation.ErrUnknownSession),
		errors.Is(err, reservation.ErrOrganizationMismatch):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	}
	logger.FromContext(c.Request().Context()).Error("request failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
