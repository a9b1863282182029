package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/catchyfabric/market-backend/api/middleware"
	"github.com/catchyfabric/market-backend/api/responses"
	"github.com/catchyfabric/market-backend/api/validators"
	internalorders "github.com/catchyfabric/market-backend/internal/orders"
	"github.com/catchyfabric/market-backend/internal/payments"
	"github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/enums"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
	"github.com/catchyfabric/market-backend/pkg/logger"
	"github.com/catchyfabric/market-backend/pkg/pagination"
)

type paymentService interface {
	Apply(ctx context.Context, input payments.ApplyInput) (*payments.ApplyResult, error)
	ListForOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]models.PaymentTransaction, error)
}

// Place splits the cart into one order per seller.
func Place(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var body PlaceOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.ToInput(middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.PlaceOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"orders": created})
	}
}

// List returns the orders visible to the caller, optionally filtered by status.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		var filters internalorders.ListFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}

		page, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// Detail returns one order after the read-relation check.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// UpdateStatus applies a seller or admin transition.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return statusHandler(nil, logg)
	}
	return statusHandler(svc.UpdateStatus, logg)
}

// UpdateDeliveryStatus applies a shipped or delivered transition from the assigned company.
func UpdateDeliveryStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return statusHandler(nil, logg)
	}
	return statusHandler(svc.UpdateDeliveryStatus, logg)
}

func statusHandler(apply func(context.Context, internalorders.UpdateStatusInput) (*models.Order, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if apply == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body StatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := statusInput(middleware.ActorFromContext(r.Context()), orderID, body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := apply(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AssignShipping sets the shipping company on a shipping order.
func AssignShipping(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body ShippingCompanyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		companyID, err := validators.ParseUUID(body.ShippingCompanyID, "shipping_company_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AssignShippingCompany(r.Context(), internalorders.AssignShippingInput{
			Actor:             middleware.ActorFromContext(r.Context()),
			OrderID:           orderID,
			ShippingCompanyID: companyID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	return validators.ParseUUID(chi.URLParam(r, "orderId"), "orderId")
}
