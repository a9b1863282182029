// Package rpc serves the callable surface: POST /rpc/{name} with a {"data": ...} body.
package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	ordercontrollers "github.com/catchyfabric/market-backend/api/controllers/orders"
	"github.com/catchyfabric/market-backend/api/middleware"
	"github.com/catchyfabric/market-backend/api/responses"
	"github.com/catchyfabric/market-backend/api/validators"
	internalauth "github.com/catchyfabric/market-backend/internal/auth"
	internalorders "github.com/catchyfabric/market-backend/internal/orders"
	"github.com/catchyfabric/market-backend/internal/payments"
	"github.com/catchyfabric/market-backend/internal/stats"
	"github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/enums"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
	"github.com/catchyfabric/market-backend/pkg/logger"
	"github.com/catchyfabric/market-backend/pkg/pagination"
	"github.com/catchyfabric/market-backend/pkg/types"
)

type paymentApplier interface {
	Apply(ctx context.Context, input payments.ApplyInput) (*payments.ApplyResult, error)
}

type adminUserCreator interface {
	CreateUserAsAdmin(ctx context.Context, actor auth.Actor, req internalauth.AdminCreateUserRequest) (*internalauth.AdminCreateUserResponse, error)
}

type userLogReader interface {
	ListForUser(ctx context.Context, actor auth.Actor, userID uuid.UUID, params pagination.Params) (pagination.Page[models.AuditLog], error)
}

type systemStatsReader interface {
	GetSystemStats(ctx context.Context, actor auth.Actor) (*stats.SystemStats, error)
}

// Services are the backends a callable may reach. A nil service disables the callables that need it.
type Services struct {
	Orders   internalorders.Service
	Payments paymentApplier
	Users    adminUserCreator
	Audit    userLogReader
	Stats    systemStatsReader
}

type procedure func(ctx context.Context, actor auth.Actor, data json.RawMessage) (any, error)

// Handler dispatches callables by name.
type Handler struct {
	procs map[string]procedure
	logg  *logger.Logger
}

func NewHandler(svc Services, logg *logger.Logger) *Handler {
	h := &Handler{procs: map[string]procedure{}, logg: logg}
	if svc.Orders != nil {
		h.procs["processOrder"] = processOrder(svc.Orders)
		h.procs["updateOrderStatus"] = updateOrderStatus(svc.Orders)
	}
	if svc.Payments != nil {
		h.procs["processCardPayment"] = processPayment(svc.Payments, enums.PaymentMethodCard)
		h.procs["processInstapayPayment"] = processPayment(svc.Payments, enums.PaymentMethodInstapay)
		h.procs["processPayment"] = processPayment(svc.Payments, "")
	}
	if svc.Users != nil {
		h.procs["createUserAsAdmin"] = createUserAsAdmin(svc.Users)
	}
	if svc.Audit != nil {
		h.procs["getUserLogs"] = getUserLogs(svc.Audit)
	}
	if svc.Stats != nil {
		h.procs["getSystemStats"] = getSystemStats(svc.Stats)
	}
	return h
}

// Names lists the registered callables.
func (h *Handler) Names() []string {
	names := make([]string, 0, len(h.procs))
	for name := range h.procs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	proc, ok := h.procs[name]
	if !ok {
		responses.WriteRPCError(ctx, h.logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "function not found").
			WithDetails(map[string]any{"name": name}))
		return
	}

	var req types.RPCRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteRPCError(ctx, h.logg, w, err)
		return
	}

	if h.logg != nil {
		ctx = h.logg.WithField(ctx, "rpc", name)
	}
	result, err := proc(ctx, middleware.ActorFromContext(ctx), req.Data)
	if err != nil {
		responses.WriteRPCError(ctx, h.logg, w, err)
		return
	}
	responses.WriteRPCResult(w, result)
}

func processOrder(svc internalorders.Service) procedure {
	return func(ctx context.Context, actor auth.Actor, data json.RawMessage) (any, error) {
		var body ordercontrollers.PlaceOrderRequest
		if err := validators.DecodeJSON(data, &body); err != nil {
			return nil, err
		}
		input, err := body.ToInput(actor)
		if err != nil {
			return nil, err
		}
		created, err := svc.PlaceOrder(ctx, input)
		if err != nil {
			return nil, err
		}
		return map[string]any{"orders": created}, nil
	}
}

func updateOrderStatus(svc internalorders.Service) procedure {
	return func(ctx context.Context, actor auth.Actor, data json.RawMessage) (any, error) {
		var body ordercontrollers.UpdateOrderStatusRequest
		if err := validators.DecodeJSON(data, &body); err != nil {
			return nil, err
		}
		input, err := body.ToInput(actor)
		if err != nil {
			return nil, err
		}
		order, err := svc.UpdateStatus(ctx, input)
		if err != nil {
			return nil, err
		}
		return map[string]any{"order": order}, nil
	}
}

func processPayment(svc paymentApplier, fixed enums.PaymentMethod) procedure {
	return func(ctx context.Context, actor auth.Actor, data json.RawMessage) (any, error) {
		var body ordercontrollers.PaymentRequest
		if err := validators.DecodeJSON(data, &body); err != nil {
			return nil, err
		}
		input, err := body.ToInput(actor, fixed)
		if err != nil {
			return nil, err
		}
		return svc.Apply(ctx, input)
	}
}

func createUserAsAdmin(svc adminUserCreator) procedure {
	return func(ctx context.Context, actor auth.Actor, data json.RawMessage) (any, error) {
		var body internalauth.AdminCreateUserRequest
		if err := validators.DecodeJSON(data, &body); err != nil {
			return nil, err
		}
		return svc.CreateUserAsAdmin(ctx, actor, body)
	}
}

type userLogsRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Limit  int    `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
	Cursor string `json:"cursor,omitempty"`
}

func getUserLogs(svc userLogReader) procedure {
	return func(ctx context.Context, actor auth.Actor, data json.RawMessage) (any, error) {
		var body userLogsRequest
		if err := validators.DecodeJSON(data, &body); err != nil {
			return nil, err
		}
		userID, err := validators.ParseUUID(body.UserID, "user_id")
		if err != nil {
			return nil, err
		}
		return svc.ListForUser(ctx, actor, userID, pagination.Params{Limit: body.Limit, Cursor: body.Cursor})
	}
}

func getSystemStats(svc systemStatsReader) procedure {
	return func(ctx context.Context, actor auth.Actor, _ json.RawMessage) (any, error) {
		return svc.GetSystemStats(ctx, actor)
	}
}
