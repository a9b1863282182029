// Package responses renders the JSON envelopes for both the REST routes and
// the callable RPC surface.
package responses

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
	"github.com/catchyfabric/market-backend/pkg/logger"
	"github.com/catchyfabric/market-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteRPCResult renders a successful callable response.
func WriteRPCResult(w http.ResponseWriter, result any) {
	writeJSON(w, http.StatusOK, types.RPCResult{Result: result})
}

// WriteError renders err as the REST error envelope.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	f := classify(err)
	f.log(ctx, logg, err)
	writeJSON(w, f.meta.HTTPStatus, types.ErrorEnvelope{
		Error:   f.message,
		Code:    string(f.typed.Code()),
		Details: f.details,
	})
}

// WriteRPCError renders err in the callable error shape.
func WriteRPCError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	f := classify(err)
	f.log(ctx, logg, err)
	writeJSON(w, f.meta.HTTPStatus, types.RPCErrorEnvelope{Error: types.RPCError{
		Status:  f.meta.RPCStatus,
		Message: f.message,
		Details: f.details,
	}})
}

// failure is an error reduced to what a client may see.
type failure struct {
	typed   *pkgerrors.Error
	meta    pkgerrors.Metadata
	message string
	details any
}

// classify treats anything without a code as internal. Client errors keep
// their own message; server errors only show the generic one.
func classify(err error) failure {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	f := failure{typed: typed, meta: pkgerrors.MetadataFor(typed.Code())}

	f.message = f.meta.PublicMessage
	if m := typed.Message(); m != "" && f.meta.HTTPStatus < http.StatusInternalServerError {
		f.message = m
	}
	if f.meta.DetailsAllowed {
		f.details = typed.Details()
	}
	return f
}

func (f failure) log(ctx context.Context, logg *logger.Logger, err error) {
	if logg == nil {
		return
	}
	if err == nil {
		err = f.typed
	}
	dump := pkgerrors.Dump(err)
	fields := map[string]any{
		"error":       dump.TopMessage,
		"error_code":  f.typed.Code(),
		"error_chain": dump.Chain,
	}
	if dump.DB != nil {
		fields["db_error"] = dump.DB
	}
	ctx = logg.WithFields(ctx, fields)

	if f.meta.HTTPStatus >= http.StatusInternalServerError {
		logg.Error(ctx, "request.error", err)
		return
	}
	logg.Warn(ctx, "request.rejected")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Int("status", status).Msg("failed to encode response")
	}
}
