package square

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"

	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
)

// mapSquareError turns an SDK error into a typed error. Error categories in
// the response body win over the HTTP status.
func mapSquareError(err error, op string) error {
	if err == nil {
		return nil
	}
	msg := "square " + op + " failed"
	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
	}
	for _, detail := range responseErrors(apiErr) {
		switch {
		case detail.Code == sq.ErrorCodeIdempotencyKeyReused:
			return pkgerrors.Wrap(pkgerrors.CodeIdempotency, err, msg)
		case detail.Category == sq.ErrorCategoryAuthenticationError:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway rejected credentials")
		case detail.Category == sq.ErrorCategoryPaymentMethodError:
			return pkgerrors.New(pkgerrors.CodeValidation, "card was declined").
				WithDetails(map[string]any{"reason": string(detail.Code)})
		}
	}
	return pkgerrors.Wrap(domainCodeForStatus(apiErr.StatusCode), err, msg)
}

// responseErrors decodes the errors array Square puts in failed responses.
func responseErrors(apiErr *sqcore.APIError) []sq.Error {
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	var body struct {
		Errors []*sq.Error `json:"errors"`
	}
	if json.Unmarshal([]byte(strings.TrimSpace(inner.Error())), &body) != nil {
		return nil
	}
	out := make([]sq.Error, 0, len(body.Errors))
	for _, e := range body.Errors {
		if e != nil {
			out = append(out, *e)
		}
	}
	return out
}

var statusCodes = map[int]pkgerrors.Code{
	http.StatusNotFound:            pkgerrors.CodeNotFound,
	http.StatusConflict:            pkgerrors.CodeConflict,
	http.StatusTooManyRequests:     pkgerrors.CodeRateLimit,
	http.StatusBadRequest:          pkgerrors.CodeValidation,
	http.StatusPaymentRequired:     pkgerrors.CodeValidation,
	http.StatusUnprocessableEntity: pkgerrors.CodeStateConflict,
}

func domainCodeForStatus(status int) pkgerrors.Code {
	if code, ok := statusCodes[status]; ok {
		return code
	}
	return pkgerrors.CodeDependency
}
