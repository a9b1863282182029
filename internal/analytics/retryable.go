package analytics

import (
	"errors"
	"net/http"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var retryableHTTP = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

var retryableGRPC = map[codes.Code]bool{
	codes.Aborted:           true,
	codes.DeadlineExceeded:  true,
	codes.Internal:          true,
	codes.ResourceExhausted: true,
	codes.Unavailable:       true,
}

// isRetryableBigQueryError reports whether err is transient. A multi error is
// transient only when every part of it is.
func isRetryableBigQueryError(err error) bool {
	if err == nil {
		return false
	}
	var (
		multi  cbigquery.MultiError
		rows   cbigquery.PutMultiError
		apiErr *googleapi.Error
	)
	switch {
	case errors.As(err, &multi):
		return allRetryable(multi, func(e error) error { return e })
	case errors.As(err, &rows):
		return allRetryable(rows, func(r cbigquery.RowInsertionError) error { return r.Errors })
	case errors.As(err, &apiErr):
		return retryableHTTP[apiErr.Code]
	}
	if st, ok := status.FromError(err); ok {
		return retryableGRPC[st.Code()]
	}
	return false
}

func allRetryable[T any](parts []T, inner func(T) error) bool {
	if len(parts) == 0 {
		return false
	}
	for _, p := range parts {
		if !isRetryableBigQueryError(inner(p)) {
			return false
		}
	}
	return true
}
