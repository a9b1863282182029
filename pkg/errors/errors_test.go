package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		rpc       string
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, rpc: "invalid-argument", publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, rpc: "unauthenticated", publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, rpc: "permission-denied", publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, rpc: "not-found", publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, rpc: "aborted", publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, rpc: "failed-precondition", publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, rpc: "internal", publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, rpc: "unavailable", publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.RPCStatus != tt.rpc {
			t.Fatalf("code %s expected rpc status %q got %q", tt.code, tt.rpc, meta.RPCStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestCodeOfAndIsCode(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", New(CodeStateConflict, "order not payable"))
	if got := CodeOf(wrapped); got != CodeStateConflict {
		t.Fatalf("expected state conflict, got %s", got)
	}
	if !IsCode(wrapped, CodeStateConflict) {
		t.Fatalf("expected IsCode to match wrapped typed error")
	}
	if IsCode(stdErrors.New("plain"), CodeStateConflict) {
		t.Fatalf("plain error should not match any code")
	}
	if got := CodeOf(stdErrors.New("plain")); got != CodeInternal {
		t.Fatalf("expected internal for untyped error, got %s", got)
	}
}

func TestDumpCollectsChainAndPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key", TableName: "users", Message: "duplicate key value"}
	err := Wrap(CodeConflict, fmt.Errorf("insert user: %w", pgErr), "email already registered")

	dump := Dump(err)
	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", dump.Code)
	}
	if dump.DB == nil || dump.DB.SQLState != "23505" || dump.DB.Constraint != "users_email_key" || dump.DB.Table != "users" {
		t.Fatalf("unexpected postgres fields %+v", dump.DB)
	}
	if dump.DB.Retryable {
		t.Fatalf("unique violations are not retryable")
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected three links in chain, got %d: %v", len(dump.Chain), dump.Chain)
	}
	if Dump(nil).TopMessage != "" {
		t.Fatalf("expected empty dump for nil error")
	}
}

func TestDBDetailMarksSerializationFailuresRetryable(t *testing.T) {
	err := fmt.Errorf("update order: %w", &pq.Error{Code: "40001", Table: "orders", Message: "could not serialize access"})
	detail := DBDetail(err)
	if detail == nil {
		t.Fatalf("expected pq detail")
	}
	if !detail.Retryable || detail.Table != "orders" {
		t.Fatalf("unexpected detail %+v", detail)
	}
	if DBDetail(stdErrors.New("plain")) != nil {
		t.Fatalf("plain errors carry no db detail")
	}
}
