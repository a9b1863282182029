package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the debug view of an error chain attached to 5xx logs.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	DB *DBErrorDetail `json:"db,omitempty"`
}

// DBErrorDetail carries the Postgres fields of a driver error.
type DBErrorDetail struct {
	SQLState   string `json:"sqlstate"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
	// Retryable marks transaction rollback states (class 40) such as
	// serialization failures and deadlocks.
	Retryable bool `json:"retryable,omitempty"`
}

type dbDetailExtractor func(error) *DBErrorDetail

var dbExtractors = []dbDetailExtractor{pgxDetail, pqDetail}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	d.DB = DBDetail(err)
	return d
}

// DBDetail returns the Postgres detail of the first driver error in the chain.
func DBDetail(err error) *DBErrorDetail {
	for _, extract := range dbExtractors {
		if detail := extract(err); detail != nil {
			detail.Retryable = strings.HasPrefix(detail.SQLState, "40")
			return detail
		}
	}
	return nil
}

func pgxDetail(err error) *DBErrorDetail {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	return &DBErrorDetail{
		SQLState:   pgErr.Code,
		Constraint: pgErr.ConstraintName,
		Table:      pgErr.TableName,
		Column:     pgErr.ColumnName,
		Detail:     pgErr.Detail,
		Message:    pgErr.Message,
	}
}

func pqDetail(err error) *DBErrorDetail {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}
	return &DBErrorDetail{
		SQLState:   string(pqErr.Code),
		Constraint: pqErr.Constraint,
		Table:      pqErr.Table,
		Column:     pqErr.Column,
		Detail:     pqErr.Detail,
		Message:    pqErr.Message,
	}
}
