package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Diagnostics is the log-only view of a failure. None of it reaches clients.
type Diagnostics struct {
	Message string
	Code    Code
	Reason  string
	Chain   []string

	SQLState   string
	Constraint string
	Table      string
	Detail     string
	// Transient marks database failures worth retrying: serialization
	// failures, deadlocks and dropped connections.
	Transient bool
}

// Diagnose unwraps err and lifts out typed codes and driver details from
// either pgx or lib/pq.
func Diagnose(err error) Diagnostics {
	if err == nil {
		return Diagnostics{}
	}

	d := Diagnostics{Message: err.Error(), Reason: Reason(err)}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T", e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case stdErrors.As(err, &pgxErr):
		d.SQLState = pgxErr.Code
		d.Constraint = pgxErr.ConstraintName
		d.Table = pgxErr.TableName
		d.Detail = pgxErr.Detail
	case stdErrors.As(err, &pqErr):
		d.SQLState = string(pqErr.Code)
		d.Constraint = pqErr.Constraint
		d.Table = pqErr.Table
		d.Detail = pqErr.Detail
	}
	d.Transient = transientSQLState(d.SQLState)
	return d
}

// Fields flattens the diagnostics for structured logging, skipping blanks.
func (d Diagnostics) Fields() map[string]any {
	fields := map[string]any{"error": d.Message}
	set := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	set("error_code", string(d.Code))
	set("reason", d.Reason)
	set("sqlstate", d.SQLState)
	set("pg_constraint", d.Constraint)
	set("pg_table", d.Table)
	set("pg_detail", d.Detail)
	if len(d.Chain) > 1 {
		fields["error_chain"] = d.Chain
	}
	if d.Transient {
		fields["transient"] = true
	}
	return fields
}

func transientSQLState(code string) bool {
	switch {
	case code == "40001", code == "40P01":
		return true
	case len(code) == 5 && code[:2] == "08":
		return true
	}
	return false
}
