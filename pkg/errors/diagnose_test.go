package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDiagnosePgxError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "uq_active_subscription", TableName: "subscriptions"}
	err := Wrap(CodeConflict, fmt.Errorf("insert: %w", pgErr), "duplicate").
		WithDetails(map[string]any{"reason": ReasonDuplicateSubscription})

	d := Diagnose(err)
	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", d.Code)
	}
	if d.SQLState != "23505" || d.Constraint != "uq_active_subscription" || d.Table != "subscriptions" {
		t.Fatalf("unexpected pg fields: %+v", d)
	}
	if d.Transient {
		t.Fatal("unique violation should not be transient")
	}

	fields := d.Fields()
	if fields["reason"] != ReasonDuplicateSubscription {
		t.Fatalf("expected reason in fields, got %v", fields["reason"])
	}
	if _, ok := fields["error_chain"]; !ok {
		t.Fatal("expected error chain for wrapped error")
	}
}

func TestDiagnosePqSerializationFailureIsTransient(t *testing.T) {
	d := Diagnose(fmt.Errorf("commit: %w", &pq.Error{Code: "40001"}))
	if !d.Transient {
		t.Fatal("serialization failure should be transient")
	}
	if d.Code != "" {
		t.Fatalf("untyped error should have no code, got %s", d.Code)
	}
}

func TestDiagnoseFieldsOmitBlanks(t *testing.T) {
	fields := Diagnose(New(CodeNotFound, "shop not found")).Fields()
	for _, key := range []string{"sqlstate", "pg_table", "reason", "error_chain", "transient"} {
		if _, ok := fields[key]; ok {
			t.Fatalf("expected %s to be omitted, got %v", key, fields)
		}
	}
	if fields["error_code"] != string(CodeNotFound) {
		t.Fatalf("unexpected error_code %v", fields["error_code"])
	}
	if len(Diagnose(nil).Fields()) != 1 {
		t.Fatal("nil error should only carry the empty message field")
	}
}
