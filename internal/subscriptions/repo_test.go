package subscriptions

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/angelmondragon/aquaflow-backend/internal/testutil"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
)

func TestAccrueOrderIsSingleConditionalUpdate(t *testing.T) {
	conn, mock := testutil.NewMockDB(t)
	repo := NewRepository(conn)

	mock.ExpectExec(`UPDATE "subscriptions" SET .*"jars_ordered_this_month"=jars_ordered_this_month \+ \$\d+.* WHERE .*status = \$\d+.*jars_ordered_this_month \+ \$\d+ <= jars_per_month`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "subscriptions" SET .* WHERE .*jars_ordered_this_month \+ \$\d+ <= jars_per_month`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err := repo.AccrueOrder(context.Background(), uuid.New(), uuid.New(), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied {
		t.Fatal("expected first update to apply")
	}

	applied, err = repo.AccrueOrder(context.Background(), uuid.New(), uuid.New(), 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Fatal("expected update without affected rows to report not applied")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccrueDeliveryGuardsOnDeliveredCounter(t *testing.T) {
	conn, mock := testutil.NewMockDB(t)
	repo := NewRepository(conn)

	mock.ExpectExec(`UPDATE "subscriptions" SET "current_month_bill"=current_month_bill \+ price_per_jar \* \$\d+,"jars_delivered_this_month"=jars_delivered_this_month \+ \$\d+.* WHERE .*shop_id = \$\d+.*jars_delivered_this_month \+ \$\d+ <= jars_per_month`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := repo.AccrueDelivery(context.Background(), uuid.New(), uuid.New(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied {
		t.Fatal("expected update to apply")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAdvancePaymentCycleKeepsOrderedCounter(t *testing.T) {
	conn, mock := testutil.NewMockDB(t)
	repo := NewRepository(conn)

	mock.ExpectExec(`UPDATE "subscriptions" SET "jars_delivered_this_month"=\$\d+,"last_payment_date"=\$\d+,"next_payment_date"=\$\d+,"payment_claimed_at"=\$\d+,"payment_cycle"=payment_cycle \+ 1,"updated_at"=\$\d+ WHERE .*payment_cycle = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	advanced, err := repo.AdvancePaymentCycle(context.Background(), uuid.New(), 3, fixedNow, fixedNow.Add(billingPeriod))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if advanced {
		t.Fatal("expected stale cycle to report not advanced")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransitionStatusMatchesCurrentStatus(t *testing.T) {
	conn, mock := testutil.NewMockDB(t)
	repo := NewRepository(conn)

	id, userID := uuid.New(), uuid.New()
	mock.ExpectExec(`UPDATE "subscriptions" SET "status"=\$1,"updated_at"=\$2 WHERE id = \$3 AND user_id = \$4 AND status = \$5`).
		WithArgs(enums.SubscriptionStatusPaused, sqlmock.AnyArg(), id, userID, enums.SubscriptionStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := repo.TransitionStatus(context.Background(), id, userID, enums.SubscriptionStatusActive, enums.SubscriptionStatusPaused)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied {
		t.Fatal("expected transition to apply")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClaimPaymentCycleSkipsLiveClaims(t *testing.T) {
	conn, mock := testutil.NewMockDB(t)
	repo := NewRepository(conn)

	mock.ExpectExec(`UPDATE "subscriptions" SET "payment_claimed_at"=\$\d+,"updated_at"=\$\d+ WHERE .*payment_cycle = \$\d+.*next_payment_date <= \$\d+.*payment_claimed_at IS NULL OR payment_claimed_at < \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := repo.ClaimPaymentCycle(context.Background(), uuid.New(), 1, fixedNow, fixedNow.Add(-paymentClaimTTL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claimed {
		t.Fatal("expected a held cycle to report not claimed")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
