package orders

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/angelmondragon/aquaflow-backend/internal/testutil"
)

func TestSetRatingRequiresDeliveredUnratedOrder(t *testing.T) {
	conn, mock := testutil.NewMockDB(t)
	repo := NewRepository(conn)

	mock.ExpectExec(`UPDATE "orders" SET "rating"=\$1,"review"=\$2,"updated_at"=\$3 WHERE id = \$4 AND user_id = \$5 AND status = \$6 AND rating IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	review := "great"
	applied, err := repo.SetRating(context.Background(), uuid.New(), uuid.New(), 5, &review)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Fatal("expected no row to match")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMarkDeliveredSkipsClosedOrders(t *testing.T) {
	conn, mock := testutil.NewMockDB(t)
	repo := NewRepository(conn)

	mock.ExpectExec(`UPDATE "orders" SET "actual_delivery_time"=\$1,"status"=\$2,"updated_at"=\$3 WHERE id = \$4 AND shop_id = \$5 AND status NOT IN \(\$6,\$7\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := repo.MarkDelivered(context.Background(), uuid.New(), uuid.New(), time.Now(), nil)
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
