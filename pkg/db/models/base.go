package models

import "github.com/google/uuid"

// ensureID assigns a v4 id when the caller did not pick one. Postgres has a
// gen_random_uuid() default as well; this keeps SQLite and tests in line.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model; SQLite mode and tests migrate from it
// because the goose migrations target Postgres.
func All() []any {
	return []any{
		&Shopkeeper{},
		&Shop{},
		&User{},
		&UserAddress{},
		&Subscription{},
		&SubscriptionDelivery{},
		&Order{},
		&Payment{},
		&Invoice{},
		&Complaint{},
		&Notification{},
	}
}
