package models

import "github.com/google/uuid"

// ensureID assigns a v4 id before insert so rows are portable across
// postgres and the sqlite test harness.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&User{},
		&Session{},
		&Vendor{},
		&Category{},
		&Product{},
		&ProductVariant{},
		&CartItem{},
		&ShippingAddress{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&OutboxEvent{},
	}
}
