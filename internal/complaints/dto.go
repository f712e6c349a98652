package complaints

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
)

type SubmitInput struct {
	Subject     string
	Description string
	Priority    string
	OrderID     *uuid.UUID
	ShopID      *uuid.UUID
}

type ShopListParams struct {
	Status *enums.ComplaintStatus
	Limit  int
	Cursor string
}

type ComplaintView struct {
	ID          uuid.UUID               `json:"id"`
	ShopID      uuid.UUID               `json:"shop_id"`
	OrderID     *uuid.UUID              `json:"order_id,omitempty"`
	Subject     string                  `json:"subject"`
	Description string                  `json:"description"`
	Priority    enums.ComplaintPriority `json:"priority"`
	Status      enums.ComplaintStatus   `json:"status"`
	ResolvedAt  *time.Time              `json:"resolved_at,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

func NewComplaintView(c models.Complaint) ComplaintView {
	return ComplaintView{
		ID:          c.ID,
		ShopID:      c.ShopID,
		OrderID:     c.OrderID,
		Subject:     c.Subject,
		Description: c.Description,
		Priority:    c.Priority,
		Status:      c.Status,
		ResolvedAt:  c.ResolvedAt,
		CreatedAt:   c.CreatedAt,
	}
}

type ShopComplaintView struct {
	ComplaintView
	CustomerName  string  `json:"customer_name"`
	CustomerPhone string  `json:"customer_phone"`
	OrderNumber   *string `json:"order_number,omitempty"`
}

func newShopComplaintView(row ShopComplaintRow) ShopComplaintView {
	view := ShopComplaintView{
		ComplaintView: NewComplaintView(row.Complaint),
		CustomerPhone: row.CustomerPhone,
		OrderNumber:   row.OrderNumber,
	}
	if row.CustomerName != nil {
		view.CustomerName = *row.CustomerName
	}
	return view
}

type ListResult struct {
	Complaints []ComplaintView `json:"complaints"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type ShopListResult struct {
	Complaints []ShopComplaintView `json:"complaints"`
	NextCursor string              `json:"next_cursor,omitempty"`
}
