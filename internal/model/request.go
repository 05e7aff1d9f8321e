package model

import (
	"strings"
	"time"
)

// Date binds date-only JSON values ("2006-01-02") and tolerates full RFC3339.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return err
		}
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(time.DateOnly) + `"`), nil
}

// TimePtr returns nil for an unset date.
func (d *Date) TimePtr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

type CreateItemRequest struct {
	Name                 string `json:"name" validate:"required"`
	Manufacturer         string `json:"manufacturer"`
	Model                string `json:"model"`
	Location             string `json:"location"`
	Tags                 string `json:"tags"`
	Quantity             int    `json:"quantity" validate:"gte=0"`
	AvailableForCheckout *int   `json:"availableForCheckout"`
}

type UpdateItemRequest struct {
	Name                 *string `json:"name"`
	Manufacturer         *string `json:"manufacturer"`
	Model                *string `json:"model"`
	Location             *string `json:"location"`
	Tags                 *string `json:"tags"`
	Quantity             *int    `json:"quantity" validate:"omitempty,gte=0"`
	AvailableForCheckout *int    `json:"availableForCheckout"`
}

type CreateCheckoutRequest struct {
	ItemUid      string `json:"inventoryId" validate:"required"`
	CheckedOutBy string `json:"checkedOutBy" validate:"required"`
	FromDate     *Date  `json:"fromDate"`
	DueDate      *Date  `json:"toDate"`
}

type SubmitRequestItem struct {
	ItemUid  string `json:"inventoryId" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1"`
	FromDate *Date  `json:"fromDate"`
	ToDate   *Date  `json:"toDate"`
}

type SubmitRequest struct {
	RequesterName  string              `json:"requesterName" validate:"required"`
	RequesterEmail string              `json:"requesterEmail" validate:"required,email"`
	RequesterPhone string              `json:"requesterPhone"`
	Purpose        string              `json:"purpose"`
	Items          []SubmitRequestItem `json:"items" validate:"required,min=1,dive"`
}

// UpdateRequest is the PUT body driving the request state machine. Every
// field is optional; the service decides which transition it encodes.
type UpdateRequest struct {
	Status         *RequestStatus `json:"status" validate:"omitempty,oneof=UNSEEN SEEN APPROVED DENIED"`
	Message        string         `json:"message"`
	AdminName      string         `json:"adminName"`
	ReadyForPickup *bool          `json:"readyForPickup"`
	PickupAt       *time.Time     `json:"pickupAt"`
	PickupLocation string         `json:"pickupLocation"`
	PickedUp       *bool          `json:"pickedUp"`
	Returned       *bool          `json:"returned"`
}

type PostMessageRequest struct {
	Sender      Sender `json:"sender" validate:"required,oneof=ADMIN REQUESTER"`
	SenderName  string `json:"senderName" validate:"required"`
	SenderEmail string `json:"senderEmail" validate:"omitempty,email"`
	Message     string `json:"message" validate:"required"`
}

type EventLinkRequest struct {
	ItemUid  string `json:"inventoryId" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

type CreateEventRequest struct {
	Name           string             `json:"name" validate:"required"`
	Location       string             `json:"location"`
	Category       string             `json:"category"`
	StartsAt       time.Time          `json:"startsAt" validate:"required"`
	EndsAt         time.Time          `json:"endsAt" validate:"required"`
	SetupAt        *time.Time         `json:"setupAt"`
	IsRecurring    bool               `json:"isRecurring"`
	RecurrenceRule string             `json:"recurrenceRule"`
	Items          []EventLinkRequest `json:"items" validate:"omitempty,dive"`
}

// Availability is the ledger view of one inventory item.
type Availability struct {
	ItemUid    string `json:"itemUid"`
	Quantity   int    `json:"quantity"`
	Ceiling    int    `json:"ceiling"`
	CheckedOut int    `json:"checkedOut"`
	Available  int    `json:"available"`
}

// CheckoutLine is one (item, quantity) pair to materialize atomically.
type CheckoutLine struct {
	ItemUid      string
	Quantity     int
	CheckedOutBy string
	RequestID    *int
	FromDate     *time.Time
	DueDate      *time.Time
}

// Notification is the payload published after mutating operations.
type Notification struct {
	Kind       string    `json:"kind"`
	SubjectUid string    `json:"subjectUid"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
