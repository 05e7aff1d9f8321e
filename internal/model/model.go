package model

import (
	"strings"
	"time"
)

type CheckoutStatus string

const (
	CheckoutStatusCheckedOut CheckoutStatus = "CHECKED_OUT"
	CheckoutStatusReturned   CheckoutStatus = "RETURNED"
)

type RequestStatus string

const (
	RequestStatusUnseen   RequestStatus = "UNSEEN"
	RequestStatusSeen     RequestStatus = "SEEN"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusDenied   RequestStatus = "DENIED"
)

type Sender string

const (
	SenderAdmin     Sender = "ADMIN"
	SenderRequester Sender = "REQUESTER"
)

type InventoryItem struct {
	ID                   int       `json:"-" db:"id"`
	ItemUid              string    `json:"itemUid" db:"item_uid"`
	Name                 string    `json:"name" db:"name"`
	Manufacturer         string    `json:"manufacturer" db:"manufacturer"`
	Model                string    `json:"model" db:"model"`
	Location             string    `json:"location" db:"location"`
	Tags                 string    `json:"tags" db:"tags"`
	Quantity             int       `json:"quantity" db:"quantity"`
	AvailableForCheckout *int      `json:"availableForCheckout,omitempty" db:"available_for_checkout"`
	CreatedAt            time.Time `json:"createdAt" db:"created_at"`
}

// Ceiling is the maximum number of units that may be simultaneously
// checked out: the explicit override when set, the declared quantity otherwise.
func (i InventoryItem) Ceiling() int {
	if i.AvailableForCheckout != nil {
		return *i.AvailableForCheckout
	}
	return i.Quantity
}

// AvailableUnits is the ledger arithmetic: ceiling minus units currently
// out, floored at zero. Returned checkouts never count against it.
func AvailableUnits(item InventoryItem, checkedOut int) int {
	if a := item.Ceiling() - checkedOut; a > 0 {
		return a
	}
	return 0
}

type Checkout struct {
	ID           int            `json:"-" db:"id"`
	CheckoutUid  string         `json:"checkoutUid" db:"checkout_uid"`
	ItemID       int            `json:"-" db:"item_id"`
	ItemUid      string         `json:"itemUid" db:"item_uid"`
	RequestID    *int           `json:"-" db:"request_id"`
	CheckedOutBy string         `json:"checkedOutBy" db:"checked_out_by"`
	Status       CheckoutStatus `json:"status" db:"status"`
	CheckedOutAt time.Time      `json:"checkedOutAt" db:"checked_out_at"`
	FromDate     *time.Time     `json:"fromDate,omitempty" db:"from_date"`
	DueDate      *time.Time     `json:"dueDate,omitempty" db:"due_date"`
	ReturnedAt   *time.Time     `json:"returnedAt,omitempty" db:"returned_at"`
}

type CheckoutRequest struct {
	ID             int           `json:"-" db:"id"`
	RequestUid     string        `json:"requestUid" db:"request_uid"`
	RequesterName  string        `json:"requesterName" db:"requester_name"`
	RequesterEmail string        `json:"requesterEmail" db:"requester_email"`
	RequesterPhone string        `json:"requesterPhone,omitempty" db:"requester_phone"`
	Purpose        string        `json:"purpose,omitempty" db:"purpose"`
	Status         RequestStatus `json:"status" db:"status"`
	ReadyForPickup bool          `json:"readyForPickup" db:"ready_for_pickup"`
	PickupAt       *time.Time    `json:"pickupAt,omitempty" db:"pickup_at"`
	PickupLocation string        `json:"pickupLocation,omitempty" db:"pickup_location"`
	PickedUp       bool          `json:"pickedUp" db:"picked_up"`
	PickedUpAt     *time.Time    `json:"pickedUpAt,omitempty" db:"picked_up_at"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`

	Items     []RequestItem `json:"items" db:"-"`
	Messages  []Message     `json:"messages" db:"-"`
	Checkouts []Checkout    `json:"checkouts" db:"-"`
	Returned  bool          `json:"returned" db:"-"`
}

// IsReturned reports the derived terminal state: picked up with every
// materialized checkout already returned.
func (r CheckoutRequest) IsReturned() bool {
	if !r.PickedUp || len(r.Checkouts) == 0 {
		return false
	}
	for _, c := range r.Checkouts {
		if c.Status != CheckoutStatusReturned {
			return false
		}
	}
	return true
}

type RequestItem struct {
	ID        int        `json:"-" db:"id"`
	RequestID int        `json:"-" db:"request_id"`
	ItemID    int        `json:"-" db:"item_id"`
	ItemUid   string     `json:"itemUid" db:"item_uid"`
	ItemName  string     `json:"itemName" db:"item_name"`
	Quantity  int        `json:"quantity" db:"quantity"`
	FromDate  *time.Time `json:"fromDate,omitempty" db:"from_date"`
	ToDate    *time.Time `json:"toDate,omitempty" db:"to_date"`
}

type Message struct {
	ID          int       `json:"-" db:"id"`
	RequestID   int       `json:"-" db:"request_id"`
	Sender      Sender    `json:"sender" db:"sender"`
	SenderName  string    `json:"senderName" db:"sender_name"`
	SenderEmail string    `json:"senderEmail,omitempty" db:"sender_email"`
	Body        string    `json:"body" db:"body"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

type Event struct {
	ID             int        `json:"-" db:"id"`
	EventUid       string     `json:"eventUid" db:"event_uid"`
	Name           string     `json:"name" db:"name"`
	Location       string     `json:"location,omitempty" db:"location"`
	Category       string     `json:"category,omitempty" db:"category"`
	StartsAt       time.Time  `json:"startsAt" db:"starts_at"`
	EndsAt         time.Time  `json:"endsAt" db:"ends_at"`
	SetupAt        *time.Time `json:"setupAt,omitempty" db:"setup_at"`
	IsRecurring    bool       `json:"isRecurring" db:"is_recurring"`
	RecurrenceRule string     `json:"recurrenceRule,omitempty" db:"recurrence_rule"`

	Items []EventItemLink `json:"items" db:"-"`
}

type EventItemLink struct {
	EventID  int    `json:"-" db:"event_id"`
	ItemID   int    `json:"-" db:"item_id"`
	ItemUid  string `json:"itemUid" db:"item_uid"`
	ItemName string `json:"itemName" db:"item_name"`
	Quantity int    `json:"quantity" db:"quantity"`
}

// Occurrence is one concrete expansion of a recurring event. Its uid is
// derived from the base event so instances stay distinguishable from it.
type Occurrence struct {
	OccurrenceUid string    `json:"occurrenceUid"`
	EventUid      string    `json:"eventUid"`
	Index         int       `json:"index"`
	Name          string    `json:"name"`
	Location      string    `json:"location,omitempty"`
	Category      string    `json:"category,omitempty"`
	StartsAt      time.Time `json:"startsAt"`
	EndsAt        time.Time `json:"endsAt"`

	Items []EventItemLink `json:"items"`
}

type ActivityEntry struct {
	ID         int       `json:"-" db:"id"`
	Kind       string    `json:"kind" db:"kind"`
	SubjectUid string    `json:"subjectUid" db:"subject_uid"`
	Detail     string    `json:"detail,omitempty" db:"detail"`
	OccurredAt time.Time `json:"occurredAt" db:"occurred_at"`
}

// TagList splits the stored comma separated tags.
func (i InventoryItem) TagList() []string {
	if i.Tags == "" {
		return nil
	}
	parts := strings.Split(i.Tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
