package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

// Canonical status values. The stored string is the single source of truth;
// transitions only move along TransitionTable.
const (
	BookingStatusNone           BookingStatus = "none"
	BookingStatusPending        BookingStatus = "pending"
	BookingStatusWorkerAssigned BookingStatus = "worker_assigned"
	BookingStatusAccepted       BookingStatus = "accepted"
	BookingStatusRejected       BookingStatus = "rejected"
	BookingStatusInProgress     BookingStatus = "in_progress"
	BookingStatusCompleted      BookingStatus = "completed"
	BookingStatusCancelled      BookingStatus = "cancelled"
)

type BookingAction string

const (
	ActionAssign   BookingAction = "assign"
	ActionAccept   BookingAction = "accept"
	ActionReject   BookingAction = "reject"
	ActionStart    BookingAction = "start"
	ActionComplete BookingAction = "complete"
	ActionCancel   BookingAction = "cancel"
)

type PaymentMethod string

const (
	PaymentMethodOnline PaymentMethod = "online"
	PaymentMethodCOD    PaymentMethod = "cod"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type Address struct {
	Line       string `db:"address_line"`
	City       string `db:"city"`
	State      string `db:"state"`
	PostalCode string `db:"postal_code"`
}

type Booking struct {
	BaseNoDelete
	CustomerID      uuid.UUID     `db:"customer_id"`
	WorkerID        *uuid.UUID    `db:"worker_id"`
	ServiceType     string        `db:"service_type"`
	ServiceTitle    string        `db:"service_title"`
	Status          BookingStatus `db:"status"`
	Amount          float64       `db:"amount"`
	WorkerPayment   float64       `db:"worker_payment"`
	ScheduledDate   time.Time     `db:"scheduled_date"`
	ScheduledTime   string        `db:"scheduled_time"`
	Address         Address
	PaymentMethod   PaymentMethod `db:"payment_method"`
	PaymentStatus   PaymentStatus `db:"payment_status"`
	PaymentOrderID  *string       `db:"payment_order_id"`
	PaymentVerified bool          `db:"payment_verified"`

	// Completion OTP lives on the booking row; the three fields are set
	// together and cleared together. Non-nil only while status is in_progress.
	OTPHash      *string    `db:"otp_hash"`
	OTPExpiresAt *time.Time `db:"otp_expires_at"`
	OTPAttempts  int        `db:"otp_attempts"`
}

// TransitionTable maps action -> allowed source statuses -> target status.
// accept is legal from pending because broadcast assignment is logical only;
// the first compare-and-set winner claims the job.
var TransitionTable = map[BookingAction]map[BookingStatus]BookingStatus{
	ActionAssign: {
		BookingStatusPending: BookingStatusWorkerAssigned,
	},
	ActionAccept: {
		BookingStatusPending:        BookingStatusAccepted,
		BookingStatusWorkerAssigned: BookingStatusAccepted,
	},
	ActionReject: {
		BookingStatusWorkerAssigned: BookingStatusRejected,
	},
	ActionStart: {
		BookingStatusAccepted: BookingStatusInProgress,
	},
	ActionComplete: {
		BookingStatusInProgress: BookingStatusCompleted,
	},
	ActionCancel: {
		BookingStatusPending:        BookingStatusCancelled,
		BookingStatusWorkerAssigned: BookingStatusCancelled,
		BookingStatusAccepted:       BookingStatusCancelled,
		BookingStatusInProgress:     BookingStatusCancelled,
	},
}

// NextStatus returns the target status for an action from the given status.
func NextStatus(from BookingStatus, action BookingAction) (BookingStatus, bool) {
	edges, ok := TransitionTable[action]
	if !ok {
		return "", false
	}
	to, ok := edges[from]
	return to, ok
}

// IsTerminal reports whether no further transition may leave the status.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled || s == BookingStatusRejected
}

// HasPendingOTP reports whether a completion handshake is in flight.
func (b *Booking) HasPendingOTP() bool {
	return b.OTPHash != nil && b.OTPExpiresAt != nil
}

type StatusHistory struct {
	ID         int64         `db:"id"`
	BookingID  uuid.UUID     `db:"booking_id"`
	FromStatus BookingStatus `db:"from_status"`
	ToStatus   BookingStatus `db:"to_status"`
	ActorRole  UserRole      `db:"actor_role"`
	ActorID    *uuid.UUID    `db:"actor_id"`
	CreatedAt  time.Time     `db:"created_at"`
}
