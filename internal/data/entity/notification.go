package entity

import (
	"github.com/google/uuid"
)

type NotificationType string

const (
	NotifyNewBookingAvailable NotificationType = "new_booking_available"
	NotifyWorkerAssigned      NotificationType = "worker_assigned"
	NotifyBookingAccepted     NotificationType = "booking_accepted"
	NotifyBookingRejected     NotificationType = "booking_rejected"
	NotifyBookingStarted      NotificationType = "booking_started"
	NotifyBookingCompleted    NotificationType = "booking_completed"
	NotifyBookingCancelled    NotificationType = "booking_cancelled"
	NotifyAssignmentTimeout   NotificationType = "assignment_timeout"
	NotifyPaymentReceived     NotificationType = "payment_received"
)

// Notification is the durable record; live push reuses the same payload.
// Delivery is at-least-once: clients may see a row both via push and poll.
type Notification struct {
	BaseSimple
	RecipientID   uuid.UUID        `db:"recipient_id"`
	RecipientRole UserRole         `db:"recipient_role"`
	Type          NotificationType `db:"type"`
	Message       string           `db:"message"`
	BookingID     *uuid.UUID       `db:"booking_id"`
	IsRead        bool             `db:"is_read"`
}
