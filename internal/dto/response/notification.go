package response

import (
	"time"

	"servicehub/internal/data/entity"
)

type NotificationResponse struct {
	ID            string                  `json:"id"`
	RecipientID   string                  `json:"recipient_id"`
	RecipientRole entity.UserRole         `json:"recipient_role"`
	Type          entity.NotificationType `json:"type"`
	Message       string                  `json:"message"`
	BookingID     *string                 `json:"booking_id,omitempty"`
	IsRead        bool                    `json:"is_read"`
	CreatedAt     time.Time               `json:"created_at"`
}

func NotificationToResponse(n *entity.Notification) NotificationResponse {
	var bookingID *string
	if n.BookingID != nil {
		s := n.BookingID.String()
		bookingID = &s
	}

	return NotificationResponse{
		ID:            n.ID.String(),
		RecipientID:   n.RecipientID.String(),
		RecipientRole: n.RecipientRole,
		Type:          n.Type,
		Message:       n.Message,
		BookingID:     bookingID,
		IsRead:        n.IsRead,
		CreatedAt:     n.CreatedAt,
	}
}
