package payment

import (
	"errors"
	"fmt"

	"github.com/razorpay/razorpay-go"
	"go.uber.org/zap"
)

// ErrNotConfigured signals that no gateway credentials were provided.
// Reconciliation then records the client signal as unverified.
var ErrNotConfigured = errors.New("payment gateway not configured")

// Gateway checks payment orders against the provider. The client-side
// "I paid" signal is advisory only; this is the verification path.
type Gateway interface {
	IsOrderPaid(orderID string) (bool, error)
}

type razorpayGateway struct {
	client *razorpay.Client
	log    *zap.Logger
}

// NewGateway returns a razorpay-backed Gateway, or a disabled one when the
// credentials are empty.
func NewGateway(keyID, keySecret string, log *zap.Logger) Gateway {
	if keyID == "" || keySecret == "" {
		return &razorpayGateway{client: nil, log: log.With(zap.String("component", "payment_gateway"))}
	}
	return &razorpayGateway{
		client: razorpay.NewClient(keyID, keySecret),
		log:    log.With(zap.String("component", "payment_gateway")),
	}
}

func (g *razorpayGateway) IsOrderPaid(orderID string) (bool, error) {
	if g.client == nil {
		return false, ErrNotConfigured
	}

	order, err := g.client.Order.Fetch(orderID, nil, nil)
	if err != nil {
		g.log.Error("Failed to fetch gateway order",
			zap.Error(err),
			zap.String("order_id", orderID),
		)
		return false, fmt.Errorf("fetch gateway order %s: %w", orderID, err)
	}

	status, _ := order["status"].(string)
	return status == "paid", nil
}
