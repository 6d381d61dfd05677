package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-gin-bus-booking/config"
	apperrors "go-gin-bus-booking/pkg/app_errors"

	jsoniter "github.com/json-iterator/go"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const orderIDMetadataKey = "order_id"

type StripeGateway struct {
	sessions      *session.Client
	webhookSecret string
	successURL    string
	cancelURL     string
}

func NewStripeGateway(cfg config.PaymentConfig) *StripeGateway {
	return &StripeGateway{
		sessions: &session.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: cfg.SecretKey,
		},
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(in.OrderID.String()),
		SuccessURL:        stripe.String(g.successURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(g.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(int64(in.Quantity)),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(in.Currency)),
					UnitAmount: stripe.Int64(in.UnitAmount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(in.Description),
					},
				},
			},
		},
	}
	if in.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}
	if !in.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(in.ExpiresAt.Unix())
	}
	params.AddMetadata(orderIDMetadataKey, in.OrderID.String())
	params.Context = ctx

	sess, err := g.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (g *StripeGateway) SessionPaid(ctx context.Context, sessionID string) (bool, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := g.sessions.Get(sessionID, params)
	if err != nil {
		return false, fmt.Errorf("failed to fetch checkout session: %w", err)
	}
	return isPaid(sess.PaymentStatus), nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signatureHeader string) (*Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidSignature, err)
	}

	return toEvent(evt)
}

func toEvent(evt stripe.Event) (*Event, error) {
	out := &Event{
		ID:      evt.ID,
		Type:    string(evt.Type),
		Kind:    EventIgnored,
		Created: time.Unix(evt.Created, 0).UTC(),
	}

	if !strings.HasPrefix(out.Type, "checkout.session.") || evt.Data == nil {
		return out, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("%w: malformed checkout session: %v", apperrors.ErrInvalidInput, err)
	}
	out.SessionID = sess.ID
	out.OrderID = sess.ClientReferenceID
	if out.OrderID == "" {
		out.OrderID = sess.Metadata[orderIDMetadataKey]
	}

	switch out.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		// card payments settle immediately; delayed methods arrive later as async_payment_succeeded
		if isPaid(sess.PaymentStatus) {
			out.Kind = EventCompleted
		}
	case "checkout.session.async_payment_failed":
		out.Kind = EventFailed
	case "checkout.session.expired":
		out.Kind = EventExpired
	}
	return out, nil
}

func isPaid(status stripe.CheckoutSessionPaymentStatus) bool {
	return status == stripe.CheckoutSessionPaymentStatusPaid ||
		status == stripe.CheckoutSessionPaymentStatusNoPaymentRequired
}
