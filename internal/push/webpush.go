// Package push delivers reminder payloads over the Web Push protocol.
package push

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/reminders"
)

const (
	defaultTTLSeconds = 60 * 60
	defaultTimeout    = 15 * time.Second
	maxErrorBodyBytes = 512
)

var (
	ErrMissingVAPIDKeys  = errors.New("push: vapid key pair required")
	ErrMissingSubscriber = errors.New("push: subscriber contact required")
	// ErrPushDisabled is returned by DisabledSender for every delivery.
	ErrPushDisabled = errors.New("push: delivery disabled")
)

// DeliveryError describes a push service rejection.
type DeliveryError struct {
	StatusCode int
	Body       string
	gone       bool
}

func (e *DeliveryError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("push: delivery rejected with status %d", e.StatusCode)
	}
	return fmt.Sprintf("push: delivery rejected with status %d: %s", e.StatusCode, e.Body)
}

// Unwrap exposes reminders.ErrSubscriptionGone for 404 and 410 responses.
func (e *DeliveryError) Unwrap() error {
	if e.gone {
		return reminders.ErrSubscriptionGone
	}
	return nil
}

// HTTPClient is the transport used to reach push services.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	// Subscriber is the contact push services may use, an email or https URL.
	Subscriber string
	TTL        time.Duration
	HTTPClient HTTPClient
	Logger     *zap.Logger
}

// WebPushSender implements reminders.Sender with VAPID-signed Web Push requests.
type WebPushSender struct {
	publicKey  string
	privateKey string
	subscriber string
	ttlSeconds int
	client     HTTPClient
	logger     *zap.Logger
}

func NewWebPushSender(cfg Config) (*WebPushSender, error) {
	publicKey := strings.TrimSpace(cfg.VAPIDPublicKey)
	privateKey := strings.TrimSpace(cfg.VAPIDPrivateKey)
	if publicKey == "" || privateKey == "" {
		return nil, ErrMissingVAPIDKeys
	}
	subscriber := strings.TrimSpace(cfg.Subscriber)
	if subscriber == "" {
		return nil, ErrMissingSubscriber
	}
	ttlSeconds := int(cfg.TTL / time.Second)
	if ttlSeconds <= 0 {
		ttlSeconds = defaultTTLSeconds
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebPushSender{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		ttlSeconds: ttlSeconds,
		client:     client,
		logger:     logger,
	}, nil
}

// Send encrypts payload for the subscription and posts it to the push service.
func (s *WebPushSender) Send(ctx context.Context, subscription reminders.Subscription, payload []byte) error {
	response, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: subscription.Endpoint,
		Keys: webpush.Keys{
			Auth:   subscription.Auth,
			P256dh: subscription.P256dh,
		},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.subscriber,
		TTL:             s.ttlSeconds,
		Urgency:         webpush.UrgencyNormal,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
	})
	if err != nil {
		return fmt.Errorf("push: send failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBodyBytes))
	deliveryErr := &DeliveryError{
		StatusCode: response.StatusCode,
		Body:       strings.TrimSpace(string(body)),
		gone:       response.StatusCode == http.StatusNotFound || response.StatusCode == http.StatusGone,
	}
	s.logger.Debug("push service rejected delivery",
		zap.Int("status", response.StatusCode),
		zap.Bool("gone", deliveryErr.gone))
	return deliveryErr
}

// DisabledSender fails every delivery. It stands in when no VAPID keys are configured.
type DisabledSender struct{}

func (DisabledSender) Send(context.Context, reminders.Subscription, []byte) error {
	return ErrPushDisabled
}

// GenerateVAPIDKeys returns a new base64url key pair for the server.
func GenerateVAPIDKeys() (privateKey string, publicKey string, err error) {
	return webpush.GenerateVAPIDKeys()
}
