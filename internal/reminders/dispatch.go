package reminders

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultDispatchConcurrency = 8

// ErrSubscriptionGone indicates the push service reported the endpoint as
// permanently invalid. Senders wrap it so callers can match with errors.Is.
var ErrSubscriptionGone = errors.New("reminders: subscription gone")

// Subscription is the dispatch view of a push endpoint.
type Subscription struct {
	Endpoint string
	UserID   string
	P256dh   string
	Auth     string
}

// SendFunc delivers one message to one subscription.
type SendFunc func(ctx context.Context, subscription Subscription) error

// RemoveFunc deletes a subscription by endpoint.
type RemoveFunc func(ctx context.Context, endpoint string) error

// DispatchSummary counts the outcome of one dispatch round.
type DispatchSummary struct {
	EligibleUserCount int `json:"eligible_user_count"`
	SubscriptionCount int `json:"subscription_count"`
	SuccessCount      int `json:"success_count"`
	FailureCount      int `json:"failure_count"`
	RemovedCount      int `json:"removed_count"`
}

// Reconciler sends to subscriptions with bounded concurrency and prunes gone endpoints.
type Reconciler struct {
	Concurrency int
	Logger      *zap.Logger
}

// ReconcileDispatch runs a Reconciler with default settings.
func ReconcileDispatch(ctx context.Context, subscriptions []Subscription, send SendFunc, remove RemoveFunc) DispatchSummary {
	return Reconciler{}.Reconcile(ctx, subscriptions, send, remove)
}

// Reconcile sends once per distinct endpoint. Gone endpoints are removed and
// counted as failures. Other failures are counted and the subscription kept.
func (r Reconciler) Reconcile(ctx context.Context, subscriptions []Subscription, send SendFunc, remove RemoveFunc) DispatchSummary {
	unique := dedupeByEndpoint(subscriptions)
	summary := DispatchSummary{
		EligibleUserCount: countUsers(unique),
		SubscriptionCount: len(unique),
	}
	if len(unique) == 0 || send == nil {
		summary.FailureCount = len(unique)
		return summary
	}

	logger := r.Logger
	if logger == nil {
		logger = noOpLogger
	}
	limit := r.Concurrency
	if limit <= 0 {
		limit = defaultDispatchConcurrency
	}

	var (
		mu    sync.Mutex
		group errgroup.Group
	)
	group.SetLimit(limit)
	for _, subscription := range unique {
		group.Go(func() error {
			err := send(ctx, subscription)
			removed := false
			if err != nil && errors.Is(err, ErrSubscriptionGone) && remove != nil {
				if removeErr := remove(ctx, subscription.Endpoint); removeErr != nil {
					logger.Warn("push subscription removal failed",
						zap.String("user_id", subscription.UserID),
						zap.Error(removeErr))
				} else {
					removed = true
				}
			}
			if err != nil {
				logger.Warn("push delivery failed",
					zap.String("user_id", subscription.UserID),
					zap.Bool("gone", errors.Is(err, ErrSubscriptionGone)),
					zap.Error(err))
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.FailureCount++
			} else {
				summary.SuccessCount++
			}
			if removed {
				summary.RemovedCount++
			}
			return nil
		})
	}
	_ = group.Wait()
	return summary
}

func dedupeByEndpoint(subscriptions []Subscription) []Subscription {
	seen := make(map[string]struct{}, len(subscriptions))
	unique := make([]Subscription, 0, len(subscriptions))
	for _, subscription := range subscriptions {
		if subscription.Endpoint == "" {
			continue
		}
		if _, ok := seen[subscription.Endpoint]; ok {
			continue
		}
		seen[subscription.Endpoint] = struct{}{}
		unique = append(unique, subscription)
	}
	return unique
}

func countUsers(subscriptions []Subscription) int {
	users := make(map[string]struct{}, len(subscriptions))
	for _, subscription := range subscriptions {
		users[subscription.UserID] = struct{}{}
	}
	return len(users)
}
