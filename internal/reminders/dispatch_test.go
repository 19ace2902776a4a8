package reminders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingRemover struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func (r *recordingRemover) remove(_ context.Context, endpoint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[endpoint]++
	return r.err
}

func TestReconcileDispatchClassifiesOutcomes(t *testing.T) {
	subscriptions := []Subscription{
		{Endpoint: "https://push.example/ok", UserID: "user-1"},
		{Endpoint: "https://push.example/gone", UserID: "user-1"},
		{Endpoint: "https://push.example/flaky", UserID: "user-2"},
	}
	send := func(_ context.Context, subscription Subscription) error {
		switch subscription.Endpoint {
		case "https://push.example/gone":
			return fmt.Errorf("push rejected with status 410: %w", ErrSubscriptionGone)
		case "https://push.example/flaky":
			return errors.New("push rejected with status 503")
		default:
			return nil
		}
	}
	remover := &recordingRemover{}

	summary := ReconcileDispatch(context.Background(), subscriptions, send, remover.remove)

	assert.Equal(t, DispatchSummary{
		EligibleUserCount: 2,
		SubscriptionCount: 3,
		SuccessCount:      1,
		FailureCount:      2,
		RemovedCount:      1,
	}, summary)
	assert.Equal(t, map[string]int{"https://push.example/gone": 1}, remover.calls)
}

func TestReconcileDispatchSendsOncePerEndpoint(t *testing.T) {
	subscriptions := []Subscription{
		{Endpoint: "https://push.example/gone", UserID: "user-1"},
		{Endpoint: "https://push.example/gone", UserID: "user-1"},
		{Endpoint: "", UserID: "user-1"},
	}
	var sends int32
	send := func(_ context.Context, _ Subscription) error {
		atomic.AddInt32(&sends, 1)
		return ErrSubscriptionGone
	}
	remover := &recordingRemover{}

	summary := ReconcileDispatch(context.Background(), subscriptions, send, remover.remove)

	assert.EqualValues(t, 1, atomic.LoadInt32(&sends))
	assert.Equal(t, 1, remover.calls["https://push.example/gone"])
	assert.Equal(t, 1, summary.SubscriptionCount)
	assert.Equal(t, 1, summary.FailureCount)
	assert.Equal(t, 1, summary.RemovedCount)
}

func TestReconcileDispatchRemovalFailureIsNotCounted(t *testing.T) {
	subscriptions := []Subscription{{Endpoint: "https://push.example/gone", UserID: "user-1"}}
	send := func(_ context.Context, _ Subscription) error { return ErrSubscriptionGone }
	remover := &recordingRemover{err: errors.New("database locked")}

	summary := ReconcileDispatch(context.Background(), subscriptions, send, remover.remove)

	assert.Equal(t, 1, summary.FailureCount)
	assert.Equal(t, 0, summary.RemovedCount)
}

func TestReconcileDispatchBoundsConcurrency(t *testing.T) {
	subscriptions := make([]Subscription, 0, 20)
	for index := 0; index < 20; index++ {
		subscriptions = append(subscriptions, Subscription{Endpoint: fmt.Sprintf("https://push.example/%d", index), UserID: "user-1"})
	}
	var inFlight, peak int32
	send := func(_ context.Context, _ Subscription) error {
		current := atomic.AddInt32(&inFlight, 1)
		for {
			observed := atomic.LoadInt32(&peak)
			if current <= observed || atomic.CompareAndSwapInt32(&peak, observed, current) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	}

	summary := Reconciler{Concurrency: 3}.Reconcile(context.Background(), subscriptions, send, nil)

	assert.Equal(t, 20, summary.SuccessCount)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestReconcileDispatchEmptyInput(t *testing.T) {
	summary := ReconcileDispatch(context.Background(), nil, func(context.Context, Subscription) error { return nil }, nil)

	assert.Equal(t, DispatchSummary{}, summary)
}
