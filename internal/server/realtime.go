package server

import (
	"context"
	"sort"
	"sync"
	"time"
)

const (
	RealtimeEventEntryChanged = "entry-change"
	realtimeEventHeartbeat    = "heartbeat"
	realtimeSourceBackend     = "frogsy-backend"
	realtimeHeartbeatInterval = 25 * time.Second
	realtimeBufferSize        = 16
)

// RealtimeMessage notifies one user's open clients that data changed.
type RealtimeMessage struct {
	UserID    string
	EventType string
	Dates     []string
	Timestamp time.Time
}

type realtimePayload struct {
	Source    string   `json:"source"`
	Dates     []string `json:"dates,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

func (m RealtimeMessage) payload() realtimePayload {
	return realtimePayload{
		Source:    realtimeSourceBackend,
		Dates:     m.Dates,
		Timestamp: m.Timestamp.Unix(),
	}
}

// RealtimeDispatcher fans messages out to per-user subscribers. Slow
// subscribers drop messages rather than block publishers.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]chan RealtimeMessage
	nextID      int64
	bufferSize  int
	watchers    sync.WaitGroup
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[string]map[int64]chan RealtimeMessage),
		bufferSize:  realtimeBufferSize,
	}
}

// Subscribe registers a stream for userID that is removed when ctx ends or
// the returned cancel is called.
func (d *RealtimeDispatcher) Subscribe(ctx context.Context, userID string) (<-chan RealtimeMessage, func()) {
	if userID == "" {
		closed := make(chan RealtimeMessage)
		close(closed)
		return closed, func() {}
	}
	stream := make(chan RealtimeMessage, d.bufferSize)

	d.mu.Lock()
	d.nextID++
	id := d.nextID
	if d.subscribers[userID] == nil {
		d.subscribers[userID] = make(map[int64]chan RealtimeMessage)
	}
	d.subscribers[userID][id] = stream
	d.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			d.unsubscribe(userID, id)
		})
	}
	d.watchers.Add(1)
	go func() {
		defer d.watchers.Done()
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return stream, cancel
}

func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if message.UserID == "" || message.EventType == "" {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, stream := range d.subscribers[message.UserID] {
		select {
		case stream <- message:
		default:
		}
	}
}

// PublishEntryChange announces changed dates, sorted and deduplicated.
func (d *RealtimeDispatcher) PublishEntryChange(userID string, dates []string, at time.Time) {
	unique := collectDates(dates)
	if len(unique) == 0 {
		return
	}
	d.Publish(RealtimeMessage{
		UserID:    userID,
		EventType: RealtimeEventEntryChanged,
		Dates:     unique,
		Timestamp: at,
	})
}

// SubscriberCount reports the open streams for userID.
func (d *RealtimeDispatcher) SubscriberCount(userID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers[userID])
}

func (d *RealtimeDispatcher) unsubscribe(userID string, id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	streams := d.subscribers[userID]
	if streams == nil {
		return
	}
	delete(streams, id)
	if len(streams) == 0 {
		delete(d.subscribers, userID)
	}
}

func collectDates(dates []string) []string {
	if len(dates) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(dates))
	out := make([]string, 0, len(dates))
	for _, date := range dates {
		if date == "" {
			continue
		}
		if _, ok := seen[date]; ok {
			continue
		}
		seen[date] = struct{}{}
		out = append(out, date)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
