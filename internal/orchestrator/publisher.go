package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dropscope/dropscope/internal/domain"
	"github.com/dropscope/dropscope/pkg/telemetry"
)

// subscriberBuffer bounds how far a live-stream consumer may lag before it
// is dropped. Dropping never blocks the task's worker.
const subscriberBuffer = 16

// Sink receives every published status snapshot, e.g. a Kafka topic for
// external observers. Publish failures are logged and ignored.
type Sink interface {
	Publish(ctx context.Context, snap domain.StatusSnapshot) error
}

type subscriber struct {
	ch          chan domain.StatusSnapshot
	lastStatus  domain.Status
	lastMessage string
}

// differs reports whether snap is a new distinct (status, message) pair for
// this subscriber. Streams emit only on change.
func (s *subscriber) differs(snap domain.StatusSnapshot) bool {
	return s.lastStatus != snap.Status || s.lastMessage != snap.Message
}

// Publisher fans task state changes out to live subscribers and an optional
// sink. Notification is event-driven: the worker publishes on every
// mutation instead of observers polling on a timer.
type Publisher struct {
	mu     sync.Mutex
	subs   map[string][]*subscriber
	sink   Sink
	logger *slog.Logger
}

// NewPublisher creates a Publisher. sink may be nil.
func NewPublisher(sink Sink, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		subs:   make(map[string][]*subscriber),
		sink:   sink,
		logger: logger,
	}
}

// Subscribe returns a channel seeded with current that then receives one
// snapshot per distinct (status, message) change until a terminal snapshot
// is delivered, after which the channel is closed. The returned cancel
// function detaches the subscriber early; it is safe to call twice.
func (p *Publisher) Subscribe(taskID string, current domain.StatusSnapshot) (<-chan domain.StatusSnapshot, func()) {
	ch := make(chan domain.StatusSnapshot, subscriberBuffer)
	ch <- current
	if current.Terminal {
		close(ch)
		return ch, func() {}
	}

	sub := &subscriber{ch: ch, lastStatus: current.Status, lastMessage: current.Message}
	p.mu.Lock()
	p.subs[taskID] = append(p.subs[taskID], sub)
	p.mu.Unlock()
	telemetry.StreamSubscribers.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.mu.Lock()
			p.remove(taskID, sub)
			p.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish delivers snap to every subscriber of the task for which it is a
// new distinct state. A terminal snapshot additionally closes and removes
// all of the task's subscribers.
func (p *Publisher) Publish(ctx context.Context, snap domain.StatusSnapshot) {
	if p.sink != nil {
		if err := p.sink.Publish(ctx, snap); err != nil {
			p.logger.Warn("status sink publish failed",
				slog.String("task_id", snap.TaskID),
				slog.String("error", err.Error()),
			)
		}
	}
	p.fanOut(snap)
}

// fanOut delivers snap to live subscribers, bypassing the sink. Used to
// re-deliver a snapshot the sink has already seen, e.g. when a subscriber
// registered after the task's terminal publish.
func (p *Publisher) fanOut(snap domain.StatusSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	kept := p.subs[snap.TaskID][:0]
	for _, sub := range p.subs[snap.TaskID] {
		if !sub.differs(snap) {
			kept = append(kept, sub)
			continue
		}
		select {
		case sub.ch <- snap:
			sub.lastStatus = snap.Status
			sub.lastMessage = snap.Message
			kept = append(kept, sub)
		default:
			// Lagging consumer: drop it rather than stall the worker.
			close(sub.ch)
			telemetry.StreamSubscribers.Dec()
			p.logger.Warn("dropping lagging stream subscriber", slog.String("task_id", snap.TaskID))
		}
	}
	p.subs[snap.TaskID] = kept

	if snap.Terminal {
		for _, sub := range p.subs[snap.TaskID] {
			close(sub.ch)
			telemetry.StreamSubscribers.Dec()
		}
		delete(p.subs, snap.TaskID)
	}
}

// remove is called with p.mu held.
func (p *Publisher) remove(taskID string, target *subscriber) {
	kept := p.subs[taskID][:0]
	for _, sub := range p.subs[taskID] {
		if sub == target {
			close(sub.ch)
			telemetry.StreamSubscribers.Dec()
			continue
		}
		kept = append(kept, sub)
	}
	if len(kept) == 0 {
		delete(p.subs, taskID)
	} else {
		p.subs[taskID] = kept
	}
}
