package dispatch

import (
	"context"
	"log"
	"time"

	"github.com/deskline/deskline-dispatch/internal/ledger"
	"github.com/deskline/deskline-dispatch/internal/metrics"
)

// Dispatcher drains the queues on a fixed tick: a batch of main-queue
// sessions is mapped onto available agents, then, during office hours,
// unplaced sessions are promoted to the overflow queue and the overflow
// queue is drained against the Overflow team. Ticks are serial; errors
// are logged and never escape the loop.
type Dispatcher struct {
	sessions *SessionStore
	agents   *AgentStore
	selector *AgentSelector
	assigner *Assigner
	hours    *BusinessHours
	ledger   ledger.Store

	interval     time.Duration
	batchSize    int
	promoteBatch int
}

// NewDispatcher wires the dispatcher with the reference tick interval and
// batch sizes; pass zero values to keep the defaults.
func NewDispatcher(sessions *SessionStore, agents *AgentStore, selector *AgentSelector, assigner *Assigner, hours *BusinessHours, lg ledger.Store, interval time.Duration, batchSize, promoteBatch int) *Dispatcher {
	if lg == nil {
		lg = ledger.Noop{}
	}
	if interval <= 0 {
		interval = DefaultDispatchInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if promoteBatch <= 0 {
		promoteBatch = DefaultOverflowPromotionBatch
	}
	return &Dispatcher{
		sessions:     sessions,
		agents:       agents,
		selector:     selector,
		assigner:     assigner,
		hours:        hours,
		ledger:       lg,
		interval:     interval,
		batchSize:    batchSize,
		promoteBatch: promoteBatch,
	}
}

// Run ticks until the context is cancelled. Cancellation stops the loop
// at the next interval boundary.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	log.Printf("[INFO] Dispatcher: started (interval=%v, batch=%d)", d.interval, d.batchSize)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[INFO] Dispatcher: shutting down")
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick runs one full dispatch pass. Exported so tests can drive the
// dispatcher without the ticker.
func (d *Dispatcher) Tick(ctx context.Context) {
	start := time.Now()

	d.processMainQueue(ctx)
	if d.hours.IsOfficeHours() {
		d.moveUnassignedToOverflow(ctx)
		d.processOverflowQueue(ctx)
	}

	metrics.TickDuration.WithLabelValues("dispatcher").Observe(time.Since(start).Seconds())
	metrics.QueueDepth.WithLabelValues("main").Set(float64(d.sessions.QueueLength()))
	metrics.QueueDepth.WithLabelValues("overflow").Set(float64(d.sessions.OverflowQueueLength()))
	metrics.AvailableAgents.Set(float64(len(d.agents.AvailableForAssignment())))
}

// processMainQueue offers the head of the main queue to the batch
// optimizer and commits the resulting pairs.
func (d *Dispatcher) processMainQueue(ctx context.Context) {
	available := d.agents.AvailableForAssignment()
	if len(available) == 0 {
		return
	}
	batch := d.sessions.MainQueue()
	limit := d.batchSize
	if len(available) < limit {
		limit = len(available)
	}
	if len(batch) > limit {
		batch = batch[:limit]
	}
	if len(batch) == 0 {
		return
	}

	pairs := d.selector.CreateOptimalAssignments(batch, available, false)
	d.commit(ctx, pairs)
}

// moveUnassignedToOverflow flips up to promoteBatch still-queued sessions
// into the overflow queue. They drain on the next tick, bounding overflow
// latency at one interval.
func (d *Dispatcher) moveUnassignedToOverflow(ctx context.Context) {
	moved := 0
	for _, sess := range d.sessions.MainQueue() {
		if moved >= d.promoteBatch {
			break
		}
		if !sess.MoveToOverflow() {
			continue
		}
		moved++
		if err := d.sessions.Update(ctx, sess); err != nil {
			log.Printf("[ERROR] Dispatcher: persist overflow move %s: %v", sess.ID, err)
		}
		metrics.OverflowPromotions.Inc()
		if err := d.ledger.Record(ctx, ledger.Event{
			SessionID: sess.ID,
			UserID:    sess.UserID,
			Type:      ledger.EventOverflowed,
		}); err != nil {
			log.Printf("[WARN] Dispatcher: ledger record: %v", err)
		}
	}
	if moved > 0 {
		log.Printf("[INFO] Dispatcher: promoted %d sessions to overflow", moved)
	}
}

// processOverflowQueue drains the overflow queue against the Overflow
// team only.
func (d *Dispatcher) processOverflowQueue(ctx context.Context) {
	batch := d.sessions.OverflowQueue()
	if len(batch) > d.batchSize {
		batch = batch[:d.batchSize]
	}
	if len(batch) == 0 {
		return
	}
	var overflowAgents []*Agent
	for _, a := range d.agents.ByTeam(TeamOverflow) {
		if a.CanAccept() {
			overflowAgents = append(overflowAgents, a)
		}
	}
	if len(overflowAgents) == 0 {
		return
	}

	pairs := d.selector.CreateOptimalAssignments(batch, overflowAgents, true)
	d.commit(ctx, pairs)
}

// commit runs TryAssign for each reserved pair, releasing the
// reservation whenever the commit does not go through.
func (d *Dispatcher) commit(ctx context.Context, pairs []Assignment) {
	for _, p := range pairs {
		if !d.assigner.TryAssign(ctx, p.Session, p.Agent) {
			p.Agent.ReleaseReservation()
			continue
		}
		if err := d.ledger.Record(ctx, ledger.Event{
			SessionID: p.Session.ID,
			UserID:    p.Session.UserID,
			AgentID:   p.Agent.ID,
			Type:      ledger.EventAssigned,
		}); err != nil {
			log.Printf("[WARN] Dispatcher: ledger record: %v", err)
		}
	}
}
