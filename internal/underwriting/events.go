package underwriting

import "sync"

const (
	StatusInProgress  = "In Progress"
	StatusStepSuccess = "Success"
	StatusStepError   = "Error"
)

// Step names emitted over the status stream, in pipeline order.
const (
	StepLoading        = "Statement Loading"
	StepExtraction     = "Text Extraction"
	StepContinuity     = "Statement Continuity"
	StepDailyBalances  = "Daily Balances"
	StepClosingBals    = "Monthly Closing Balances"
	StepFinancials     = "Monthly Financials"
	StepNSF            = "NSF Check"
	StepBalanceCheck   = "Average Daily Balance"
	StepRecommendation = "Loan Recommendation"
	StepUnderwriting   = "Underwriting"
)

// Event is one progress message on the status stream.
type Event struct {
	Step    string `json:"step"`
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}

// Terminal reports whether the event ends a run's stream.
func (e Event) Terminal() bool {
	return e.Step == StepUnderwriting && (e.Status == StatusStepSuccess || e.Status == StatusStepError)
}

const subscriberBuffer = 64

// Hub fans status events out to SSE subscribers. Sends never block the
// pipeline: a subscriber whose buffer is full loses the event.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]string // channel -> run ID filter ("" = all runs)
}

// NewHub constructs a Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]string)}
}

// Subscribe registers a subscriber, optionally filtered to one run ID.
// The returned cancel func must be called when the subscriber goes away.
func (h *Hub) Subscribe(runID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = runID
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// SubscriberCount reports the number of attached subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish delivers the event to every matching subscriber.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch, filter := range h.subs {
		if filter != "" && filter != ev.RunID {
			continue
		}
		select {
		case ch <- ev:
		default:
		}
	}
}
