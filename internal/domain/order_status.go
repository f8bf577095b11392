package domain

// OrderStatus is the lifecycle state of a song request.
//
//	pending ──advance──▶ in_progress ──advance──▶ completed
//	   │                      │
//	   └──────cancel──────────┴──────────────────▶ cancelled
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusInProgress OrderStatus = "in_progress"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

// ActiveStatuses lists the non-terminal states, i.e. the venue queue.
var ActiveStatuses = []OrderStatus{StatusPending, StatusInProgress}

// Valid reports whether s is one of the known states.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Next returns the state reached by advancing s. The second result is false
// when s cannot be advanced.
func (s OrderStatus) Next() (OrderStatus, bool) {
	switch s {
	case StatusPending:
		return StatusInProgress, true
	case StatusInProgress:
		return StatusCompleted, true
	}
	return s, false
}

// CanCancel reports whether an order in state s may be cancelled.
func (s OrderStatus) CanCancel() bool {
	return s == StatusPending || s == StatusInProgress
}

// Label is a short human-readable form used in chat replies.
func (s OrderStatus) Label() string {
	switch s {
	case StatusPending:
		return "waiting"
	case StatusInProgress:
		return "on stage"
	case StatusCompleted:
		return "done"
	case StatusCancelled:
		return "cancelled"
	}
	return string(s)
}
