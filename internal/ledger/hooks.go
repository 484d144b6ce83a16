package ledger

import "time"

// Hooks receives ledger observability events.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncRejected(name, code string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncRejected(string, string)                     {}
