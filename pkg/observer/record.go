package observer

import (
	"time"

	"github.com/bft-labs/startstop/pkg/lifecycle"
)

// Record is the serialized form of a lifecycle.StateChangeEvent.
type Record struct {
	Service  string          `json:"service"`
	State    lifecycle.State `json:"state"`
	Previous lifecycle.State `json:"previous"`
	Error    string          `json:"error,omitempty"`
	Reason   string          `json:"reason"`
	At       time.Time       `json:"at"`
}

// NewRecord converts an event into a Record.
func NewRecord(e lifecycle.StateChangeEvent) Record {
	r := Record{
		Service:  e.Service,
		State:    e.Current.State,
		Previous: e.Previous.State,
		Reason:   e.Reason,
		At:       e.At.UTC(),
	}
	if e.Current.Err != nil {
		r.Error = e.Current.Err.Error()
	}
	return r
}
