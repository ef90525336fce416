package pipeline

import (
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// Event is the outcome of one document in a batch.
type Event struct {
	RunID    string
	Document string
	Status   constants.DocumentStatus
	Stage    constants.Stage // last stage reached
	Reason   string          // empty on success
	Rows     int
	Method   string // text acquisition method
	Elapsed  time.Duration
}

// Report summarises one batch run.
type Report struct {
	RunID    string
	Path     string // empty when nothing was written
	Rows     int
	Events   []Event
	Duration time.Duration
}

// Count returns how many events carry status s.
func (r Report) Count(s constants.DocumentStatus) int {
	n := 0
	for _, e := range r.Events {
		if e.Status == s {
			n++
		}
	}
	return n
}
