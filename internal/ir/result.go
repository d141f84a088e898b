package ir

import "time"

// Outcome is the result class of reconciling one entry.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	// AlreadyTracked means the address was in the state store; nothing was done.
	AlreadyTracked
	// NotFoundUpstream means the resource does not exist in Azure yet; creation
	// is left to terraform apply.
	NotFoundUpstream
	// Imported means the resource identifier was recorded in the state store.
	Imported
	// ImportFailed means the lookup or the import could not complete. Result.Err
	// holds the cause.
	ImportFailed
)

func (o Outcome) String() string {
	switch o {
	case AlreadyTracked:
		return "AlreadyTracked"
	case NotFoundUpstream:
		return "NotFoundUpstream"
	case Imported:
		return "Imported"
	case ImportFailed:
		return "ImportFailed"
	default:
		return "Unknown"
	}
}

// Result describes what happened to a single entry.
type Result struct {
	Entry    *Entry
	Outcome  Outcome
	ID       string
	Err      error
	DryRun   bool
	Duration time.Duration
}

// Summary counts results per outcome.
type Summary struct {
	AlreadyTracked   int
	NotFoundUpstream int
	Imported         int
	ImportFailed     int
}

// Add records one outcome.
func (s *Summary) Add(o Outcome) {
	switch o {
	case AlreadyTracked:
		s.AlreadyTracked++
	case NotFoundUpstream:
		s.NotFoundUpstream++
	case Imported:
		s.Imported++
	case ImportFailed:
		s.ImportFailed++
	}
}
