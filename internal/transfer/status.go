package transfer

import (
	"fmt"
)

// Status is the outcome of a transfer. Values are ordered by severity:
// a lower value is a worse outcome.
type Status int

const (
	// FailedToStart means no bytes moved: the source or destination could
	// not be opened, the object was missing or a session never opened.
	FailedToStart Status = iota
	// FailedToFinish means bytes were in flight when the transfer failed.
	FailedToFinish
	// Skipped means the skip-if-exists policy declined to overwrite.
	Skipped
	Success
)

var statusNames = map[Status]string{
	FailedToStart:  "FAILED_TO_START",
	FailedToFinish: "FAILED_TO_FINISH",
	Skipped:        "SKIPPED",
	Success:        "SUCCESS",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Failed reports whether s is one of the failure statuses.
func (s Status) Failed() bool {
	return s == FailedToStart || s == FailedToFinish
}

func (s Status) MarshalText() ([]byte, error) {
	if _, ok := statusNames[s]; !ok {
		return nil, fmt.Errorf("unknown transfer status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown transfer status %q", text)
}

// compareStatus orders statuses by severity with nil sorting before
// every concrete status.
func compareStatus(a, b *Status) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}
