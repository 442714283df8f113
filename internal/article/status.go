package article

import "strings"

// Status is the lifecycle stage of an article job.
type Status string

const (
	StatusStarting       Status = "Starting"
	StatusReadingFile    Status = "ReadingFile"
	StatusCallingModel   Status = "CallingModel"
	StatusFormatting     Status = "Formatting"
	StatusSearchingImage Status = "SearchingImage"
	StatusComplete       Status = "Complete"
)

const errorPrefix = "Error: "

// ErrorStatus builds the terminal error status for msg.
func ErrorStatus(msg string) Status {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = "unknown error"
	}
	return Status(errorPrefix + msg)
}

var order = map[Status]int{
	StatusStarting:       0,
	StatusReadingFile:    1,
	StatusCallingModel:   2,
	StatusFormatting:     3,
	StatusSearchingImage: 4,
	StatusComplete:       5,
}

// IsError reports whether s is an "Error: <message>" status.
func (s Status) IsError() bool { return strings.HasPrefix(string(s), errorPrefix) }

// ErrorMessage returns the message of an error status, or "".
func (s Status) ErrorMessage() string {
	if !s.IsError() {
		return ""
	}
	return strings.TrimPrefix(string(s), errorPrefix)
}

// IsTerminal reports Complete or any error status.
func (s Status) IsTerminal() bool { return s == StatusComplete || s.IsError() }

// Valid reports whether s is a known stage or an error status.
func (s Status) Valid() bool {
	_, ok := order[s]
	return ok || s.IsError()
}

// CanTransition allows forward moves along the stage order (stages may be
// skipped) and a move to an error status from any non-terminal stage.
func (s Status) CanTransition(to Status) bool {
	if s.IsTerminal() || !to.Valid() {
		return false
	}
	if to.IsError() {
		return true
	}
	return order[to] > order[s]
}
