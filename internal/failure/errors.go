package failure

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrAccessor      = errors.New("accessor error")
	ErrExport        = errors.New("export error")
	ErrTransient     = errors.New("transient failure")
)

// Scope describes how much of a run an error invalidates.
type Scope int

const (
	// ScopeRecord drops one trace or station; processing continues.
	ScopeRecord Scope = iota
	// ScopeEvent abandons the current event; the next event proceeds.
	ScopeEvent
	// ScopeRun aborts the whole run.
	ScopeRun
)

func (s Scope) String() string {
	switch s {
	case ScopeRecord:
		return "record"
	case ScopeEvent:
		return "event"
	default:
		return "run"
	}
}

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ScopeOf maps an error to the part of the run it invalidates. Missing
// prerequisites and bad configuration end the run; accessor and export
// problems end the event; validation problems drop the record.
func ScopeOf(err error) Scope {
	switch {
	case err == nil:
		return ScopeRecord
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound):
		return ScopeRun
	case errors.Is(err, ErrAccessor), errors.Is(err, ErrExport):
		return ScopeEvent
	case errors.Is(err, ErrValidation):
		return ScopeRecord
	default:
		return ScopeRun
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "preparation failure"
	}
	return strings.Join(parts, ": ")
}
