package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEvent is the key for the seismic event name being prepared.
	FieldEvent = "event"
	// FieldRunID correlates all records of one prepare invocation.
	FieldRunID = "run_id"
	// FieldNSL is the key for station identifiers (NET.STA.LOC).
	FieldNSL = "nsl"
	// FieldNSLC is the key for channel identifiers (NET.STA.LOC.CHA).
	FieldNSLC = "nslc"
	// FieldTraceID is the key for a trace's full identity including its span.
	FieldTraceID = "trace_id"
	// FieldEventType classifies a record for filtering (e.g. distance_rejected).
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)
