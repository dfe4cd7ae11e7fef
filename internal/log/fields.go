package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
	FieldStatusCode = "status_code"

	FieldSource        = "source"
	FieldBatchID       = "batch_id"
	FieldHeaderCount   = "headers"
	FieldDetailCount   = "details"
	FieldParseFailures = "parse_failures"
	FieldDeletedCount  = "deleted"
	FieldTotalRows     = "total_rows"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentWorkflow = "workflow"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentBackend  = "backend"
)

// Operations defines standard operation names
const (
	OpPreview  = "preview"
	OpDedupe   = "dedupe"
	OpCommit   = "commit"
	OpCancel   = "cancel"
	OpParse    = "parse"
	OpLink     = "link"
	OpSync     = "sync"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithBatch adds batch identification fields
func (f LogFields) WithBatch(batchID, source string) LogFields {
	f[FieldBatchID] = batchID
	if source != "" {
		f[FieldSource] = source
	}
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
