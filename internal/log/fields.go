package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldOrganization = "organization_id"
	FieldUser         = "user_id"
	FieldRole         = "role"
	FieldEntity       = "entity"
	FieldEntityID     = "entity_id"
	FieldEventID      = "event_id"
	FieldAmountCents  = "amount_cents"
	FieldYear         = "year"
	FieldMonth        = "month"
	FieldRows         = "rows"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentCLI       = "cli"
	ComponentStorage   = "storage"
	ComponentLedger    = "ledger"
	ComponentDirectory = "directory"
	ComponentBudget    = "budget"
	ComponentReport    = "report"
	ComponentExport    = "export"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
)

// Operations defines standard operation names
const (
	OpCreate     = "create"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpDeactivate = "deactivate"
	OpExport     = "export"
	OpRegister   = "register"
	OpReport     = "report"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithActor adds the caller's organization, user and role.
func (f LogFields) WithActor(orgID, userID int64, role string) LogFields {
	f[FieldOrganization] = orgID
	f[FieldUser] = userID
	f[FieldRole] = role
	return f
}

// WithEntity adds the affected entity kind and id.
func (f LogFields) WithEntity(entity string, id int64) LogFields {
	f[FieldEntity] = entity
	f[FieldEntityID] = id
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
