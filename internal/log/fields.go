package log

import "time"

// Attribute keys shared by every component.
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldOperation     = "operation"
	FieldActor         = "actor"
	FieldTransactionID = "transaction_id"
	FieldKind          = "kind"
	FieldAmount        = "amount"
	FieldCategory      = "category"
	FieldDate          = "date"
	FieldFormat        = "format"
)

const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentLedger   = "ledger"
	ComponentStorage  = "storage"
	ComponentSecurity = "security"
	ComponentTrace    = "trace"
	ComponentBackend  = "backend"
)

const (
	OpCreate   = "create"
	OpRead     = "read"
	OpReplace  = "replace"
	OpDelete   = "delete"
	OpList     = "list"
	OpImport   = "import"
	OpExport   = "export"
	OpExtract  = "extract"
	OpShutdown = "shutdown"
)

// Error classes for the error_type attribute.
const (
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeInternal      = "internal_error"
)

// Fields is an ordered list of key/value pairs ready to pass to slog.
// Keys appear in the order they were added.
type Fields []any

func NewFields() Fields { return nil }

func (f Fields) add(kv ...any) Fields { return append(f, kv...) }

func (f Fields) WithComponent(component string) Fields {
	return f.add(FieldComponent, component)
}

func (f Fields) WithClientIP(ip string) Fields {
	if ip == "" {
		return f
	}
	return f.add(FieldClientIP, ip)
}

// WithError adds the message and class of err. A nil err adds nothing.
func (f Fields) WithError(err error, errorType string) Fields {
	if err == nil {
		return f
	}
	return f.add(FieldError, err.Error(), FieldErrorType, errorType)
}

func (f Fields) WithOperation(op string) Fields {
	return f.add(FieldOperation, op)
}

// WithActor adds the authenticated user, when there is one.
func (f Fields) WithActor(actor string) Fields {
	if actor == "" {
		return f
	}
	return f.add(FieldActor, actor)
}

// WithTransaction adds the attributes every ledger write logs.
func (f Fields) WithTransaction(id int64, kind, amount, category, date string) Fields {
	return f.add(
		FieldTransactionID, id,
		FieldKind, kind,
		FieldAmount, amount,
		FieldCategory, category,
		FieldDate, date,
	)
}

// WithRequest adds the request line. Empty query and user agent are skipped.
func (f Fields) WithRequest(method, path, query, userAgent string) Fields {
	f = f.add(FieldMethod, method, FieldPath, path)
	if query != "" {
		f = f.add(FieldQuery, query)
	}
	if userAgent != "" {
		f = f.add(FieldUserAgent, userAgent)
	}
	return f
}

func (f Fields) WithResponse(status int, elapsed time.Duration) Fields {
	return f.add(
		FieldStatusCode, status,
		FieldDuration, elapsed.Milliseconds(),
		FieldSuccess, status < 400,
	)
}
