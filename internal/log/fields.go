package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldTxID       = "transaction_id"
	FieldTxType     = "transaction_type"
	FieldAmount     = "amount"
	FieldCategory   = "category"
	FieldGoalID     = "goal_id"
	FieldPostID     = "post_id"
	FieldOrderRef   = "order_ref"
	FieldSheetsRef  = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp          = "app"
	ComponentHTTP         = "http"
	ComponentLedger       = "ledger"
	ComponentGoals        = "goals"
	ComponentContent      = "content"
	ComponentSubscription = "subscription"
	ComponentReplicator   = "replicator"
	ComponentStorage      = "storage"
	ComponentAMQP         = "amqp"
	ComponentWorker       = "worker"
	ComponentSheets       = "sheets"
	ComponentCheckout     = "checkout"
	ComponentAdmin        = "admin"
	ComponentRateLimit    = "rate_limit"
	ComponentTrace        = "trace"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpSweep    = "sweep"
	OpExport   = "export"
	OpCapture  = "capture"
	OpValidate = "validate"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
