package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldUserID      = "user_id"
	FieldLogin       = "login"
	FieldPurchaseID  = "purchase_id"
	FieldStatus      = "status"
	FieldAmountCents = "amount_cents"
	FieldDueDate     = "due_date"
	FieldPromoted    = "promoted"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentAuth    = "auth"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentSession = "session"
)

// Operations defines standard operation names
const (
	OpRegister  = "register"
	OpLogin     = "login"
	OpLogout    = "logout"
	OpCreate    = "create"
	OpUpdate    = "update"
	OpPay       = "pay"
	OpDelete    = "delete"
	OpList      = "list"
	OpReconcile = "reconcile_overdue"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)
