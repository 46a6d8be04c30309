package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor, matches middleware.UserIDKey
	FieldUserID = "user_id"

	// Realtime
	FieldConnectionID = "connection_id"
	FieldChannel      = "channel"
	FieldTransport    = "transport"
	FieldRoomID       = "room_id"
	FieldSessionID    = "session_id"
	FieldMessageID    = "message_id"

	// Process
	FieldService = "service"
	FieldHost    = "host"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
