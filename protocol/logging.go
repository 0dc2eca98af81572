package protocol

// LogLevel mirrors the RFC 5424 severity levels MCP's logging capability
// uses.
type LogLevel string

const (
	LogLevelDebug     LogLevel = "debug"
	LogLevelInfo      LogLevel = "info"
	LogLevelNotice    LogLevel = "notice"
	LogLevelWarning   LogLevel = "warning"
	LogLevelError     LogLevel = "error"
	LogLevelCritical  LogLevel = "critical"
	LogLevelAlert     LogLevel = "alert"
	LogLevelEmergency LogLevel = "emergency"
)

// SetLevelRequest asks a server to change its minimum emitted log level.
type SetLevelRequest struct {
	Level LogLevel `json:"level"`
	Meta  Meta     `json:"_meta,omitempty"`
}

func (SetLevelRequest) Method() string { return "logging/setLevel" }

// LoggingMessageNotification delivers one log record from server to
// client.
type LoggingMessageNotification struct {
	Level  LogLevel `json:"level"`
	Logger string   `json:"logger,omitempty"`
	Data   any      `json:"data"`
	Meta   Meta     `json:"_meta,omitempty"`
}

func (LoggingMessageNotification) Method() string { return "notifications/message" }
