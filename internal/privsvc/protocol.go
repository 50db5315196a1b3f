// Package privsvc implements the Privileged Service side of the control
// protocol (spec §4.C): the tagged command/response union exchanged with
// the controller over internal/ipc, the installation state machine, and
// the privilege-elevation dance needed to install/uninstall the Service
// under each platform's service manager.
package privsvc

// CommandKind discriminates a Command's payload, mirroring the original
// Rust service's `ipc/protocol.rs` tagged union.
type CommandKind string

const (
	CommandStartClash  CommandKind = "start_clash"
	CommandStopClash   CommandKind = "stop_clash"
	CommandGetStatus   CommandKind = "get_status"
	CommandGetLogs     CommandKind = "get_logs"
	CommandGetVersion  CommandKind = "get_version"
	CommandStreamLogs  CommandKind = "stream_logs"
	CommandHeartbeat   CommandKind = "heartbeat"
)

// Command is a single message sent from the controller to the Service.
// Only the field(s) relevant to Kind are populated.
type Command struct {
	Kind CommandKind `json:"kind"`

	// StartClash fields.
	CorePath            string `json:"core_path,omitempty"`
	ConfigPath          string `json:"config_path,omitempty"`
	DataDir             string `json:"data_dir,omitempty"`
	ExternalController  string `json:"external_controller,omitempty"`

	// GetLogs fields.
	Lines int `json:"lines,omitempty"`
}

// ResponseKind discriminates a Response's payload.
type ResponseKind string

const (
	ResponseSuccess      ResponseKind = "success"
	ResponseError        ResponseKind = "error"
	ResponseStatus       ResponseKind = "status"
	ResponseLogs         ResponseKind = "logs"
	ResponseVersion      ResponseKind = "version"
	ResponseLogStream    ResponseKind = "log_stream"
	ResponseHeartbeatAck ResponseKind = "heartbeat_ack"
)

// Response is a single message sent from the Service back to the
// controller, in reply to a Command or (for ResponseLogStream) as an
// unsolicited push following a StreamLogs subscription.
type Response struct {
	Kind ResponseKind `json:"kind"`

	// Success.
	Message string `json:"message,omitempty"`

	// Error.
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	// Status.
	Running bool   `json:"running,omitempty"`
	PID     int    `json:"pid,omitempty"`
	Uptime  string `json:"uptime,omitempty"`

	// Logs.
	LogLines []string `json:"log_lines,omitempty"`

	// Version.
	Version string `json:"version,omitempty"`

	// LogStream.
	Line string `json:"line,omitempty"`
}

// SuccessResponse builds a ResponseSuccess, optionally carrying msg.
func SuccessResponse(msg string) Response {
	return Response{Kind: ResponseSuccess, Message: msg}
}

// ErrorResponse builds a ResponseError.
func ErrorResponse(code, msg string) Response {
	return Response{Kind: ResponseError, ErrorCode: code, ErrorMessage: msg}
}
