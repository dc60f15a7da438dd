package ctlsock

import "time"

// Commands understood by the control socket.
const (
	// CmdStatus returns the operational state and the most recent run.
	CmdStatus = "status"
	// CmdHistory returns the last Limit runs from the journal.
	CmdHistory = "history"
)

// RequestStruct is sent by a client (encoded as JSON).
type RequestStruct struct {
	// Command is CmdStatus or CmdHistory.
	Command string
	// Limit caps the number of runs returned by CmdHistory. Zero means
	// DefaultHistoryLimit.
	Limit int
}

// DefaultHistoryLimit is used when RequestStruct.Limit is zero.
const DefaultHistoryLimit = 10

// Run describes the processing of one volume.
type Run struct {
	ID       string
	Volume   string
	Started  time.Time
	Finished time.Time
	// Outcome is "running", "ok" or "error".
	Outcome string
	Files   int
	Bytes   uint64
	Skipped int
	Error   string `json:",omitempty"`
}

// ResponseStruct is sent by the server in response to a request
// (encoded as JSON).
type ResponseStruct struct {
	// State is "IDLE", "ENCRYPTING" or "ERROR".
	State string `json:",omitempty"`
	// Last is the most recent run seen by this process.
	Last *Run `json:",omitempty"`
	// Runs is filled by CmdHistory, newest first.
	Runs []Run `json:",omitempty"`
	// ErrNo is the error number as defined in errno.h.
	// 0 means success and -1 means that the error number is not known
	// (look at ErrText in this case).
	ErrNo int32
	// ErrText is a detailed error message.
	ErrText string
	// WarnText contains warnings that may have been encountered while
	// processing the message.
	WarnText string
}
