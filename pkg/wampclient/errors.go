package wampclient

// Error is a sentinel error type for client-runtime conditions.
type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrProtocolMismatch  Error = "protocol mismatch"
	ErrHandshakeRejected Error = "handshake rejected"
	ErrTransportClosed   Error = "transport closed"
	ErrAlreadyShutdown   Error = "session already shutting down"
)

// RemoteError wraps an ERROR frame the router sent in reply to a request,
// so callers can recover the reason URI and payload from a failed Call,
// Subscribe, Register, Unsubscribe, Unregister, or acknowledged Publish.
type RemoteError struct {
	Reason string
	Args   []interface{}
	Kwargs map[string]interface{}
}

func (e *RemoteError) Error() string { return e.Reason }
