package router

// Error is a sentinel error type for session-level protocol failures.
type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrInvalidMessageType Error = "invalid message type"
	ErrHandshakeRejected  Error = "handshake rejected"
)

// Reason URIs, serialized as wamp.error.<snake_case> on the wire except for
// the literal exception option-disallowed.disclose_me.
const (
	ReasonInvalidURI             = "wamp.error.invalid_uri"
	ReasonInvalidMessageType     = "wamp.error.invalid_message_type"
	ReasonNoSuchProcedure        = "wamp.error.no_such_procedure"
	ReasonProcedureAlreadyExists = "wamp.error.procedure_already_exists"
	ReasonNoSuchRegistration     = "wamp.error.no_such_registration"
	ReasonNoSuchSubscription     = "wamp.error.no_such_subscription"
	ReasonInvalidArgument        = "wamp.error.invalid_argument"
	ReasonSystemShutdown         = "wamp.error.system_shutdown"
	ReasonCloseRealm             = "wamp.error.close_realm"
	ReasonGoodbyeAndOut          = "wamp.error.goodbye_and_out"
	ReasonNotAuthorized          = "wamp.error.not_authorized"
	ReasonAuthorizationFailed    = "wamp.error.authorization_failed"
	ReasonNoSuchRealm            = "wamp.error.no_such_realm"
	ReasonNoSuchRole             = "wamp.error.no_such_role"
	ReasonCancelled              = "wamp.error.cancelled"
	ReasonOptionNotAllowed       = "wamp.error.option_not_allowed"
	ReasonNoEligibleCallee       = "wamp.error.no_eligible_callee"
	ReasonDiscloseMe             = "wamp.error.option-disallowed.disclose_me"
	ReasonNetworkFailure         = "wamp.error.network_failure"
)
