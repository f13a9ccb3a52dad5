package realm

// Error is a sentinel error type for realm-level routing failures, each of
// which corresponds to a wire reason URI the caller maps separately.
type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrNoSuchRealm            Error = "no such realm"
	ErrNoSuchSubscription     Error = "no such subscription"
	ErrNoSuchRegistration     Error = "no such registration"
	ErrNoSuchProcedure        Error = "no such procedure"
	ErrProcedureAlreadyExists Error = "procedure already exists"
	ErrInvalidURI             Error = "invalid uri"
	ErrRealmAlreadyExists     Error = "realm already exists"
	ErrRouterAlreadyServing   Error = "router is already serving"
)
