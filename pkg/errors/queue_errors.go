package errors

var (
	// Доменные ошибки движка очереди
	ErrNotAuthorized    = New(CodeNotAuthorized, "not authorized")
	ErrAlreadyInQueue   = New(CodeAlreadyInQueue, "user is already in the queue")
	ErrStoreUnavailable = New(CodeStoreUnavailable, "queue store unavailable")
)

func ErrStoreFailure(cause error) error {
	return Wrap(CodeStoreUnavailable, "queue store unavailable", cause)
}
