package errors

type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeNotAuthorized    Code = "NOT_AUTHORIZED"
	CodeAlreadyInQueue   Code = "ALREADY_IN_QUEUE"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
	CodeInternal         Code = "INTERNAL"
)
