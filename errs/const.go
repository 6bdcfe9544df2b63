package errs

const (
	ErrCode_OK             = 0
	ErrCode_Unknown        = 1
	ErrCode_InvalidHook    = 2
	ErrCode_Exhausted      = 3
	ErrCode_NotFound       = 4
	ErrCode_ReleaseFailed  = 5
	ErrCode_DispatchFailed = 6
	ErrCode_Closed         = 7
	ErrCode_BadRequest     = 8
)

var (
	Unknown        = CreateCodeError(ErrCode_Unknown, "UNKNOWN")
	InvalidHook    = CreateCodeError(ErrCode_InvalidHook, "INVALID_HOOK")
	Exhausted      = CreateCodeError(ErrCode_Exhausted, "TIMER_EXHAUSTED")
	NotFound       = CreateCodeError(ErrCode_NotFound, "TIMER_NOT_FOUND")
	ReleaseFailed  = CreateCodeError(ErrCode_ReleaseFailed, "RELEASE_FAILED")
	DispatchFailed = CreateCodeError(ErrCode_DispatchFailed, "DISPATCH_FAILED")
	Closed         = CreateCodeError(ErrCode_Closed, "TIMER_SERVICE_CLOSED")
	BadRequest     = CreateCodeError(ErrCode_BadRequest, "BAD_REQUEST")
)
