package errs

import (
	"errors"
	"fmt"
	"strings"
)

type CodeError interface {
	error
	Code() int32
	Print(extras ...string) CodeError
	Printf(format string, args ...any) CodeError
	Wrap(err error) CodeError
	Is(error) bool
}

func CreateCodeError(code int32, desc string) CodeError {
	return &codeError{
		Errno: code, // 错误码
		Desc:  desc, // 错误描述, 如: TIMER_NOT_FOUND
	}
}

// WrapError 非CodeError统一归为Unknown, 保留原始错误链
func WrapError(err error) CodeError {
	if err == nil {
		return nil
	}
	var x *codeError
	if errors.As(err, &x) {
		return x
	}
	return Unknown.Wrap(err)
}

// CodeOf 取错误码, nil为OK
func CodeOf(err error) int32 {
	if err == nil {
		return ErrCode_OK
	}
	var x *codeError
	if errors.As(err, &x) {
		return x.Errno
	}
	return ErrCode_Unknown
}

type codeError struct {
	Errno int32
	Desc  string
	cause error
}

func (e *codeError) Code() int32 {
	return e.Errno
}

func (e *codeError) Error() string {
	if e.cause != nil {
		return e.Desc + ": " + e.cause.Error()
	}
	return e.Desc
}

func (e *codeError) String() string {
	return fmt.Sprintf("errno: %d, desc: %s", e.Errno, e.Error())
}

func (e *codeError) Unwrap() error {
	return e.cause
}

func (e *codeError) Print(extras ...string) CodeError {
	if len(extras) == 0 {
		return e
	}
	return &codeError{
		Errno: e.Errno,
		Desc:  e.Desc + "," + strings.Join(extras, ","),
		cause: e.cause,
	}
}

func (e *codeError) Printf(format string, args ...any) CodeError {
	if len(format) == 0 {
		return e
	}
	return &codeError{
		Errno: e.Errno,
		Desc:  fmt.Sprintf(e.Desc+","+format, args...),
		cause: e.cause,
	}
}

func (e *codeError) Wrap(err error) CodeError {
	if err == nil {
		return e
	}
	return &codeError{
		Errno: e.Errno,
		Desc:  e.Desc,
		cause: err,
	}
}

func (e *codeError) Is(target error) bool {
	if x, ok := target.(*codeError); ok {
		return x.Errno == e.Errno
	}
	return false
}
