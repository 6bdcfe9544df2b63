package errs

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintfKeepsCode(t *testing.T) {
	err := NotFound.Printf("id:%d", 7)
	assert.Equal(t, "TIMER_NOT_FOUND,id:7", err.Error())
	assert.True(t, errors.Is(err, NotFound))
	assert.False(t, errors.Is(err, Exhausted))
	assert.EqualValues(t, ErrCode_NotFound, err.Code())
}

func TestPrint(t *testing.T) {
	assert.Same(t, InvalidHook, InvalidHook.Print())
	assert.Equal(t, "INVALID_HOOK,a,b", InvalidHook.Print("a", "b").Error())
}

func TestWrapKeepsCause(t *testing.T) {
	err := ReleaseFailed.Wrap(io.EOF)
	assert.True(t, errors.Is(err, ReleaseFailed))
	assert.True(t, errors.Is(err, io.EOF))
	assert.Equal(t, "RELEASE_FAILED: EOF", err.Error())
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil))

	plain := WrapError(io.ErrUnexpectedEOF)
	require.NotNil(t, plain)
	assert.EqualValues(t, ErrCode_Unknown, plain.Code())
	assert.True(t, errors.Is(plain, io.ErrUnexpectedEOF))

	coded := WrapError(Closed)
	assert.EqualValues(t, ErrCode_Closed, coded.Code())
}

func TestCodeOf(t *testing.T) {
	assert.EqualValues(t, ErrCode_OK, CodeOf(nil))
	assert.EqualValues(t, ErrCode_Exhausted, CodeOf(Exhausted.Printf("max:%d", 1)))
	assert.EqualValues(t, ErrCode_Unknown, CodeOf(io.EOF))
}
