package errs

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	err := Wrap(ErrDecode, "decode 0001.jpg", io.ErrUnexpectedEOF)

	assert.ErrorIs(t, err, ErrDecode)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "decode error: decode 0001.jpg: unexpected EOF", err.Error())
}

func TestWrapWithoutCause(t *testing.T) {
	err := Wrap(ErrSequencing, "missing page 3", nil)
	assert.ErrorIs(t, err, ErrSequencing)
	assert.Equal(t, "sequencing error: missing page 3", err.Error())

	assert.Equal(t, ErrPackage, Wrap(ErrPackage, "", nil))
}

func TestHTTPStatusError(t *testing.T) {
	var err error = &HTTPStatusError{URL: "https://example.com/a.jpg", Code: 404}
	wrapped := Wrap(ErrHTTPStatus, "fetch page 2", err)

	assert.ErrorIs(t, wrapped, ErrHTTPStatus)

	var status *HTTPStatusError
	if assert.True(t, errors.As(wrapped, &status)) {
		assert.Equal(t, 404, status.Code)
	}
	assert.True(t, Retryable(wrapped))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrEncode, KindOf(Wrap(ErrEncode, "x", io.EOF)))
	assert.Nil(t, KindOf(io.EOF))
	assert.False(t, Retryable(Wrap(ErrDecode, "x", nil)))
}
