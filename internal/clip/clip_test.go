package clip

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	text string
	err  error
}

func (r *recorder) WriteAll(text string) error {
	if r.err != nil {
		return r.err
	}
	r.text = text
	return nil
}

func TestCopy(t *testing.T) {
	rec := &recorder{}
	res := Copy(rec, "a\nb")
	assert.True(t, res.Copied)
	assert.NoError(t, res.Err)
	assert.Equal(t, "a\nb", rec.text)
}

func TestCopyFailureIsReported(t *testing.T) {
	denied := errors.New("permission denied")
	res := Copy(&recorder{err: denied}, "x")
	assert.False(t, res.Copied)
	assert.ErrorIs(t, res.Err, denied)
}

func TestCopyNil(t *testing.T) {
	res := Copy(nil, "x")
	assert.False(t, res.Copied)
	assert.ErrorIs(t, res.Err, ErrDisabled)
}

func TestNew(t *testing.T) {
	assert.IsType(t, Disabled{}, New(false))
	assert.IsType(t, System{}, New(true))

	res := Copy(New(false), "x")
	assert.ErrorIs(t, res.Err, ErrDisabled)
}
