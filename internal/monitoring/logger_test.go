package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})
	Logf("hello %d", 1)
	assert.Equal(t, []string{"hello 1"}, got)

	SetLogger(nil)
	Logf("dropped")
	assert.Len(t, got, 1, "nil logger must be a no-op")
}

func TestDebugf(t *testing.T) {
	original := Logf
	defer func() {
		Logf = original
		SetDebug(false)
	}()

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})

	SetDebug(false)
	Debugf("quiet")
	assert.Empty(t, got)
	assert.False(t, DebugEnabled())

	SetDebug(true)
	Debugf("loud %s", "now")
	assert.Equal(t, []string{"loud now"}, got)
	assert.True(t, DebugEnabled())
}
