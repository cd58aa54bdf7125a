package translate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("stepper closed", From("stepper closed"))
	assert.Equal("line 7 'nop'", From("line %d '%v'", 7, "nop"))

	var buf bytes.Buffer
	_, err := Printer().Fprintf(&buf, "%v/%v", "engine", "loop")
	assert.NoError(err)
	assert.Equal("engine/loop", buf.String())
}
