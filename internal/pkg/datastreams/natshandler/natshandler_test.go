package natshandler

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestStatusSubject(t *testing.T) {
	assert.Equal(t, StatusSubject(123456), "deye.123456.status")
	assert.Equal(t, StatusSubject(0), "deye.0.status")
}
