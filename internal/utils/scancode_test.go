package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeatScanCode(t *testing.T) {
	code := SeatScanCode("A", "A-01")
	assert.NotEmpty(t, code)
	assert.Equal(t, code, SeatScanCode("A", "A-01"))
	assert.NotEqual(t, code, SeatScanCode("B", "A-01"))
	assert.NotEqual(t, code, SeatScanCode("A", "A-02"))
}

func TestVerifySeatScanCode(t *testing.T) {
	code := SeatScanCode("A", "A-01")
	assert.True(t, VerifySeatScanCode(code, "A", "A-01"))
	assert.False(t, VerifySeatScanCode(code, "A", "A-02"))
	assert.False(t, VerifySeatScanCode("not-base64", "A", "A-01"))
	assert.False(t, VerifySeatScanCode("", "A", "A-01"))
}
