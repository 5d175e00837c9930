package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotWindow(t *testing.T) {
	ref := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

	start, end, ok := SlotWindow(ref, SlotMorning)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), end)

	start, end, ok = SlotWindow(ref, SlotEvening)
	require.True(t, ok)
	assert.Equal(t, 18, start.Hour())
	assert.Equal(t, 22, end.Hour())

	_, _, ok = SlotWindow(ref, "midnight")
	assert.False(t, ok)
}

func TestSlotWindowKeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	ref := time.Date(2025, 3, 10, 9, 0, 0, 0, loc)
	start, _, ok := SlotWindow(ref, SlotMorning)
	require.True(t, ok)
	assert.Equal(t, loc, start.Location())
}

func TestNextSlot(t *testing.T) {
	next, ok := NextSlot(SlotMorning)
	require.True(t, ok)
	assert.Equal(t, SlotAfternoon, next)

	next, ok = NextSlot(SlotAfternoon)
	require.True(t, ok)
	assert.Equal(t, SlotEvening, next)

	_, ok = NextSlot(SlotEvening)
	assert.False(t, ok)

	_, ok = NextSlot("midnight")
	assert.False(t, ok)
}

func TestSlotForTime(t *testing.T) {
	slot, ok := SlotForTime(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, SlotMorning, slot)

	slot, ok = SlotForTime(time.Date(2025, 3, 10, 16, 59, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, SlotAfternoon, slot)

	// Slot ends are exclusive; 12:00-13:00 is a gap.
	_, ok = SlotForTime(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	assert.False(t, ok)

	_, ok = SlotForTime(time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestNormalizeSlots(t *testing.T) {
	out, ok := NormalizeSlots([]string{"evening", "morning", "morning"})
	require.True(t, ok)
	assert.Equal(t, []string{SlotMorning, SlotEvening}, out)

	_, ok = NormalizeSlots([]string{"morning", "midnight"})
	assert.False(t, ok)

	_, ok = NormalizeSlots(nil)
	assert.False(t, ok)
}
