package model

import "time"

// Named daily booking slots.  The slot is the booking granularity: a
// reservation always covers exactly one slot of one day.
const (
	SlotMorning   = "morning"
	SlotAfternoon = "afternoon"
	SlotEvening   = "evening"
)

// slotHours maps each slot to its [start, end) hours of day.
var slotHours = map[string][2]int{
	SlotMorning:   {8, 12},
	SlotAfternoon: {13, 17},
	SlotEvening:   {18, 22},
}

// SlotSequence is the fixed daily order of slots.  The cascade rule in the
// expiration sweep walks this sequence, never recursion.
var SlotSequence = []string{SlotMorning, SlotAfternoon, SlotEvening}

// ValidSlot reports whether name is a known slot.
func ValidSlot(name string) bool {
	_, ok := slotHours[name]
	return ok
}

// SlotWindow returns the absolute start and end of the named slot on the
// calendar day of ref, in ref's location.  The second return is false for
// an unknown slot.
func SlotWindow(ref time.Time, slot string) (time.Time, time.Time, bool) {
	h, ok := slotHours[slot]
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	y, m, d := ref.Date()
	start := time.Date(y, m, d, h[0], 0, 0, 0, ref.Location())
	end := time.Date(y, m, d, h[1], 0, 0, 0, ref.Location())
	return start, end, true
}

// NextSlot returns the slot following s in the daily sequence.  The second
// return is false when s is the last slot of the day or unknown.
func NextSlot(s string) (string, bool) {
	for i, name := range SlotSequence {
		if name == s && i+1 < len(SlotSequence) {
			return SlotSequence[i+1], true
		}
	}
	return "", false
}

// SlotForTime returns the slot whose window contains t, if any.
func SlotForTime(t time.Time) (string, bool) {
	for _, s := range SlotSequence {
		start, end, _ := SlotWindow(t, s)
		if !t.Before(start) && t.Before(end) {
			return s, true
		}
	}
	return "", false
}

// NormalizeSlots validates and deduplicates the requested slot names and
// returns them in daily order.  It returns false when any name is unknown
// or the input is empty.
func NormalizeSlots(slots []string) ([]string, bool) {
	if len(slots) == 0 {
		return nil, false
	}
	want := make(map[string]bool, len(slots))
	for _, s := range slots {
		if !ValidSlot(s) {
			return nil, false
		}
		want[s] = true
	}
	out := make([]string, 0, len(want))
	for _, s := range SlotSequence {
		if want[s] {
			out = append(out, s)
		}
	}
	return out, true
}
