package slotindex

import "fmt"

// The bookable day is a fixed grid of half-hour labels from 10:00 to
// 17:30 inclusive. Labels are the canonical wire representation of a
// slot time ("10:00", "10:30", ..., "17:30").
const (
	FirstSlotHour = 10
	LastSlotHour  = 17
	SlotsPerHour  = 2
)

var (
	labels    []string
	labelSet  map[string]struct{}
	SlotCount = (LastSlotHour - FirstSlotHour + 1) * SlotsPerHour
)

func init() {
	labels = make([]string, 0, SlotCount)
	labelSet = make(map[string]struct{}, SlotCount)

	for hour := FirstSlotHour; hour <= LastSlotHour; hour++ {
		for _, minute := range []int{0, 30} {
			label := fmt.Sprintf("%02d:%02d", hour, minute)
			labels = append(labels, label)
			labelSet[label] = struct{}{}
		}
	}
}

// Labels returns the full ordered label grid for one day.
// The returned slice is a copy and safe to mutate.
func Labels() []string {
	out := make([]string, len(labels))
	copy(out, labels)
	return out
}

// ValidLabel reports whether s is one of the bookable half-hour labels.
func ValidLabel(s string) bool {
	_, ok := labelSet[s]
	return ok
}
