package logic

import (
	"fmt"
	"math"
	"strings"
)

// HumanTime renders a duration in minutes as "02hrs 05mins". Seconds are
// shown only in the last minute: "00mins 42secs".
func HumanTime(minutes float64) string {
	if minutes < 0 {
		minutes = 0
	}
	whole := math.Floor(minutes)
	hours := int(whole) / 60
	mins := int(whole) % 60
	secs := int(math.Floor((minutes - whole) * 60))

	var parts []string
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%02dhrs", hours))
	}
	parts = append(parts, fmt.Sprintf("%02dmins", mins))
	if hours == 0 && mins < 1 {
		parts = append(parts, fmt.Sprintf("%02dsecs", secs))
	}
	return strings.Join(parts, " ")
}
