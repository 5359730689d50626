package service

import (
	"fmt"
	"regexp"
	"strconv"
)

var slotLabelPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// GenerateSlots returns the HH:MM labels from startHour:00 up to, but excluding,
// endHour:00 in steps of intervalMinutes. Out-of-range input yields no slots.
func GenerateSlots(startHour, endHour, intervalMinutes int) []string {
	if startHour < 0 || endHour > 24 || startHour >= endHour {
		return []string{}
	}
	if intervalMinutes <= 0 || intervalMinutes > 60 {
		return []string{}
	}
	end := endHour * 60
	slots := make([]string, 0, (end-startHour*60)/intervalMinutes)
	for m := startHour * 60; m < end; m += intervalMinutes {
		slots = append(slots, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return slots
}

// IsSlotLabel reports whether s is a 24-hour HH:MM label.
func IsSlotLabel(s string) bool {
	return slotLabelPattern.MatchString(s)
}

// HourLabel renders a whole hour as HH:00.
func HourLabel(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// ParseHour extracts the hour of an HH:MM label. 24:00 is accepted as the end of day.
func ParseHour(label string) (int, error) {
	if label == "24:00" {
		return 24, nil
	}
	if !IsSlotLabel(label) {
		return 0, fmt.Errorf("invalid time label %q", label)
	}
	return strconv.Atoi(label[:2])
}
