package utils

import (
	"fmt"
	"strings"
	"time"
)

// Reservation dates and times are stored as the client sent them, e.g.
// date "2024-01-01" with arrival "7:00 PM". These layouts cover the forms
// the frontend produces.
var reservationLayouts = []string{
	"2006-01-02 3:04 PM",
	"2006-01-02 15:04",
	"2006-01-02 3 PM",
}

// ParseReservationTime combines a stored date string and time-of-day string
// into a concrete timestamp.
func ParseReservationTime(date, clock string) (time.Time, error) {
	combined := strings.TrimSpace(date) + " " + strings.TrimSpace(clock)
	for _, layout := range reservationLayouts {
		if t, err := time.ParseInLocation(layout, combined, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized reservation time %q", combined)
}
