// Package timeparse extracts appointment timestamps from free-form messages.
package timeparse

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidFormat indicates the text does not contain a recognizable
// date/time expression, or its components are out of range.
var ErrInvalidFormat = errors.New("invalid date/time format")

// pattern matches expressions like "25/07 a las 10:30am": day/month, an
// optional connector, a 12-hour clock time with optional minutes, and a
// meridiem marker.
var pattern = regexp.MustCompile(`(\d{1,2})/(\d{1,2})\s*(?:a\s*las\s*)?(\d{1,2})(?::(\d{2}))?\s*([ap]m)`)

// Parse extracts a timestamp from text. The year defaults to now's calendar
// year and the location to now's location.
func Parse(text string, now time.Time) (time.Time, error) {
	match := pattern.FindStringSubmatch(strings.ToLower(text))
	if match == nil {
		return time.Time{}, ErrInvalidFormat
	}

	day, _ := strconv.Atoi(match[1])
	month, _ := strconv.Atoi(match[2])
	hour, _ := strconv.Atoi(match[3])

	minute := 0
	if match[4] != "" {
		minute, _ = strconv.Atoi(match[4])
	}

	if month < 1 || month > 12 || day < 1 || day > 31 || hour < 1 || hour > 12 || minute > 59 {
		return time.Time{}, ErrInvalidFormat
	}

	switch match[5] {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}

	t := time.Date(now.Year(), time.Month(month), day, hour, minute, 0, 0, now.Location())

	// time.Date normalizes impossible dates such as 30/02; reject them.
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, ErrInvalidFormat
	}

	return t, nil
}
