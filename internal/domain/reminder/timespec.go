// internal/domain/reminder/timespec.go
package reminder

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
)

// DefaultTimezone is used when a time expression carries no zone.
const DefaultTimezone = "UTC"

var (
	ErrInvalidFormat   = errors.New("invalid time format")
	ErrUnknownTimezone = errors.New("unknown timezone")
)

// UnknownTimezoneError carries the zone string that failed to resolve.
type UnknownTimezoneError struct {
	Zone string
}

func (e *UnknownTimezoneError) Error() string {
	return fmt.Sprintf("unknown timezone: %s", e.Zone)
}

func (e *UnknownTimezoneError) Is(target error) bool {
	return target == ErrUnknownTimezone
}

// TimeOfDay is a wall clock time in a named IANA zone.
type TimeOfDay struct {
	Hour     int
	Minute   int
	Timezone string
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d %s", t.Hour, t.Minute, t.Timezone)
}

// Location resolves the zone. The zone is validated at parse time, so an error here
// means the tz database changed underneath a persisted record.
func (t TimeOfDay) Location() (*time.Location, error) {
	loc, _, err := loadZone(t.Timezone)
	return loc, err
}

var reClock = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})$`)

// ParseTimeSpec parses "9:00 PM", "9:00 PM America/St_Johns", "21:00" or "21:00 Europe/Berlin".
func ParseTimeSpec(input string) (TimeOfDay, error) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return TimeOfDay{}, ErrInvalidFormat
	}

	var (
		hour, minute int
		zoneParts    []string
		err          error
	)
	if len(parts) >= 2 && isMeridiem(parts[1]) {
		hour, minute, err = parse12h(parts[0], strings.ToUpper(parts[1]))
		zoneParts = parts[2:]
	} else {
		hour, minute, err = parse24h(parts[0])
		zoneParts = parts[1:]
	}
	if err != nil {
		return TimeOfDay{}, err
	}

	zone := DefaultTimezone
	if len(zoneParts) > 0 {
		_, canonical, err := loadZone(strings.Join(zoneParts, " "))
		if err != nil {
			return TimeOfDay{}, err
		}
		zone = canonical
	}

	return TimeOfDay{Hour: hour, Minute: minute, Timezone: zone}, nil
}

func isMeridiem(tok string) bool {
	switch strings.ToUpper(tok) {
	case "AM", "PM":
		return true
	}
	return false
}

func splitClock(s string) (int, int, bool) {
	m := reClock.FindStringSubmatch(s)
	if len(m) != 3 {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(m[1])
	mm, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil || mm > 59 {
		return 0, 0, false
	}
	return h, mm, true
}

func parse12h(clock, meridiem string) (int, int, error) {
	h, m, ok := splitClock(clock)
	if !ok || h < 1 || h > 12 {
		return 0, 0, ErrInvalidFormat
	}
	h %= 12
	if meridiem == "PM" {
		h += 12
	}
	return h, m, nil
}

func parse24h(clock string) (int, int, error) {
	h, m, ok := splitClock(clock)
	if !ok || h > 23 {
		return 0, 0, ErrInvalidFormat
	}
	return h, m, nil
}

// loadZone resolves zone case-insensitively and returns the location with its
// canonical IANA name, so "america/st_johns" becomes "America/St_Johns".
func loadZone(zone string) (*time.Location, string, error) {
	// LoadLocation maps "" to UTC and "Local" to the host zone; neither is a user zone.
	if zone == "" || strings.EqualFold(zone, "Local") {
		return nil, "", &UnknownTimezoneError{Zone: zone}
	}
	for _, candidate := range zoneCandidates(zone) {
		if loc, err := time.LoadLocation(candidate); err == nil {
			return loc, candidate, nil
		}
	}
	return nil, "", &UnknownTimezoneError{Zone: zone}
}

func zoneCandidates(zone string) []string {
	var candidates []string
	if name, ok := zoneIndex()[strings.ToLower(zone)]; ok {
		candidates = append(candidates, name)
	}
	return append(candidates, zone, strings.ToUpper(zone), titleZone(zone))
}

// titleZone upper-cases the first letter of every word: "america/st_johns" -> "America/St_Johns".
func titleZone(zone string) string {
	b := []rune(strings.ToLower(zone))
	start := true
	for i, r := range b {
		if start {
			b[i] = unicode.ToUpper(r)
		}
		start = r == '/' || r == '_' || r == '-'
	}
	return string(b)
}

var zoneDirs = []string{"/usr/share/zoneinfo", "/usr/share/lib/zoneinfo", "/usr/lib/locale/TZ"}

var zoneIndex = sync.OnceValue(func() map[string]string {
	dirs := zoneDirs
	if z := os.Getenv("ZONEINFO"); z != "" {
		dirs = append([]string{z}, dirs...)
	}
	index := make(map[string]string)
	for _, dir := range dirs {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			name, err := filepath.Rel(dir, path)
			if err != nil {
				return nil
			}
			name = filepath.ToSlash(name)
			if _, seen := index[strings.ToLower(name)]; !seen {
				index[strings.ToLower(name)] = name
			}
			return nil
		})
	}
	return index
})
