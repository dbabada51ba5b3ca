package schedule

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ParseWeekdays decodes the stored weekday list, a JSON array such as "[1,3]".
// Anything that is not a JSON array yields nil; non-integer elements are dropped.
func ParseWeekdays(raw string) []int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var values []any
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	var weekdays []int
	for _, v := range values {
		n, ok := v.(float64)
		if !ok || n != math.Trunc(n) {
			continue
		}
		weekdays = append(weekdays, int(n))
	}
	return weekdays
}

// FormatWeekdays encodes weekdays in the stored JSON form, sorted and deduplicated.
func FormatWeekdays(weekdays []int) string {
	seen := make(map[int]bool, len(weekdays))
	uniq := make([]int, 0, len(weekdays))
	for _, wd := range weekdays {
		if seen[wd] {
			continue
		}
		seen[wd] = true
		uniq = append(uniq, wd)
	}
	sort.Ints(uniq)

	parts := make([]string, len(uniq))
	for i, wd := range uniq {
		parts[i] = strconv.Itoa(wd)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
