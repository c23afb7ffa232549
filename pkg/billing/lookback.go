package billing

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/common/model"
)

const day = 24 * time.Hour

// ParseLookbackDays accepts either a bare number of days or a duration such
// as "30d", "2w" or "36h". Partial days round up.
func ParseLookbackDays(s string) (int, error) {
	if s == "" {
		return DefaultLookbackDays, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("lookback must be positive, got %d", n)
		}
		return n, nil
	}
	d, err := model.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid lookback %q: %v", s, err)
	}
	dur := time.Duration(d)
	if dur <= 0 {
		return 0, fmt.Errorf("lookback must be positive, got %s", s)
	}
	days := int(dur / day)
	if dur%day != 0 {
		days++
	}
	return days, nil
}
