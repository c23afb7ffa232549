package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLookbackDays(t *testing.T) {
	tests := map[string]struct {
		in       string
		expected int
		errMsg   string
	}{
		"empty uses the default": {in: "", expected: 30},
		"bare days":              {in: "7", expected: 7},
		"days":                   {in: "30d", expected: 30},
		"weeks":                  {in: "2w", expected: 14},
		"partial days round up":  {in: "36h", expected: 2},
		"zero":                   {in: "0", errMsg: "lookback must be positive, got 0"},
		"garbage":                {in: "soon", errMsg: `invalid lookback "soon": not a valid duration string: "soon"`},
	}
	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			days, err := ParseLookbackDays(tt.in)
			if tt.errMsg != "" {
				assert.EqualError(t, err, tt.errMsg)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, days)
		})
	}
}
