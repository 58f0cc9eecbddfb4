package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateTimeFormatter_Format(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 30, 5, 123_000_000, time.Local)

	tests := []struct {
		name    string
		pattern string
		want    any
	}{
		{"default pattern", "", "2024-03-09 14:30:05"},
		{"epoch millis", PatternEpochMillis, at.UnixMilli()},
		{"epoch seconds", PatternEpochSeconds, at.Unix()},
		{"milliseconds", "HH:mm:ss.SSS", "14:30:05.123"},
		{"iso local", "yyyy-MM-dd'T'HH:mm:ss.SSS", "2024-03-09T14:30:05.123"},
		{"compact digits", "yyyyMMddHHmmss", "20240309143005"},
		{"unpadded fields", "M/d/yy h:m:s", "3/9/24 2:30:5"},
		{"month names", "MMM MMMM", "Mar March"},
		{"weekday", "EEE EEEE", "Sat Saturday"},
		{"twelve hour clock", "hh:mm a", "02:30 PM"},
		{"escaped quote", "HH''mm", "14'30"},
		{"day of year", "yy/D", "24/69"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDateTimeFormatter(tt.pattern)
			assert.Equal(t, tt.want, f.Format(at))
		})
	}
}

func TestDateTimeFormatter_ZeroTime(t *testing.T) {
	for _, pattern := range []string{"", PatternEpochMillis, PatternEpochSeconds} {
		assert.Nil(t, NewDateTimeFormatter(pattern).Format(time.Time{}))
	}
}

func TestDateTimeFormatter_EpochSecondsTruncates(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_999)
	assert.Equal(t, int64(1_700_000_000), NewDateTimeFormatter(PatternEpochSeconds).Format(at))
}

func TestDateTimeFormatter_MidnightHours(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 5, 0, 0, time.Local)
	assert.Equal(t, "12 AM", NewDateTimeFormatter("hh a").Format(at))
}

func TestDateTimeFormatter_CachesLayout(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 30, 5, 0, time.Local)

	f := NewDateTimeFormatter("")
	assert.Equal(t, "2024-03-09 14:30:05", f.Format(at))
	assert.True(t, f.native)
	assert.Equal(t, "2006-01-02 15:04:05", f.layout)

	f = NewDateTimeFormatter("yyyy.D")
	assert.Equal(t, "2024.69", f.Format(at))
	assert.False(t, f.native)
}

func TestToLayout(t *testing.T) {
	tests := []struct {
		pattern string
		layout  string
		ok      bool
	}{
		{"yyyy-MM-dd HH:mm:ss", "2006-01-02 15:04:05", true},
		{"HH:mm:ss,SSS Z", "15:04:05,000 -0700", true},
		{"yyyy'年'MM'月'", "2006年01月", true},
		{"SSS", "", false},
		{"Ms", "", false},
		{"ss.SSSHH", "", false},
		{"H:mm", "", false},
		{"yyyy 'at' HH", "", false},
		{"yyyy'T", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			layout, ok := toLayout(tt.pattern)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.layout, layout)
		})
	}
}

func TestDateTimeFormatter_Pattern(t *testing.T) {
	assert.Equal(t, DefaultPattern, NewDateTimeFormatter("").Pattern())
	assert.Equal(t, "T", NewDateTimeFormatter("T").Pattern())
}
