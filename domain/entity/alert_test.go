package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseAlertType(t *testing.T) {
	tests := []struct {
		in   string
		want AlertType
	}{
		{"Down", AlertTypeDown},
		{"Up", AlertTypeUp},
		// 比較は大文字小文字を区別する
		{"down", AlertTypeOther},
		{"UP", AlertTypeOther},
		{"Started", AlertTypeOther},
		{"", AlertTypeOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseAlertType(tt.in), tt.in)
	}
}

func TestParseAlertTime(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return fixed }

	got := ParseAlertTime("1700000000", now)
	assert.Equal(t, time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC), got)

	assert.Equal(t, fixed, ParseAlertTime("", now))
	assert.Equal(t, fixed, ParseAlertTime("notanumber", now))
}
