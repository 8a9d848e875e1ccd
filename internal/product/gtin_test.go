package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeGTIN(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"2", "0000000000002", true},
		{"0300743288131", "0300743288131", true},
		{"300743288131", "0300743288131", true},
		{"12-34_234 9_9 ", "0000123423499", true},
		{"123423499", "0000123423499", true},
		{"  7894900011517  ", "7894900011517", true},
		{"12345678901234", "12345678901234", true},
		{"", "", false},
		{"   ", "", false},
		{" - _ ", "", false},
		{"abc", "", false},
		{"12a34", "", false},
		{"1.5", "", false},
		{"+5", "0000000000005", true},
		{"+", "", false},
		{"++5", "", false},
		{"-5", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := NormalizeGTIN(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeGTINIdempotent(t *testing.T) {
	inputs := []string{"2", "300743288131", "12-34_234 9_9 ", "0049000006131", "99999999999999"}
	for _, raw := range inputs {
		once, ok := NormalizeGTIN(raw)
		if !assert.True(t, ok, raw) {
			continue
		}
		twice, ok := NormalizeGTIN(once)
		assert.True(t, ok)
		assert.Equal(t, once, twice)
	}
}
