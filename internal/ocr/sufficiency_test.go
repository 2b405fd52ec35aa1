package ocr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSufficient(t *testing.T) {
	long := strings.Repeat("mammogram ", 15)

	cases := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", false},
		{"whitespace only", "   \n\t  ", false},
		{"short header", "Patient: Jane Doe  Page 1 of 2", false},
		{"many short tokens", strings.Repeat("a b ", 60), false},
		{"real report", long, true},
		{"padding does not count", "  \n" + strings.Repeat("x", 99) + "\n  ", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsSufficient(tc.text))
		})
	}
}

func TestIsSufficient_CountsRunes(t *testing.T) {
	// 10 words of 10 runes each, multi-byte: 109 runes but far more bytes
	text := strings.TrimSpace(strings.Repeat("éééééééééé ", 10))
	assert.True(t, IsSufficient(text))

	text = strings.TrimSpace(strings.Repeat("ééééé ", 16)) // 95 runes
	assert.False(t, IsSufficient(text))
}

func TestNormalize(t *testing.T) {
	in := "BI-RADS 4\r\n\tDate: 01/02/2024   \n\n\n\n-----\nImpression:  suspicious\f"
	got := Normalize(in)
	assert.Equal(t, "BI-RADS 4\n Date: 01/02/2024\n\nImpression: suspicious", got)
	assert.Contains(t, got, "01/02/2024", "digits must never be rewritten")
}
