package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrip(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"no tags":        {"Zakat adalah rukun Islam.", "Zakat adalah rukun Islam."},
		"single span":    {"<think>hmm</think>Jawaban", "Jawaban"},
		"multi line":     {"A<think>line one\nline two</think>B", "AB"},
		"two spans":      {"<think>x</think>A<think>y</think>B", "AB"},
		"unclosed kept":  {"A<think>still thinking", "A<think>still thinking"},
		"nested rejoins": {"<thi<think>x</think>nk>y</think>Z", "Z"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, Strip(tc.in))
		})
	}
}

func TestStrip_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"<think>a</think>b",
		"<thi<think>x</think>nk>y</think>Z",
		"a</think>b<think>c",
		"<think></think><think>\n</think>end",
	}
	for _, in := range inputs {
		once := Strip(in)
		assert.Equal(t, once, Strip(once), "input %q", in)
	}
}

func TestStripPartial(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"open span hidden":      {"Jawab<think>sedang berpikir", "Jawab"},
		"tag prefix held back":  {"Jawab <thi", "Jawab "},
		"lone angle held back":  {"a <", "a "},
		"closed span removed":   {"<think>x</think>Halo", "Halo"},
		"unrelated angle kept":  {"a < b", "a < b"},
		"complete text passes":  {"Zakat adalah...", "Zakat adalah..."},
		"stacked prefixes gone": {"a<<", "a"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripPartial(tc.in))
		})
	}
}
