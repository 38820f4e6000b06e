package shellwords

import (
	"errors"
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", []string{}},
		{"single word", "serve", []string{"serve"}},
		{"plain words", "--port 0 --quiet", []string{"--port", "0", "--quiet"}},
		{"collapsed whitespace", "  a \t b  ", []string{"a", "b"}},
		{"double quotes", `--name "My App"`, []string{"--name", "My App"}},
		{"single quotes", `--name 'My App'`, []string{"--name", "My App"}},
		{"escaped space", `arg\ one`, []string{"arg one"}},
		{"quoted empty word", `-c ''`, []string{"-c", ""}},
		{"nested quotes", `-c "print('hi')"`, []string{"-c", "print('hi')"}},
		{"escape in double quotes", `"a\"b"`, []string{`a"b`}},
		{"literal backslash in double quotes", `"a\nb"`, []string{`a\nb`}},
		{"single quotes are literal", `'a\nb'`, []string{`a\nb`}},
		{"adjacent quoted parts", `ab"cd"ef`, []string{"abcdef"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.input)
			if err != nil {
				t.Fatalf("Split(%q): %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSplitErrors(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{`"unclosed`, ErrUnclosedQuote},
		{`'unclosed`, ErrUnclosedQuote},
		{`trailing\`, ErrTrailingEscape},
		{`"trailing\`, ErrTrailingEscape},
	}
	for _, tt := range tests {
		if _, err := Split(tt.input); !errors.Is(err, tt.want) {
			t.Errorf("Split(%q) error = %v, want %v", tt.input, err, tt.want)
		}
	}
}

func TestJoinRoundTrip(t *testing.T) {
	cases := [][]string{
		{"serve", "--port", "0"},
		{"-c", "print('hi')"},
		{"--name", "My App"},
		{"path", `with"both'quotes`},
		{""},
	}
	for _, words := range cases {
		joined := Join(words)
		got, err := Split(joined)
		if err != nil {
			t.Fatalf("Split(Join(%#v)) = %q: %v", words, joined, err)
		}
		if !reflect.DeepEqual(got, words) {
			t.Errorf("round trip %#v -> %q -> %#v", words, joined, got)
		}
	}
}
