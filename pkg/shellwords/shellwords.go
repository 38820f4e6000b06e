// Package shellwords splits backend argument strings with POSIX word
// rules, so a manifest can say `args = "--port 0 --name 'My App'"` and the
// launcher passes the right argv without going through a real shell.
package shellwords

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	// ErrUnclosedQuote marks a quote opened but never closed.
	ErrUnclosedQuote = errors.New("unclosed quote in argument string")

	// ErrTrailingEscape marks a backslash at end of input.
	ErrTrailingEscape = errors.New("trailing escape at end of argument string")
)

type quoteState int

const (
	unquoted quoteState = iota
	inSingle
	inDouble
)

// Split parses input into words. Single quotes are literal, double quotes
// allow backslash escapes for `"`, `\`, `$` and backtick, and a bare
// backslash escapes any character. Quoted empty strings produce empty words.
func Split(input string) ([]string, error) {
	words := []string{}
	var word strings.Builder
	state := unquoted
	quoted := false // distinguishes "" from no word at all

	flush := func() {
		if word.Len() > 0 || quoted {
			words = append(words, word.String())
			word.Reset()
			quoted = false
		}
	}

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		switch state {
		case inSingle:
			if ch == '\'' {
				state = unquoted
				quoted = true
			} else {
				word.WriteRune(ch)
			}

		case inDouble:
			switch ch {
			case '"':
				state = unquoted
				quoted = true
			case '\\':
				if i+1 >= len(runes) {
					return nil, ErrTrailingEscape
				}
				i++
				next := runes[i]
				switch next {
				case '"', '\\', '$', '`':
					word.WriteRune(next)
				default:
					word.WriteRune('\\')
					word.WriteRune(next)
				}
			default:
				word.WriteRune(ch)
			}

		case unquoted:
			switch {
			case ch == '\'':
				state = inSingle
			case ch == '"':
				state = inDouble
			case ch == '\\':
				if i+1 >= len(runes) {
					return nil, ErrTrailingEscape
				}
				i++
				word.WriteRune(runes[i])
			case unicode.IsSpace(ch):
				flush()
			default:
				word.WriteRune(ch)
			}
		}
	}

	switch state {
	case inSingle:
		return nil, fmt.Errorf("%w: single quote", ErrUnclosedQuote)
	case inDouble:
		return nil, fmt.Errorf("%w: double quote", ErrUnclosedQuote)
	}
	flush()

	return words, nil
}

// Join renders words back into a single string that Split would parse to
// the same words. Used for display in inspect output.
func Join(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = quoteWord(w)
	}
	return strings.Join(quoted, " ")
}

func quoteWord(w string) string {
	if w == "" {
		return "''"
	}

	plain := true
	for _, ch := range w {
		if unicode.IsSpace(ch) || strings.ContainsRune(`'"\$`+"`", ch) {
			plain = false
			break
		}
	}
	if plain {
		return w
	}

	if !strings.Contains(w, "'") {
		return "'" + w + "'"
	}

	var b strings.Builder
	b.WriteByte('"')
	for _, ch := range w {
		if strings.ContainsRune("\"\\$`", ch) {
			b.WriteByte('\\')
		}
		b.WriteRune(ch)
	}
	b.WriteByte('"')
	return b.String()
}
