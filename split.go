package tghtml

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxMessageLength is Telegram's limit for one text message, in UTF-16 code units.
const MaxMessageLength = 4096

// ErrInvalidMaxLength is returned by SmartSplit for a non-positive max length.
var ErrInvalidMaxLength = errors.New("tghtml: max length must be positive")

// splitDelimiters 按优先级排列：段落 > 换行 > 句子 > 空格
var splitDelimiters = []string{"\n\n", "\n", ". ", " "}

// 分隔符必须落在窗口的后 70% 内才被采用，否则硬切
const boundaryRatio = 0.3

// UTF16Len returns the length of text measured in UTF-16 code units.
//
// Telegram measures message length in UTF-16 code units, not Go string bytes
// or runes. Characters outside the BMP (codepoint > 0xFFFF) take 2 UTF-16
// code units (a surrogate pair); all others take 1.
func UTF16Len(text string) int {
	count := 0
	for _, r := range text {
		if r > 0xFFFF {
			count += 2
		} else {
			count++
		}
	}
	return count
}

// utf16Prefix returns the byte length of the longest prefix of text that
// fits in limit UTF-16 code units. It never cuts a rune in half.
func utf16Prefix(text string, limit int) int {
	units := 0
	for i, r := range text {
		w := 1
		if r > 0xFFFF {
			w = 2
		}
		if units+w > limit {
			return i
		}
		units += w
	}
	return len(text)
}

// SmartSplit splits text into chunks of at most maxLength UTF-16 code units.
//
// Each window of maxLength units is cut right after the last "\n\n", "\n",
// ". " or " " (tried in that order) whose position lies beyond 30% of the
// window; without one the window is cut hard. Whitespace is trimmed on both
// sides of every cut, nothing else is dropped or reordered.
//
// The only chunk that can exceed maxLength is a single supplementary-plane
// rune when maxLength is 1, since a rune is never split.
func SmartSplit(text string, maxLength int) ([]string, error) {
	if maxLength <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxLength, maxLength)
	}
	if UTF16Len(text) <= maxLength {
		return []string{text}, nil
	}

	threshold := float64(maxLength) * boundaryRatio
	var chunks []string
	remaining := text

	for remaining != "" {
		if UTF16Len(remaining) <= maxLength {
			chunks = append(chunks, remaining)
			break
		}

		end := utf16Prefix(remaining, maxLength)
		if end == 0 {
			// Force progress
			_, end = utf8.DecodeRuneInString(remaining)
		}
		window := remaining[:end]

		splitAt := -1
		for _, delim := range splitDelimiters {
			idx := strings.LastIndex(window, delim)
			if idx >= 0 && float64(UTF16Len(window[:idx])) > threshold {
				splitAt = idx + len(delim)
				break
			}
		}
		if splitAt == -1 {
			splitAt = end
		}

		chunks = append(chunks, strings.TrimRightFunc(remaining[:splitAt], unicode.IsSpace))
		remaining = strings.TrimLeftFunc(remaining[splitAt:], unicode.IsSpace)
	}

	return chunks, nil
}
