package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
)

// maxInputLen is the maximum number of runes allowed in form and search inputs.
const maxInputLen = 2000

// editInput applies a keystroke to an inline text input. Backspace removes
// one rune; typed and pasted runes are appended with control characters
// dropped. Other keys leave the text unchanged. Input is clamped to
// maxInputLen runes.
func editInput(text string, msg tea.KeyMsg) string {
	switch msg.Type {
	case tea.KeyBackspace:
		if text == "" {
			return text
		}
		runes := []rune(text)
		return string(runes[:len(runes)-1])
	case tea.KeySpace:
		return appendRunes(text, []rune{' '})
	case tea.KeyRunes:
		if msg.Alt {
			return text
		}
		return appendRunes(text, msg.Runes)
	}
	return text
}

func appendRunes(text string, add []rune) string {
	room := maxInputLen - utf8.RuneCountInString(text)
	var b strings.Builder
	b.WriteString(text)
	for _, r := range add {
		if room <= 0 {
			break
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		room--
	}
	return b.String()
}

// truncateToHeight limits output to maxLines newline-delimited lines.
// Returns the original string if it fits or maxLines is <= 0.
func truncateToHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
			if n >= maxLines {
				return s[:i+1]
			}
		}
	}
	return s
}

// renderField renders one labelled form input. Secret values are masked.
func renderField(label, value string, focused, secret bool, errMsg string) string {
	shown := value
	if secret {
		shown = strings.Repeat("•", utf8.RuneCountInString(value))
	}
	cursor := "  "
	style := metaStyle
	if focused {
		cursor = accentStyle.Render("▸") + " "
		style = selectedStyle
		shown += accentStyle.Render("█")
	}
	line := cursor + style.Render(padRight(label, 12)) + " " + normalStyle.Render(shown)
	if errMsg != "" {
		line += "  " + errorStyle.Render(errMsg)
	}
	return line
}

func padRight(s string, n int) string {
	if w := utf8.RuneCountInString(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}
