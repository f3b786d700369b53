package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestEditInputAddCharacters(t *testing.T) {
	tests := []struct {
		name  string
		start string
		msg   tea.KeyMsg
		want  string
	}{
		{"append to empty", "", runes("a"), "a"},
		{"append letter", "hel", runes("l"), "hell"},
		{"append digit", "abc", runes("1"), "abc1"},
		{"append space", "hello", tea.KeyMsg{Type: tea.KeySpace}, "hello "},
		{"append special", "abc", runes("@"), "abc@"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := editInput(tc.start, tc.msg)
			if got != tc.want {
				t.Errorf("editInput(%q, %q) = %q, want %q", tc.start, tc.msg, got, tc.want)
			}
		})
	}
}

func TestEditInputBackspace(t *testing.T) {
	tests := []struct {
		name  string
		start string
		want  string
	}{
		{"backspace on single char", "a", ""},
		{"backspace on longer string", "hello", "hell"},
		{"backspace on empty does nothing", "", ""},
		{"backspace removes a whole rune", "hellé", "hell"},
		{"backspace removes an emoji", "hello\U0001f600", "hello"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := editInput(tc.start, tea.KeyMsg{Type: tea.KeyBackspace})
			if got != tc.want {
				t.Errorf("editInput(%q, backspace) = %q, want %q", tc.start, got, tc.want)
			}
		})
	}
}

func TestEditInputIgnoresNamedKeys(t *testing.T) {
	keys := []tea.KeyType{
		tea.KeyEnter, tea.KeyEsc, tea.KeyUp, tea.KeyDown, tea.KeyLeft, tea.KeyRight,
		tea.KeyCtrlC, tea.KeyCtrlS, tea.KeyTab, tea.KeyShiftTab, tea.KeyF1,
		tea.KeyPgUp, tea.KeyPgDown, tea.KeyHome, tea.KeyEnd,
	}

	original := "hello"
	for _, k := range keys {
		msg := tea.KeyMsg{Type: k}
		t.Run(msg.String(), func(t *testing.T) {
			if got := editInput(original, msg); got != original {
				t.Errorf("editInput(%q, %q) = %q, want unchanged", original, msg, got)
			}
		})
	}
}

func TestEditInputIgnoresAltRunes(t *testing.T) {
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("b"), Alt: true}
	if got := editInput("hello", msg); got != "hello" {
		t.Errorf("editInput with alt = %q, want unchanged", got)
	}
}

func TestEditInputPaste(t *testing.T) {
	tests := []struct {
		name  string
		start string
		paste string
		want  string
	}{
		{"paste into empty", "", "hello world", "hello world"},
		{"paste appends", "hi ", "there", "hi there"},
		{"paste drops control characters", "", "harry\npotter\t", "harrypotter"},
		{"paste clamped at limit", strings.Repeat("a", maxInputLen-3), "abcdef", strings.Repeat("a", maxInputLen-3) + "abc"},
		{"paste rejected at limit", strings.Repeat("a", maxInputLen), "hello", strings.Repeat("a", maxInputLen)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tc.paste), Paste: true}
			if got := editInput(tc.start, msg); got != tc.want {
				t.Errorf("editInput(%q, paste %q) = %q, want %q", tc.start, tc.paste, got, tc.want)
			}
		})
	}
}

func TestEditInputMaxInputLen(t *testing.T) {
	atLimit := strings.Repeat("a", maxInputLen)
	belowLimit := strings.Repeat("a", maxInputLen-1)
	cjkAtLimit := strings.Repeat("你", maxInputLen)

	tests := []struct {
		name string
		text string
		msg  tea.KeyMsg
		want string
	}{
		{"at limit rejects new char", atLimit, runes("b"), atLimit},
		{"below limit accepts new char", belowLimit, runes("b"), belowLimit + "b"},
		{"at limit backspace still works", atLimit, tea.KeyMsg{Type: tea.KeyBackspace}, atLimit[:len(atLimit)-1]},
		{"CJK at limit rejects new rune", cjkAtLimit, runes("好"), cjkAtLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := editInput(tt.text, tt.msg)
			if got != tt.want {
				t.Errorf("editInput(...): len(got)=%d runes, len(want)=%d runes", len([]rune(got)), len([]rune(tt.want)))
			}
		})
	}
}

func TestTruncStr(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"under limit", "hello", 10, "hello"},
		{"at limit", "hello", 5, "hello"},
		{"over limit", "hello world", 5, "hell…"},
		{"empty string", "", 5, ""},
		{"single char over", "ab", 1, "…"},
		{"zero width", "abc", 0, ""},
		{"CJK chars", "你好世界", 3, "你好…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncStr(tt.s, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncStr(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateToHeightLimitsLines(t *testing.T) {
	input := "line1\nline2\nline3\nline4\nline5\n"
	result := truncateToHeight(input, 3)

	if lines := strings.Count(result, "\n"); lines > 3 {
		t.Errorf("truncateToHeight(5 lines, 3) produced %d newlines, want <= 3", lines)
	}
	if strings.Contains(result, "line4") {
		t.Errorf("truncateToHeight result should not contain line4: %q", result)
	}
}

func TestTruncateToHeightReturnsAllWhenUnbounded(t *testing.T) {
	input := "line1\nline2\n"
	for _, max := range []int{0, -1, 10} {
		if got := truncateToHeight(input, max); got != input {
			t.Errorf("truncateToHeight(%d) = %q, want input unchanged", max, got)
		}
	}
}

func TestRenderFieldMasksSecrets(t *testing.T) {
	line := renderField("password", "hunter2", false, true, "")
	if strings.Contains(line, "hunter2") {
		t.Errorf("secret value rendered in clear: %q", line)
	}
	if !strings.Contains(line, strings.Repeat("•", 7)) {
		t.Errorf("expected 7 mask runes in %q", line)
	}
}

func TestRenderFieldShowsError(t *testing.T) {
	line := renderField("email", "bad", true, false, "Please enter a valid email address")
	if !strings.Contains(line, "bad") || !strings.Contains(line, "Please enter a valid email address") {
		t.Errorf("renderField = %q", line)
	}
}

func TestGenreStyleIsStable(t *testing.T) {
	a := GenreStyle("Fantasy").Render("x")
	b := GenreStyle("Fantasy").Render("x")
	if a != b {
		t.Errorf("GenreStyle not stable: %q vs %q", a, b)
	}
	if !strings.Contains(GenreStyle("").Render("all"), "all") {
		t.Error("empty genre style did not render content")
	}
}

func TestHelpEntryFormat(t *testing.T) {
	tests := []struct {
		key   string
		label string
	}{
		{"q", "quit"},
		{"j/k", "nav"},
		{"ctrl+s", "save"},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			result := helpEntry(tc.key, tc.label)
			if !strings.Contains(result, tc.key) || !strings.Contains(result, tc.label) {
				t.Errorf("helpEntry(%q, %q) = %q", tc.key, tc.label, result)
			}
		})
	}
}
