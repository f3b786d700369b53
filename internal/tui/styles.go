package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Shimmer animation for the HOGWARTS logo.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// renderShimmerLogo renders "HOGWARTS" as a slow candlelight wave.
// Dark bronze (#4a3510) -> bright gold (#f5c542).
func renderShimmerLogo(frame int) string {
	const text = "HOGWARTS"
	n := len(text)

	var out string
	t := float64(frame)

	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)

		phase := t*0.08 - x*2.5
		phase += math.Sin(t*0.02) * 1.5

		b := math.Sin(phase)*0.5 + 0.5
		b = math.Pow(b, 1.4)

		// Flicker
		b = b*0.8 + math.Sin(t*0.05)*0.08 + 0.15

		if b > 1.0 {
			b = 1.0
		} else if b < 0.05 {
			b = 0.05
		}

		r := clampByte(74 + b*(245-74))
		g := clampByte(53 + b*(197-53))
		bl := clampByte(16 + b*(66-16))

		color := fmt.Sprintf("#%02X%02X%02X", r, g, bl)

		s := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(color))
		out += s.Render(string(text[i]))

		if i < n-1 {
			out += "  "
		}
	}

	return out
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	// Parchment neutrals
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9a9080"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f1e9d8")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d0c8b8"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5e5648"))

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9a9080"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5e5648"))

	searchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d3a625")).
			Bold(true)

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d3a625"))

	goldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#eeba30"))

	priceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#eeba30")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5fb878"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d64545"))

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#7a705e"))

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#d3a625")).
				Bold(true)

	inputPlaceholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#4a4336"))

	selectedRowBg = lipgloss.NewStyle().Background(lipgloss.Color("#2a2218"))

	// House colors, used to tint genres.
	houseColors = []lipgloss.Color{
		lipgloss.Color("#ae0001"), // gryffindor
		lipgloss.Color("#2a623d"), // slytherin
		lipgloss.Color("#222f5b"), // ravenclaw
		lipgloss.Color("#ecb939"), // hufflepuff
	}
)

// GenreStyle returns a bold style tinted for a genre name. The same name
// always gets the same color.
func GenreStyle(name string) lipgloss.Style {
	if name == "" {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#7a705e")).Bold(true)
	}
	h := 0
	for _, r := range name {
		h = h*31 + int(r)
	}
	if h < 0 {
		h = -h
	}
	return lipgloss.NewStyle().Foreground(houseColors[h%len(houseColors)]).Bold(true)
}

// stockStyle colors a stock count: red when sold out, gold when low.
func stockStyle(stock int) lipgloss.Style {
	switch {
	case stock <= 0:
		return errorStyle
	case stock <= 3:
		return goldStyle
	default:
		return dimStyle
	}
}

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

// helpBar joins help entries with the standard gap.
func helpBar(entries ...string) string {
	return " " + strings.Join(entries, "  ")
}

// helpItem is a selectable link in the help overlay.
type helpItem struct {
	label string
	path  string
}

var helpItems = []helpItem{
	{"Storefront", "/"},
	{"Books", "/books"},
	{"Orders", "/transactions"},
	{"Checkout", "/checkout"},
}

// helpView renders the help overlay. Links open under webURL.
func helpView(webURL string, cursor int) string {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#d3a625")).
		Bold(true).
		Render("H O G W A R T S   L I B R A R Y")

	quote := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Italic(true).
		Render(`"Help will always be given at Hogwarts to those who ask for it."`)

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sectionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	cursorStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#d3a625"))

	keys := []struct{ key, desc string }{
		{"1 2 3", "Books, Cart, Orders"},
		{"/", "Search"},
		{"s  g", "Sort, genre filter"},
		{"a", "Add book to cart"},
		{"o", "Open book in browser"},
		{"n", "New book"},
		{"L", "Sign out"},
		{"q", "Quit"},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s\n\n  %s\n\n", title, quote)

	fmt.Fprintf(&b, "  %s\n", sectionStyle.Render("Keys"))
	for _, k := range keys {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-8s", k.key)), descStyle.Render(k.desc))
	}

	fmt.Fprintf(&b, "\n  %s\n", sectionStyle.Render("Links (enter to open)"))
	for i, item := range helpItems {
		label := cmdStyle.Render(fmt.Sprintf("%-12s", item.label))
		prefix := "    "
		if i == cursor {
			label = cursorStyle.Render(fmt.Sprintf("%-12s", item.label))
			prefix = "  > "
		}
		fmt.Fprintf(&b, "%s%s  %s\n", prefix, label, descStyle.Render(webURL+item.path))
	}
	return b.String()
}
