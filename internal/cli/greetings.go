package cli

import (
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/charmbracelet/lipgloss"
)

var libraryGreetings = [...]string{
	"The shelves noticed you lingering. They are not impressed.",
	"Madam Pince is watching. Sign in before she notices the crumbs.",
	"Forty thousand volumes and not one of them checked out to you.",
	"The Restricted Section is restricted. The rest of it is just waiting for you.",
	"A book on the third floor has been humming your name. Probably nothing.",
	"Your library card is blank. The ink is getting impatient.",
	"Somebody just borrowed the last copy of Hogwarts: A History. Again.",
	"The catalog moved its stairs twice while you stood here.",
	"The owls have stopped delivering to this doorstep. Come inside.",
	"Quills are sharpened. Candles are lit. You are still in the corridor.",
	"Every reader starts at the door. Most of them walk through it.",
	"The Monster Book of Monsters is asleep. Best to come in quietly.",
	"Ten points from your house for loitering in the entrance hall.",
	"Your cart is empty and so is your chair by the fire.",
	"The library does not beg. It does, occasionally, sigh.",
}

func printGreeting(w io.Writer) {
	msg := libraryGreetings[rand.IntN(len(libraryGreetings))]

	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#D4A017")).
		Bold(true).
		Render("HOGWARTS LIBRARY")

	quote := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Italic(true).
		Render(msg)

	attrib := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7c3aed")).
		Render("- the Librarian")

	hint := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Render("To enter: hogwarts login   New here? hogwarts register")

	fmt.Fprintf(w, "\n%s\n\n%s\n%s\n\n%s\n\n", title, quote, attrib, hint) //nolint:errcheck // terminal output
}
