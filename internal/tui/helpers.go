package tui

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/naveenspark/hogwarts/internal/validate"
	"github.com/naveenspark/hogwarts/pkg/client"
)

// formatTime renders a relative timestamp, falling back to a date after a week.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2 Jan 2006")
	}
}

// truncStr truncates a string to maxLen runes, appending an ellipsis if needed.
func truncStr(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}

// errText turns an error into the line shown to the user.
func errText(err error) string {
	var verr *validate.Errors
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr) && len(verr.Fields) > 0:
		return verr.Fields[0].Message
	}
	return client.Message(err)
}

// User-facing messages.
const (
	msgUnauthorized   = "Unauthorized. Please log in."
	msgRegistered     = "Registration successful! Please log in."
	msgOrderPlaced    = "Order placed successfully!"
	msgCartEmpty      = "Your cart is empty."
	msgLoading        = "Loading..."
	msgProcessing     = "Processing..."
	msgNoItems        = "No items found."
	msgLoggedOut      = "You have been logged out."
	msgBookAdded      = "Book added successfully!"
	msgBookUpdated    = "Book updated successfully!"
	msgBookDeleted    = "Book deleted successfully!"
	msgOrderCancelled = "Order cancelled."
	msgOrderInFlight  = "An order is being placed. Try again in a moment."
)
