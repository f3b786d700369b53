package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// Open opens the specified URL in the user's default browser.
func Open(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "linux":
		return exec.Command("xdg-open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
}

// BookURL returns the storefront page of a book.
func BookURL(webURL, bookID string) string {
	return strings.TrimRight(webURL, "/") + "/books/" + url.PathEscape(bookID)
}

// OrderURL returns the storefront page of a placed order.
func OrderURL(webURL, orderID string) string {
	return strings.TrimRight(webURL, "/") + "/transactions/" + url.PathEscape(orderID)
}
