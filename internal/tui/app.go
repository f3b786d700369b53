package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/hogwarts/internal/app"
	"github.com/naveenspark/hogwarts/internal/browser"
	"github.com/naveenspark/hogwarts/internal/cart"
	"github.com/naveenspark/hogwarts/internal/checkout"
	"github.com/naveenspark/hogwarts/internal/session"
	"github.com/naveenspark/hogwarts/pkg/client"
	"github.com/naveenspark/hogwarts/pkg/domain"
)

type view int

const (
	viewLogin view = iota
	viewCatalog
	viewCart
	viewOrders
	viewBookForm
)

// sessionEventMsg carries a session change into the update loop.
type sessionEventMsg session.Event

// sessionReadyMsg is sent once the persisted session has been checked.
type sessionReadyMsg struct{}

type loggedOutMsg struct{ err error }

// App is the root Bubbletea model.
type App struct {
	client   *client.Client
	session  *session.Manager
	cart     *cart.Cart
	checkout *checkout.Submitter
	webURL   string
	pageSize int
	version  string

	events      chan session.Event
	unsubscribe func()

	view       view
	booting    bool
	auth       authModel
	catalog    catalogModel
	cartView   cartModel
	orders     ordersModel
	form       bookFormModel
	helpOpen   bool
	helpCursor int
	user       *domain.User
	width      int
	height     int
	frame      int // logo shimmer animation frame
}

// NewApp creates the TUI over svc. Call Close when the program exits.
func NewApp(svc *app.Services, version string) App {
	// Events are dropped rather than blocking the publisher; the
	// latest state is always re-read from the manager.
	events := make(chan session.Event, 16)
	unsubscribe := svc.Session.Subscribe(func(ev session.Event) {
		select {
		case events <- ev:
		default:
		}
	})

	a := App{
		client:      svc.Client,
		session:     svc.Session,
		cart:        svc.Cart,
		checkout:    svc.Checkout,
		webURL:      svc.Config.WebURL,
		pageSize:    svc.Config.PageSize,
		version:     version,
		events:      events,
		unsubscribe: unsubscribe,
		booting:     true,
		view:        viewLogin,
		auth:        newAuthModel(svc.Session),
		cartView:    newCartModel(svc.Cart, svc.Checkout),
	}
	a.catalog = newCatalogModel(a.client, a.cart, a.checkout, a.webURL, a.pageSize)
	a.orders = newOrdersModel(a.client, a.webURL)
	return a
}

// Close stops listening for session events.
func (a App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(shimmerTickCmd(), a.startSession(), listenSession(a.events))
}

func (a App) startSession() tea.Cmd {
	sess := a.session
	return func() tea.Msg {
		sess.Initialize(context.Background())
		return sessionReadyMsg{}
	}
}

func listenSession(ch <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		return sessionEventMsg(<-ch)
	}
}

func (a App) logout() tea.Cmd {
	sess := a.session
	return func() tea.Msg {
		return loggedOutMsg{err: sess.Logout()}
	}
}

// enterStore shows the catalog after a sign-in.
func (a App) enterStore() (App, tea.Cmd) {
	a.user = a.session.User()
	a.view = viewCatalog
	a.catalog = newCatalogModel(a.client, a.cart, a.checkout, a.webURL, a.pageSize)
	a.catalog.canEdit = a.user.IsAdmin()
	a.catalog, _ = a.catalog.Update(a.bodySize())
	a.orders = newOrdersModel(a.client, a.webURL)
	a.orders, _ = a.orders.Update(a.bodySize())
	return a, a.catalog.Init()
}

// leaveStore returns to the sign-in form with status shown on it.
func (a App) leaveStore(status string, ok bool) App {
	a.user = nil
	a.view = viewLogin
	a.helpOpen = false
	a.auth = newAuthModel(a.session).withStatus(status, ok)
	return a
}

func (a App) bodySize() tea.WindowSizeMsg {
	// Chrome: header(2) + tabs(1) + help(1) = 4 lines
	return tea.WindowSizeMsg{Width: a.width, Height: a.height - 4}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		bodyMsg := a.bodySize()
		a.catalog, _ = a.catalog.Update(bodyMsg)
		a.cartView, _ = a.cartView.Update(bodyMsg)
		a.orders, _ = a.orders.Update(bodyMsg)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case sessionReadyMsg:
		a.booting = false
		if a.session.IsAuthenticated() {
			return a.enterStore()
		}
		return a, nil

	case sessionEventMsg:
		next := listenSession(a.events)
		ev := session.Event(msg)
		a.user = ev.State.User
		if a.booting || ev.State.Verifying {
			return a, next
		}
		switch {
		case ev.Forced:
			return a.leaveStore(msgUnauthorized, false), next
		case !ev.State.Authenticated() && a.view != viewLogin:
			return a.leaveStore("", false), next
		case ev.State.Authenticated() && a.view == viewLogin:
			var cmd tea.Cmd
			a, cmd = a.enterStore()
			return a, tea.Batch(cmd, next)
		}
		return a, next

	case loggedOutMsg:
		if msg.err != nil {
			return a.leaveStore(errText(msg.err), false), nil
		}
		return a.leaveStore(msgLoggedOut, true), nil

	case editBookMsg:
		a.form = newBookFormModel(a.client, a.catalog.genres, msg.book)
		a.view = viewBookForm
		return a, nil

	case bookSavedMsg:
		var cmd tea.Cmd
		a.form, cmd = a.form.Update(msg)
		if msg.err != nil {
			return a, cmd
		}
		status := msgBookUpdated
		if msg.created {
			status = msgBookAdded
		}
		a.view = viewCatalog
		a.catalog = a.catalog.setStatus(status, true)
		a.catalog, cmd = a.catalog.reload()
		return a, cmd

	// Results are routed to their owner whichever view is showing.
	case loginResultMsg, registerResultMsg:
		var cmd tea.Cmd
		a.auth, cmd = a.auth.Update(msg)
		return a, cmd

	case booksLoadedMsg, bookLoadedMsg, addToCartResultMsg, bookDeletedMsg:
		var cmd tea.Cmd
		a.catalog, cmd = a.catalog.Update(msg)
		return a, cmd

	case cartChangedMsg, checkoutResultMsg:
		var cmd tea.Cmd
		a.cartView, cmd = a.cartView.Update(msg)
		return a, cmd

	case ordersLoadedMsg, orderCancelledMsg, copyResultMsg:
		var cmd tea.Cmd
		a.orders, cmd = a.orders.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.booting {
			if msg.String() == "q" {
				return a, tea.Quit
			}
			return a, nil
		}
		if a.helpOpen {
			return a.updateHelp(msg)
		}
		if !a.isEditing() {
			if next, cmd, handled := a.updateGlobal(msg); handled {
				return next, cmd
			}
		} else if msg.String() == "esc" && a.view == viewBookForm {
			a.view = viewCatalog
			return a, nil
		}
		return a.updateView(msg)
	}
	return a, nil
}

func (a App) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "h", "esc":
		a.helpOpen = false
	case "q":
		return a, tea.Quit
	case "j", "down":
		if a.helpCursor < len(helpItems)-1 {
			a.helpCursor++
		}
	case "k", "up":
		if a.helpCursor > 0 {
			a.helpCursor--
		}
	case "enter":
		item := helpItems[a.helpCursor]
		browser.Open(strings.TrimRight(a.webURL, "/") + item.path) //nolint:errcheck // best-effort browser open
	}
	return a, nil
}

// updateGlobal handles tab switching and app-wide keys. handled is false when
// the key belongs to the current view.
func (a App) updateGlobal(msg tea.KeyMsg) (App, tea.Cmd, bool) {
	switch msg.String() {
	case "h":
		a.helpOpen = true
		a.helpCursor = 0
		return a, nil, true
	case "q":
		return a, tea.Quit, true
	case "L":
		return a, a.logout(), true
	case "1":
		if a.view != viewCatalog {
			a.view = viewCatalog
			var cmd tea.Cmd
			a.catalog, cmd = a.catalog.reload()
			return a, cmd, true
		}
		return a, nil, true
	case "2":
		a.view = viewCart
		return a, nil, true
	case "3":
		if a.view != viewOrders {
			a.view = viewOrders
			var cmd tea.Cmd
			a.orders, cmd = a.orders.reload()
			return a, cmd, true
		}
		return a, nil, true
	}
	return a, nil, false
}

func (a App) updateView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.view {
	case viewLogin:
		a.auth, cmd = a.auth.Update(msg)
	case viewCatalog:
		a.catalog, cmd = a.catalog.Update(msg)
	case viewCart:
		a.cartView, cmd = a.cartView.Update(msg)
	case viewOrders:
		a.orders, cmd = a.orders.Update(msg)
	case viewBookForm:
		a.form, cmd = a.form.Update(msg)
	}
	return a, cmd
}

func (a App) isEditing() bool {
	switch a.view {
	case viewLogin, viewBookForm:
		return true
	case viewCatalog:
		return a.catalog.editing
	case viewOrders:
		return a.orders.editing
	}
	return false
}

func (a App) View() string {
	// Header: centered shimmer logo
	logo := renderShimmerLogo(a.frame)
	logoPad := (a.width - lipgloss.Width(logo)) / 2
	if logoPad < 0 {
		logoPad = 0
	}
	header := strings.Repeat(" ", logoPad) + logo + "\n"

	if a.user != nil && a.view != viewLogin {
		t := a.cart.Totals()
		parts := []string{a.user.DisplayName()}
		if a.user.IsAdmin() {
			parts = append(parts, "admin")
		}
		parts = append(parts, fmt.Sprintf("%d in cart", t.Items))
		if t.Items > 0 {
			parts = append(parts, domain.FormatRupiah(t.Price))
		}
		statsLine := metaStyle.Render(strings.Join(parts, " · "))
		statsPad := (a.width - lipgloss.Width(statsLine)) / 2
		if statsPad < 0 {
			statsPad = 0
		}
		header += strings.Repeat(" ", statsPad) + statsLine
	}

	if a.booting {
		return header + "\n\n " + dimStyle.Render(msgLoading)
	}

	var tabBar string
	if a.view != viewLogin {
		tabBar = a.viewTabs()
	}

	var body, help string
	switch a.view {
	case viewLogin:
		body = a.auth.View()
		help = helpBar(helpEntry("tab", "next"), helpEntry("enter", "submit"), helpEntry("ctrl+t", "sign in/up"), helpEntry("ctrl+c", "quit"))
	case viewCatalog:
		body = a.catalog.View()
		help = a.catalog.helpKeys()
	case viewCart:
		body = a.cartView.View()
		help = a.cartView.helpKeys()
	case viewOrders:
		body = a.orders.View()
		help = a.orders.helpKeys()
	case viewBookForm:
		body = a.form.View()
		help = a.form.helpKeys()
	}
	if a.view != viewLogin && !a.isEditing() {
		help += "  " + helpEntry("L", "sign out")
	}

	if a.helpOpen {
		body = helpView(a.webURL, a.helpCursor)
		help = helpBar(helpEntry("j/k", "nav"), helpEntry("enter", "open"), helpEntry("esc", "close"), metaStyle.Render(a.version))
	}

	// Chrome budget: header(2) + tabs(1) + help(1) = 4 lines + body
	chrome := 4
	body = strings.TrimRight(truncateToHeight(body, a.height-chrome), "\n")

	return fmt.Sprintf("%s\n%s\n%s\n%s", header, tabBar, body, help)
}

func (a App) viewTabs() string {
	tabs := []struct {
		key  string
		name string
		v    view
	}{
		{"1", "Books", viewCatalog},
		{"2", "Cart", viewCart},
		{"3", "Orders", viewOrders},
	}

	colWidth := a.width / len(tabs)
	var tabBar strings.Builder
	for _, t := range tabs {
		active := t.v == a.view || (t.v == viewCatalog && a.view == viewBookForm)
		var label string
		if active {
			label = accentStyle.Render(t.key) + " " + selectedStyle.Underline(true).Render(t.name)
		} else {
			label = metaStyle.Render(t.key) + " " + dimStyle.Render(t.name)
		}
		if t.v == viewCart {
			if n := a.cart.Totals().Items; n > 0 {
				label += " " + goldStyle.Render(fmt.Sprintf("%d", n))
			}
		}
		labelWidth := lipgloss.Width(label)
		leftPad := (colWidth - labelWidth) / 2
		if leftPad < 0 {
			leftPad = 0
		}
		rightPad := colWidth - labelWidth - leftPad
		if rightPad < 0 {
			rightPad = 0
		}
		tabBar.WriteString(strings.Repeat(" ", leftPad) + label + strings.Repeat(" ", rightPad))
	}
	return tabBar.String()
}
