package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/hogwarts/internal/cart"
	"github.com/naveenspark/hogwarts/internal/checkout"
	"github.com/naveenspark/hogwarts/pkg/domain"
)

// cartModel renders the cart straight from the engine; it holds no copy of
// the lines, only the cursor.
type cartModel struct {
	cart       *cart.Cart
	checkout   *checkout.Submitter
	cursor     int
	submitting bool
	statusMsg  string
	statusOK   bool
	width      int
	height     int
}

type cartChangedMsg struct{ err error }

type checkoutResultMsg struct {
	tx  *domain.Transaction
	err error
}

func newCartModel(crt *cart.Cart, sub *checkout.Submitter) cartModel {
	return cartModel{cart: crt, checkout: sub}
}

func (m cartModel) Init() tea.Cmd {
	return nil
}

func (m cartModel) setQuantity(id string, qty int) tea.Cmd {
	crt := m.cart
	return func() tea.Msg {
		return cartChangedMsg{err: crt.SetQuantity(context.Background(), id, qty)}
	}
}

func (m cartModel) submit() tea.Cmd {
	sub := m.checkout
	return func() tea.Msg {
		tx, err := sub.Submit(context.Background())
		return checkoutResultMsg{tx: tx, err: err}
	}
}

func (m cartModel) Update(msg tea.Msg) (cartModel, tea.Cmd) {
	switch msg := msg.(type) {
	case cartChangedMsg:
		if msg.err != nil {
			m.statusMsg = errText(msg.err)
			m.statusOK = false
		}
		if n := m.cart.Len(); m.cursor >= n && n > 0 {
			m.cursor = n - 1
		}
		return m, nil

	case checkoutResultMsg:
		m.submitting = false
		switch {
		case errors.Is(msg.err, checkout.ErrEmptyCart):
			m.statusMsg = msgCartEmpty
			m.statusOK = false
		case errors.Is(msg.err, checkout.ErrAlreadySubmitting):
			m.statusMsg = msgProcessing
			m.statusOK = false
		case msg.err != nil:
			m.statusMsg = errText(msg.err)
			m.statusOK = false
		default:
			m.cursor = 0
			m.statusMsg = msgOrderPlaced
			if msg.tx != nil && msg.tx.ID != "" {
				m.statusMsg += " order " + msg.tx.ID.String()
			}
			m.statusOK = true
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		m.statusMsg = ""
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m cartModel) updateKeys(msg tea.KeyMsg) (cartModel, tea.Cmd) {
	items := m.cart.Items()
	var cur *cart.Item
	if m.cursor < len(items) {
		cur = &items[m.cursor]
	}

	switch msg.String() {
	case "j", "down":
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "+", "=":
		if cur != nil {
			return m, m.setQuantity(cur.BookID, cur.Quantity+1)
		}
	case "-":
		if cur != nil {
			return m, m.setQuantity(cur.BookID, cur.Quantity-1)
		}
	case "x":
		if cur != nil {
			return m, m.setQuantity(cur.BookID, 0)
		}
	case "c", "enter":
		if len(items) == 0 {
			m.statusMsg = msgCartEmpty
			m.statusOK = false
			return m, nil
		}
		m.submitting = true
		return m, m.submit()
	}
	return m, nil
}

func (m cartModel) View() string {
	var b strings.Builder
	b.WriteString(" " + sectionHeaderStyle.Render("YOUR CART") + "\n")

	sepW := m.width - 2
	if sepW < 4 {
		sepW = 4
	}
	b.WriteString(" " + metaStyle.Render(strings.Repeat("─", sepW)) + "\n")

	if m.statusMsg != "" {
		style := errorStyle
		if m.statusOK {
			style = successStyle
		}
		b.WriteString(" " + style.Render(m.statusMsg) + "\n")
	}
	if m.submitting {
		b.WriteString(" " + goldStyle.Render(msgProcessing) + "\n")
	}

	items := m.cart.Items()
	if len(items) == 0 {
		if m.statusMsg == "" {
			b.WriteString(" " + dimStyle.Render(msgCartEmpty) + "\n")
		}
		return b.String()
	}

	titleW := m.width - 42
	if titleW < 12 {
		titleW = 12
	}
	for i, it := range items {
		cursor := "  "
		title := normalStyle.Render(padRight(truncStr(it.Title, titleW), titleW))
		if i == m.cursor {
			cursor = accentStyle.Render("▸") + " "
			title = selectedStyle.Render(padRight(truncStr(it.Title, titleW), titleW))
		}
		qty := accentStyle.Render(fmt.Sprintf("× %-3d", it.Quantity))
		unit := metaStyle.Render(fmt.Sprintf("%14s", domain.FormatRupiah(it.Price)))
		sub := priceStyle.Render(fmt.Sprintf("%14s", domain.FormatRupiah(it.Subtotal())))
		line := " " + cursor + title + " " + qty + unit + " " + sub
		if i == m.cursor {
			line = selectedRowBg.Width(m.width).Render(line)
		}
		b.WriteString(line + "\n")
	}

	t := m.cart.Totals()
	b.WriteString(" " + metaStyle.Render(strings.Repeat("─", sepW)) + "\n")
	b.WriteString(fmt.Sprintf(" %s %s  %s %s\n",
		dimStyle.Render("books"), normalStyle.Render(fmt.Sprintf("%d", t.Items)),
		dimStyle.Render("total"), priceStyle.Render(domain.FormatRupiah(t.Price))))
	return b.String()
}

func (m cartModel) helpKeys() string {
	if m.submitting {
		return helpBar(helpEntry("", msgProcessing))
	}
	return helpBar(helpEntry("1-3", "tabs"), helpEntry("j/k", "nav"), helpEntry("+/-", "qty"),
		helpEntry("x", "remove"), helpEntry("c", "checkout"), helpEntry("h", "help"), helpEntry("q", "quit"))
}
