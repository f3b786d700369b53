package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/hogwarts/internal/browser"
	"github.com/naveenspark/hogwarts/pkg/client"
	"github.com/naveenspark/hogwarts/pkg/domain"
)

type ordersModel struct {
	client  *client.Client
	webURL  string
	all     []domain.Transaction
	visible []domain.Transaction // all, filtered and sorted
	cursor  int
	search  string
	editing bool
	sortIdx int
	detail  bool

	confirmCancel bool

	seq       int
	loading   bool
	err       error
	statusMsg string
	statusOK  bool
	width     int
	height    int
}

type ordersLoadedMsg struct {
	seq int
	txs []domain.Transaction
	err error
}

type orderCancelledMsg struct{ err error }

type copyResultMsg struct{ err error }

func newOrdersModel(c *client.Client, webURL string) ordersModel {
	return ordersModel{client: c, webURL: webURL, loading: true}
}

func (m ordersModel) Init() tea.Cmd {
	return m.load()
}

func (m ordersModel) load() tea.Cmd {
	c := m.client
	seq := m.seq
	return func() tea.Msg {
		txs, err := c.ListTransactions(context.Background(), 0, 0)
		return ordersLoadedMsg{seq: seq, txs: txs, err: err}
	}
}

func (m ordersModel) reload() (ordersModel, tea.Cmd) {
	m.seq++
	m.loading = true
	return m, m.load()
}

// refilter recomputes the visible list from the current search and sort.
func (m ordersModel) refilter() ordersModel {
	m.visible = domain.SortTransactions(domain.FilterTransactions(m.all, m.search), domain.OrderSorts[m.sortIdx])
	if m.cursor >= len(m.visible) {
		m.cursor = 0
	}
	return m
}

func (m ordersModel) selected() (domain.Transaction, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return domain.Transaction{}, false
	}
	return m.visible[m.cursor], true
}

func (m ordersModel) Update(msg tea.Msg) (ordersModel, tea.Cmd) {
	switch msg := msg.(type) {
	case ordersLoadedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.all = msg.txs
		}
		return m.refilter(), nil

	case orderCancelledMsg:
		if msg.err != nil {
			m.statusMsg = errText(msg.err)
			m.statusOK = false
			return m, nil
		}
		m.detail = false
		m.statusMsg = msgOrderCancelled
		m.statusOK = true
		return m.reload()

	case copyResultMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("copy failed: %v", msg.err)
			m.statusOK = false
		} else {
			m.statusMsg = "copied!"
			m.statusOK = true
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		m.statusMsg = ""
		if m.editing {
			return m.updateSearch(msg)
		}
		if m.confirmCancel {
			return m.updateConfirm(msg)
		}
		if m.detail {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m ordersModel) updateSearch(msg tea.KeyMsg) (ordersModel, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.editing = false
	case "esc":
		m.editing = false
		m.search = ""
	default:
		m.search = editInput(m.search, msg)
	}
	return m.refilter(), nil
}

func (m ordersModel) updateConfirm(msg tea.KeyMsg) (ordersModel, tea.Cmd) {
	m.confirmCancel = false
	tx, ok := m.selected()
	if msg.String() != "y" || !ok {
		return m, nil
	}
	c := m.client
	id := tx.ID.String()
	return m, func() tea.Msg {
		return orderCancelledMsg{err: c.DeleteTransaction(context.Background(), id)}
	}
}

func (m ordersModel) updateList(msg tea.KeyMsg) (ordersModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		if len(m.visible) > 0 {
			m.detail = true
		}
	case "/":
		m.editing = true
	case "s":
		m.sortIdx = (m.sortIdx + 1) % len(domain.OrderSorts)
		m.cursor = 0
		return m.refilter(), nil
	case "r":
		return m.reload()
	default:
		return m.updateAction(msg)
	}
	return m, nil
}

func (m ordersModel) updateDetail(msg tea.KeyMsg) (ordersModel, tea.Cmd) {
	if msg.String() == "esc" {
		m.detail = false
		return m, nil
	}
	return m.updateAction(msg)
}

func (m ordersModel) updateAction(msg tea.KeyMsg) (ordersModel, tea.Cmd) {
	tx, ok := m.selected()
	if !ok {
		return m, nil
	}
	switch msg.String() {
	case "c":
		id := tx.ID.String()
		return m, func() tea.Msg {
			return copyResultMsg{err: clipboard.WriteAll(id)}
		}
	case "o":
		browser.Open(browser.OrderURL(m.webURL, tx.ID.String())) //nolint:errcheck // best-effort browser open
	case "x":
		m.confirmCancel = true
	}
	return m, nil
}

func (m ordersModel) sortLabel() string {
	switch domain.OrderSorts[m.sortIdx] {
	case domain.OrderSortDateAsc:
		return "oldest"
	case domain.OrderSortAmountDesc:
		return "amount↓"
	case domain.OrderSortAmountAsc:
		return "amount↑"
	default:
		return "newest"
	}
}

func (m ordersModel) View() string {
	if m.detail {
		return m.viewDetail()
	}

	var b strings.Builder
	b.WriteString(" " + sectionHeaderStyle.Render("YOUR ORDERS") + "\n")
	switch {
	case m.editing:
		b.WriteString(" " + searchStyle.Render("/ "+m.search+"█"))
	case m.search != "":
		b.WriteString(" " + searchStyle.Render("/ "+m.search))
	default:
		b.WriteString(" " + dimStyle.Render("/ filter..."))
	}
	b.WriteString("   " + searchStyle.Render(m.sortLabel()) + " " + helpKeyStyle.Render("s") + "\n")

	sepW := m.width - 2
	if sepW < 4 {
		sepW = 4
	}
	b.WriteString(" " + metaStyle.Render(strings.Repeat("─", sepW)) + "\n")
	b.WriteString(m.viewStatus())

	if m.loading {
		b.WriteString(" " + dimStyle.Render(msgLoading))
		return b.String()
	}
	if m.err != nil {
		b.WriteString(" " + errorStyle.Render(errText(m.err)))
		return b.String()
	}
	if len(m.visible) == 0 {
		b.WriteString(" " + dimStyle.Render(msgNoItems))
		return b.String()
	}

	for i, tx := range m.visible {
		qty, amount := tx.Totals()
		cursor := "  "
		id := normalStyle.Render(padRight(truncStr(tx.ID.String(), 14), 14))
		if i == m.cursor {
			cursor = accentStyle.Render("▸") + " "
			id = selectedStyle.Render(padRight(truncStr(tx.ID.String(), 14), 14))
		}
		when := metaStyle.Render(padRight(formatTime(tx.CreatedAt), 12))
		books := dimStyle.Render(fmt.Sprintf("%3d books", qty))
		total := priceStyle.Render(fmt.Sprintf("%14s", domain.FormatRupiah(amount)))
		line := " " + cursor + id + " " + when + " " + books + " " + total
		if i == m.cursor {
			line = selectedRowBg.Width(m.width).Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m ordersModel) viewStatus() string {
	var b strings.Builder
	if m.statusMsg != "" {
		style := errorStyle
		if m.statusOK {
			style = successStyle
		}
		b.WriteString(" " + style.Render(m.statusMsg) + "\n")
	}
	if m.confirmCancel {
		if tx, ok := m.selected(); ok {
			b.WriteString(" " + errorStyle.Render(fmt.Sprintf("cancel order %s? y to confirm", tx.ID)) + "\n")
		}
	}
	return b.String()
}

func (m ordersModel) viewDetail() string {
	tx, ok := m.selected()
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(" " + goldStyle.Bold(true).Render("ORDER "+tx.ID.String()) + "\n")
	if !tx.CreatedAt.IsZero() {
		b.WriteString(" " + metaStyle.Render(tx.CreatedAt.Format("2 Jan 2006 15:04")) + "\n")
	}
	b.WriteString("\n")

	titleW := m.width - 40
	if titleW < 12 {
		titleW = 12
	}
	for _, it := range tx.Items {
		title := "(unknown book)"
		price := 0.0
		if it.Book != nil {
			title = it.Book.Title
			price = it.Book.Price
		}
		b.WriteString("   " + normalStyle.Render(padRight(truncStr(title, titleW), titleW)) +
			" " + accentStyle.Render(fmt.Sprintf("× %-3d", it.Quantity)) +
			metaStyle.Render(fmt.Sprintf("%14s", domain.FormatRupiah(price))) +
			" " + priceStyle.Render(fmt.Sprintf("%14s", domain.FormatRupiah(it.Subtotal()))) + "\n")
	}
	qty, amount := tx.Totals()
	b.WriteString("\n   " + dimStyle.Render("books") + " " + normalStyle.Render(fmt.Sprintf("%d", qty)) +
		"  " + dimStyle.Render("total") + " " + priceStyle.Render(domain.FormatRupiah(amount)) + "\n\n")
	b.WriteString(m.viewStatus())
	return b.String()
}

func (m ordersModel) helpKeys() string {
	if m.editing {
		return helpBar(helpEntry("enter", "done"), helpEntry("esc", "clear"))
	}
	if m.detail {
		return helpBar(helpEntry("1-3", "tabs"), helpEntry("c", "copy id"), helpEntry("o", "open"),
			helpEntry("x", "cancel order"), helpEntry("esc", "back"))
	}
	return helpBar(helpEntry("1-3", "tabs"), helpEntry("j/k", "nav"), helpEntry("/", "filter"),
		helpEntry("s", "sort"), helpEntry("c", "copy id"), helpEntry("r", "refresh"), helpEntry("h", "help"), helpEntry("q", "quit"))
}
