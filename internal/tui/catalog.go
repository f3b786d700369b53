package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/naveenspark/hogwarts/internal/browser"
	"github.com/naveenspark/hogwarts/internal/cart"
	"github.com/naveenspark/hogwarts/internal/checkout"
	"github.com/naveenspark/hogwarts/pkg/client"
	"github.com/naveenspark/hogwarts/pkg/domain"
)

type catalogModel struct {
	client   *client.Client
	cart     *cart.Cart
	checkout *checkout.Submitter // cart is read-only while an order is placed
	webURL   string
	pageSize int

	books  []domain.Book
	meta   domain.PageMeta
	genres []domain.Genre
	page   int
	cursor int

	search    string
	editing   bool // true when typing in search
	sortIdx   int
	genreIdx  int // -1 is all genres
	genresErr error

	detail        bool
	book          *domain.Book // freshly fetched copy of the selected book
	confirmDelete bool
	canEdit       bool

	seq       int // last issued load; older results are dropped
	loading   bool
	err       error
	statusMsg string
	statusOK  bool
	width     int
	height    int
}

type booksLoadedMsg struct {
	seq       int
	page      *domain.BookPage
	genres    []domain.Genre
	genresErr error
	err       error
}

type bookLoadedMsg struct {
	seq  int
	book *domain.Book
	err  error
}

type addToCartResultMsg struct {
	title string
	err   error
}

type bookDeletedMsg struct{ err error }

// editBookMsg asks App to open the book form. A nil book means a new one.
type editBookMsg struct {
	book *domain.Book
}

func newCatalogModel(c *client.Client, crt *cart.Cart, sub *checkout.Submitter, webURL string, pageSize int) catalogModel {
	if pageSize <= 0 {
		pageSize = 10
	}
	return catalogModel{
		client:   c,
		cart:     crt,
		checkout: sub,
		webURL:   webURL,
		pageSize: pageSize,
		page:     1,
		genreIdx: -1,
		loading:  true,
	}
}

func (m catalogModel) Init() tea.Cmd {
	return m.load()
}

func (m catalogModel) query() client.BookQuery {
	q := client.BookQuery{
		Page:  m.page,
		Limit: m.pageSize,
		Query: strings.TrimSpace(m.search),
		Sort:  domain.BookSorts[m.sortIdx],
	}
	if m.genreIdx >= 0 && m.genreIdx < len(m.genres) {
		q.GenreID = m.genres[m.genreIdx].ID.String()
	}
	return q
}

// reload bumps the sequence and fetches the current page.
func (m catalogModel) reload() (catalogModel, tea.Cmd) {
	m.seq++
	m.loading = true
	return m, m.load()
}

// load fetches the current page, and the genre list alongside it on first use.
func (m catalogModel) load() tea.Cmd {
	c := m.client
	q := m.query()
	seq := m.seq
	needGenres := m.genres == nil
	return func() tea.Msg {
		g, ctx := errgroup.WithContext(context.Background())
		var page *domain.BookPage
		var genres []domain.Genre
		var genresErr error
		g.Go(func() error {
			var err error
			page, err = c.ListBooks(ctx, q)
			return err
		})
		if needGenres {
			g.Go(func() error {
				// the genre filter is optional; the list still renders without it
				genres, genresErr = c.ListGenres(ctx)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return booksLoadedMsg{seq: seq, err: err}
		}
		return booksLoadedMsg{seq: seq, page: page, genres: genres, genresErr: genresErr}
	}
}

func (m catalogModel) loadBook(id string) tea.Cmd {
	c := m.client
	seq := m.seq
	return func() tea.Msg {
		b, err := c.GetBook(context.Background(), id)
		return bookLoadedMsg{seq: seq, book: b, err: err}
	}
}

func (m catalogModel) selected() (domain.Book, bool) {
	if m.cursor < 0 || m.cursor >= len(m.books) {
		return domain.Book{}, false
	}
	if m.detail && m.book != nil {
		return *m.book, true
	}
	return m.books[m.cursor], true
}

func (m catalogModel) setStatus(msg string, ok bool) catalogModel {
	m.statusMsg = msg
	m.statusOK = ok
	return m
}

func (m catalogModel) Update(msg tea.Msg) (catalogModel, tea.Cmd) {
	switch msg := msg.(type) {
	case booksLoadedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		if msg.genres != nil {
			m.genres = msg.genres
		}
		// a nil genre list is fetched again on the next load
		m.genresErr = msg.genresErr
		m.books = msg.page.Data
		m.meta = msg.page.Meta
		if m.cursor >= len(m.books) {
			m.cursor = 0
		}
		return m, nil

	case bookLoadedMsg:
		if msg.seq != m.seq || !m.detail {
			return m, nil
		}
		if msg.err != nil {
			return m.setStatus(errText(msg.err), false), nil
		}
		m.book = msg.book
		return m, nil

	case addToCartResultMsg:
		if msg.err != nil {
			return m.setStatus(errText(msg.err), false), nil
		}
		return m.setStatus(fmt.Sprintf("added %q to cart", msg.title), true), nil

	case bookDeletedMsg:
		if msg.err != nil {
			return m.setStatus(errText(msg.err), false), nil
		}
		m.detail = false
		m.book = nil
		m = m.setStatus(msgBookDeleted, true)
		return m.reload()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		m.statusMsg = ""
		if m.editing {
			return m.updateSearch(msg)
		}
		if m.confirmDelete {
			return m.updateConfirm(msg)
		}
		if m.detail {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m catalogModel) updateSearch(msg tea.KeyMsg) (catalogModel, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.editing = false
		m.page = 1
		m.cursor = 0
		return m.reload()
	case "esc":
		m.editing = false
		m.search = ""
		m.page = 1
		m.cursor = 0
		return m.reload()
	default:
		m.search = editInput(m.search, msg)
	}
	return m, nil
}

func (m catalogModel) updateConfirm(msg tea.KeyMsg) (catalogModel, tea.Cmd) {
	m.confirmDelete = false
	if msg.String() != "y" {
		return m, nil
	}
	b, ok := m.selected()
	if !ok {
		return m, nil
	}
	c := m.client
	id := b.ID.String()
	return m, func() tea.Msg {
		return bookDeletedMsg{err: c.DeleteBook(context.Background(), id)}
	}
}

func (m catalogModel) updateList(msg tea.KeyMsg) (catalogModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.books)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		if b, ok := m.selected(); ok {
			m.detail = true
			m.book = nil
			m.seq++
			return m, m.loadBook(b.ID.String())
		}
	case "/":
		m.editing = true
		m.search = ""
	case "s":
		m.sortIdx = (m.sortIdx + 1) % len(domain.BookSorts)
		m.page = 1
		m.cursor = 0
		return m.reload()
	case "g":
		if len(m.genres) == 0 {
			return m, nil
		}
		m.genreIdx++
		if m.genreIdx >= len(m.genres) {
			m.genreIdx = -1
		}
		m.page = 1
		m.cursor = 0
		return m.reload()
	case "]", "right":
		if m.page < m.meta.Pages {
			m.page++
			m.cursor = 0
			return m.reload()
		}
	case "[", "left":
		if m.page > 1 {
			m.page--
			m.cursor = 0
			return m.reload()
		}
	case "r":
		return m.reload()
	default:
		return m.updateAction(msg)
	}
	return m, nil
}

func (m catalogModel) updateDetail(msg tea.KeyMsg) (catalogModel, tea.Cmd) {
	if msg.String() == "esc" {
		m.detail = false
		m.book = nil
		return m, nil
	}
	return m.updateAction(msg)
}

// updateAction handles the keys shared by the list and the detail view.
func (m catalogModel) updateAction(msg tea.KeyMsg) (catalogModel, tea.Cmd) {
	switch msg.String() {
	case "a":
		b, ok := m.selected()
		if !ok {
			return m, nil
		}
		if m.checkout != nil && m.checkout.State() == checkout.Submitting {
			return m.setStatus(msgOrderInFlight, false), nil
		}
		crt := m.cart
		return m, func() tea.Msg {
			err := crt.AddItem(context.Background(), b.ID.String(), b.Title, b.Price, b.StockQuantity)
			return addToCartResultMsg{title: b.Title, err: err}
		}
	case "o":
		if b, ok := m.selected(); ok {
			browser.Open(browser.BookURL(m.webURL, b.ID.String())) //nolint:errcheck // best-effort browser open
		}
	case "n":
		if m.canEdit {
			return m, func() tea.Msg { return editBookMsg{} }
		}
	case "e":
		if !m.canEdit {
			return m, nil
		}
		if b, ok := m.selected(); ok {
			return m, func() tea.Msg { return editBookMsg{book: &b} }
		}
	case "d":
		if _, ok := m.selected(); ok && m.canEdit {
			m.confirmDelete = true
		}
	}
	return m, nil
}

func (m catalogModel) sortLabel() string {
	switch domain.BookSorts[m.sortIdx] {
	case domain.SortOldest:
		return "oldest"
	case domain.SortPriceAsc:
		return "price↑"
	case domain.SortPriceDesc:
		return "price↓"
	default:
		return "newest"
	}
}

func (m catalogModel) View() string {
	if m.detail {
		return m.viewDetail()
	}

	var b strings.Builder
	b.WriteString(" " + sectionHeaderStyle.Render("THE LIBRARY"))
	if m.width >= 50 {
		b.WriteString("  " + metaStyle.Render("Every book you could wish for."))
	}
	b.WriteString("\n")

	switch {
	case m.editing:
		b.WriteString(" " + searchStyle.Render("/ "+m.search+"█"))
	case m.search != "":
		b.WriteString(" " + searchStyle.Render("/ "+m.search))
	default:
		b.WriteString(" " + dimStyle.Render("/ search..."))
	}
	genre := "all genres"
	if m.genreIdx >= 0 && m.genreIdx < len(m.genres) {
		genre = m.genres[m.genreIdx].Name
	}
	b.WriteString("   " + GenreStyle(genre).Render(genre) + " " + helpKeyStyle.Render("g"))
	if m.genresErr != nil {
		b.WriteString(" " + dimStyle.Render("genres unavailable"))
	}
	b.WriteString("   " + searchStyle.Render(m.sortLabel()) + " " + helpKeyStyle.Render("s"))
	b.WriteString("\n")

	sepW := m.width - 2
	if sepW < 4 {
		sepW = 4
	}
	b.WriteString(" " + metaStyle.Render(strings.Repeat("─", sepW)) + "\n")

	if m.statusMsg != "" {
		b.WriteString(" " + m.statusStyle().Render(m.statusMsg) + "\n")
	}
	if m.confirmDelete {
		if bk, ok := m.selected(); ok {
			b.WriteString(" " + errorStyle.Render(fmt.Sprintf("delete %q? y to confirm", bk.Title)) + "\n")
		}
	}

	if m.loading {
		b.WriteString(" " + dimStyle.Render(msgLoading))
		return b.String()
	}
	if m.err != nil {
		b.WriteString(" " + errorStyle.Render(errText(m.err)))
		return b.String()
	}
	if len(m.books) == 0 {
		b.WriteString(" " + dimStyle.Render(msgNoItems))
		return b.String()
	}

	titleW := m.width - 44
	if titleW < 12 {
		titleW = 12
	}
	for i, bk := range m.books {
		cursor := "  "
		title := normalStyle.Render(padRight(truncStr(bk.Title, titleW), titleW))
		if i == m.cursor {
			cursor = accentStyle.Render("▸") + " "
			title = selectedStyle.Render(padRight(truncStr(bk.Title, titleW), titleW))
		}
		writer := metaStyle.Render(padRight(truncStr(bk.Writer, 18), 18))
		price := priceStyle.Render(fmt.Sprintf("%14s", domain.FormatRupiah(bk.Price)))
		stock := stockStyle(bk.StockQuantity).Render(fmt.Sprintf("%4d", bk.StockQuantity))
		line := " " + cursor + title + " " + writer + " " + price + " " + stock
		if i == m.cursor {
			line = selectedRowBg.Width(m.width).Render(line)
		}
		b.WriteString(line + "\n")
	}

	pages := m.meta.Pages
	if pages < 1 {
		pages = 1
	}
	b.WriteString("\n " + metaStyle.Render(fmt.Sprintf("page %d of %d · %d books", m.page, pages, m.meta.Total)))
	return b.String()
}

func (m catalogModel) statusStyle() lipgloss.Style {
	if m.statusOK {
		return successStyle
	}
	return errorStyle
}

func (m catalogModel) viewDetail() string {
	bk, ok := m.selected()
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(" " + goldStyle.Bold(true).Render(bk.Title) + "\n")
	b.WriteString(" " + metaStyle.Render("by "+bk.Writer))
	if g := bk.GenreName(); g != "" {
		b.WriteString("  " + GenreStyle(g).Render(g))
	}
	b.WriteString("\n\n")

	row := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString("   " + dimStyle.Render(padRight(label, 12)) + " " + normalStyle.Render(value) + "\n")
	}
	row("publisher", bk.Publisher)
	if bk.PublicationYear > 0 {
		row("year", fmt.Sprintf("%d", bk.PublicationYear))
	}
	b.WriteString("   " + dimStyle.Render(padRight("price", 12)) + " " + priceStyle.Render(domain.FormatRupiah(bk.Price)) + "\n")
	stock := fmt.Sprintf("%d in stock", bk.StockQuantity)
	if !bk.InStock() {
		stock = "out of stock"
	}
	b.WriteString("   " + dimStyle.Render(padRight("stock", 12)) + " " + stockStyle(bk.StockQuantity).Render(stock) + "\n")
	if item, ok := m.cart.Get(bk.ID.String()); ok {
		b.WriteString("   " + dimStyle.Render(padRight("in cart", 12)) + " " + accentStyle.Render(fmt.Sprintf("%d", item.Quantity)) + "\n")
	}
	if bk.Description != "" {
		b.WriteString("\n " + normalStyle.Render(bk.Description) + "\n")
	}
	if m.book == nil {
		b.WriteString("\n " + dimStyle.Render(msgLoading) + "\n")
	}
	if m.statusMsg != "" {
		b.WriteString("\n " + m.statusStyle().Render(m.statusMsg) + "\n")
	}
	if m.confirmDelete {
		b.WriteString("\n " + errorStyle.Render(fmt.Sprintf("delete %q? y to confirm", bk.Title)) + "\n")
	}
	return b.String()
}

func (m catalogModel) helpKeys() string {
	if m.editing {
		return helpBar(helpEntry("enter", "search"), helpEntry("esc", "clear"))
	}
	entries := []string{helpEntry("1-3", "tabs")}
	if m.detail {
		entries = append(entries, helpEntry("a", "add to cart"), helpEntry("o", "open"))
		if m.canEdit {
			entries = append(entries, helpEntry("e", "edit"), helpEntry("d", "delete"))
		}
		entries = append(entries, helpEntry("esc", "back"))
		return helpBar(entries...)
	}
	entries = append(entries, helpEntry("j/k", "nav"), helpEntry("/", "search"), helpEntry("s", "sort"),
		helpEntry("g", "genre"), helpEntry("[ ]", "page"), helpEntry("a", "add"))
	if m.canEdit {
		entries = append(entries, helpEntry("n", "new"))
	}
	entries = append(entries, helpEntry("h", "help"), helpEntry("q", "quit"))
	return helpBar(entries...)
}
