package tui

import (
	"context"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/hogwarts/internal/validate"
	"github.com/naveenspark/hogwarts/pkg/client"
	"github.com/naveenspark/hogwarts/pkg/domain"
)

type bookField int

const (
	bfTitle bookField = iota
	bfWriter
	bfPublisher
	bfYear
	bfPrice
	bfStock
	bfGenre
	bfDescription
	numBookFields
)

var bookFieldLabels = [numBookFields]string{"title", "writer", "publisher", "year", "price", "stock", "genre", "description"}

// bookFieldKeys maps inputs to validate.Errors field names.
var bookFieldKeys = [numBookFields]string{"title", "writer", "", "year", "price", "stock", "genreId", ""}

type bookSavedMsg struct {
	book    *domain.Book
	created bool
	err     error
}

// bookFormModel creates a book, or edits one when editID is set.
type bookFormModel struct {
	client     *client.Client
	editID     string
	genres     []domain.Genre
	genreIdx   int // -1 until a genre is picked
	fields     [numBookFields]string
	focus      bookField
	errs       *validate.Errors
	statusMsg  string
	submitting bool
}

func newBookFormModel(c *client.Client, genres []domain.Genre, b *domain.Book) bookFormModel {
	m := bookFormModel{client: c, genres: genres, genreIdx: -1}
	if b == nil {
		return m
	}
	m.editID = b.ID.String()
	m.fields[bfTitle] = b.Title
	m.fields[bfWriter] = b.Writer
	m.fields[bfPublisher] = b.Publisher
	if b.PublicationYear > 0 {
		m.fields[bfYear] = strconv.Itoa(b.PublicationYear)
	}
	m.fields[bfPrice] = strconv.FormatFloat(b.Price, 'f', -1, 64)
	m.fields[bfStock] = strconv.Itoa(b.StockQuantity)
	m.fields[bfDescription] = b.Description
	gid := b.GenreID
	if gid == "" && b.Genre != nil {
		gid = b.Genre.ID
	}
	for i, g := range genres {
		if g.ID == gid {
			m.genreIdx = i
		}
	}
	return m
}

func (m bookFormModel) Init() tea.Cmd {
	return nil
}

func (m bookFormModel) genreID() string {
	if m.genreIdx < 0 || m.genreIdx >= len(m.genres) {
		return ""
	}
	return m.genres[m.genreIdx].ID.String()
}

func (m bookFormModel) Update(msg tea.Msg) (bookFormModel, tea.Cmd) {
	switch msg := msg.(type) {
	case bookSavedMsg:
		m.submitting = false
		if msg.err != nil {
			m.statusMsg = errText(msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m bookFormModel) updateKeys(msg tea.KeyMsg) (bookFormModel, tea.Cmd) {
	m.statusMsg = ""
	switch msg.String() {
	case "ctrl+s":
		return m.submit()
	case "tab", "down", "enter":
		m.focus = (m.focus + 1) % numBookFields
	case "shift+tab", "up":
		m.focus = (m.focus - 1 + numBookFields) % numBookFields
	default:
		if m.focus == bfGenre {
			return m.updateGenre(msg), nil
		}
		m.fields[m.focus] = editInput(m.fields[m.focus], msg)
	}
	return m, nil
}

func (m bookFormModel) updateGenre(msg tea.KeyMsg) bookFormModel {
	if len(m.genres) == 0 {
		return m
	}
	switch msg.String() {
	case "l", "right", " ":
		m.genreIdx = (m.genreIdx + 1) % len(m.genres)
	case "h", "left":
		if m.genreIdx <= 0 {
			m.genreIdx = len(m.genres) - 1
		} else {
			m.genreIdx--
		}
	}
	return m
}

func (m bookFormModel) submit() (bookFormModel, tea.Cmd) {
	m.errs = nil
	in, err := validate.Book(validate.BookForm{
		Title:       m.fields[bfTitle],
		Writer:      m.fields[bfWriter],
		Publisher:   m.fields[bfPublisher],
		Year:        m.fields[bfYear],
		Description: m.fields[bfDescription],
		Price:       m.fields[bfPrice],
		Stock:       m.fields[bfStock],
		GenreID:     m.genreID(),
	})
	if err != nil {
		m.errs, _ = err.(*validate.Errors)
		return m, nil
	}

	m.submitting = true
	c := m.client
	id := m.editID
	if id == "" {
		return m, func() tea.Msg {
			b, err := c.CreateBook(context.Background(), in)
			return bookSavedMsg{book: b, created: true, err: err}
		}
	}
	patch := patchFromInput(in)
	return m, func() tea.Msg {
		b, err := c.UpdateBook(context.Background(), id, patch)
		return bookSavedMsg{book: b, err: err}
	}
}

// patchFromInput sends every form field, so an edit always writes what is shown.
func patchFromInput(in domain.BookInput) domain.BookPatch {
	return domain.BookPatch{
		Title:           &in.Title,
		Writer:          &in.Writer,
		Publisher:       &in.Publisher,
		PublicationYear: &in.PublicationYear,
		Description:     &in.Description,
		Price:           &in.Price,
		StockQuantity:   &in.StockQuantity,
		GenreID:         &in.GenreID,
	}
}

func (m bookFormModel) View() string {
	var b strings.Builder
	title := "NEW BOOK"
	if m.editID != "" {
		title = "EDIT BOOK"
	}
	b.WriteString(" " + goldStyle.Bold(true).Render(title) + "\n\n")

	if m.statusMsg != "" {
		b.WriteString(" " + errorStyle.Render(m.statusMsg) + "\n\n")
	}

	for f := bookField(0); f < numBookFields; f++ {
		errMsg := ""
		if key := bookFieldKeys[f]; key != "" {
			errMsg = m.errs.Get(key)
		}
		if f == bfGenre {
			b.WriteString(m.viewGenre(errMsg) + "\n")
			continue
		}
		b.WriteString(renderField(bookFieldLabels[f], m.fields[f], f == m.focus, false, errMsg) + "\n")
	}

	if m.submitting {
		b.WriteString("\n " + dimStyle.Render(msgProcessing))
	}
	return b.String()
}

func (m bookFormModel) viewGenre(errMsg string) string {
	cursor := "  "
	label := metaStyle.Render(padRight(bookFieldLabels[bfGenre], 12))
	if m.focus == bfGenre {
		cursor = accentStyle.Render("▸") + " "
		label = selectedStyle.Render(padRight(bookFieldLabels[bfGenre], 12))
	}
	value := dimStyle.Render("select with h/l")
	if len(m.genres) == 0 {
		value = dimStyle.Render("no genres available")
	}
	if m.genreIdx >= 0 && m.genreIdx < len(m.genres) {
		name := m.genres[m.genreIdx].Name
		value = GenreStyle(name).Render("‹ " + name + " ›")
	}
	line := cursor + label + " " + value
	if errMsg != "" {
		line += "  " + errorStyle.Render(errMsg)
	}
	return line
}

func (m bookFormModel) helpKeys() string {
	return helpBar(helpEntry("tab", "next"), helpEntry("h/l", "genre"), helpEntry("ctrl+s", "save"), helpEntry("esc", "cancel"))
}
