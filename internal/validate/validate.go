// Package validate checks user-entered forms before anything is sent to the
// API. A failed check never reaches the network.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/naveenspark/hogwarts/pkg/domain"
)

// Limits enforced on the client.
const (
	PasswordMinLength = 6
	NameMinLength     = 2
	BookTitleMax      = 255
	BookWriterMax     = 100
	PriceMin          = 0
	PriceMax          = 999999999
	StockMin          = 0
	StockMax          = 999999
)

// ErrValidation matches every *Errors.
var ErrValidation = errors.New("validation failed")

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldError is one failed field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors collects field failures in the order they were found.
type Errors struct {
	Fields []FieldError
}

func (e *Errors) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// Error joins the messages the way the forms display them.
func (e *Errors) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, ", ")
}

func (e *Errors) Is(target error) bool {
	return target == ErrValidation
}

// Get returns the message for field, or "".
func (e *Errors) Get(field string) string {
	if e == nil {
		return ""
	}
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

func (e *Errors) err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Email reports whether s looks like an email address.
func Email(s string) bool {
	return emailPattern.MatchString(s)
}

func checkEmail(e *Errors, email string) {
	switch {
	case email == "":
		e.add("email", "Email is required")
	case !Email(email):
		e.add("email", "Please enter a valid email address")
	}
}

func checkPassword(e *Errors, password string) {
	switch {
	case password == "":
		e.add("password", "Password is required")
	case utf8.RuneCountInString(password) < PasswordMinLength:
		e.add("password", fmt.Sprintf("Password must be at least %d characters", PasswordMinLength))
	}
}

// Login checks the sign-in form.
func Login(email, password string) error {
	var e Errors
	checkEmail(&e, strings.TrimSpace(email))
	checkPassword(&e, password)
	return e.err()
}

// RegisterForm is the sign-up form as typed.
type RegisterForm struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Register checks the sign-up form.
func Register(f RegisterForm) error {
	var e Errors
	name := strings.TrimSpace(f.Name)
	switch {
	case name == "":
		e.add("name", "Name is required")
	case utf8.RuneCountInString(name) < NameMinLength:
		e.add("name", fmt.Sprintf("Name must be at least %d characters", NameMinLength))
	}
	checkEmail(&e, strings.TrimSpace(f.Email))
	checkPassword(&e, f.Password)
	switch {
	case f.ConfirmPassword == "":
		e.add("confirmPassword", "Please confirm your password")
	case f.Password != f.ConfirmPassword:
		e.add("confirmPassword", "Passwords do not match")
	}
	return e.err()
}

// Account checks the fields sent to the register endpoint. username is
// optional there, but when given it must be at least NameMinLength long.
func Account(email, password, username string) error {
	var e Errors
	checkEmail(&e, strings.TrimSpace(email))
	checkPassword(&e, password)
	if name := strings.TrimSpace(username); name != "" && utf8.RuneCountInString(name) < NameMinLength {
		e.add("name", fmt.Sprintf("Name must be at least %d characters", NameMinLength))
	}
	return e.err()
}

// BookForm is the add/edit book form as typed. Numeric fields are raw text.
type BookForm struct {
	Title       string
	Writer      string
	Publisher   string
	Year        string
	Description string
	Price       string
	Stock       string
	GenreID     string
}

// Book checks the form and converts it to an API payload.
func Book(f BookForm) (domain.BookInput, error) {
	var e Errors
	in := domain.BookInput{
		Title:       strings.TrimSpace(f.Title),
		Writer:      strings.TrimSpace(f.Writer),
		Publisher:   strings.TrimSpace(f.Publisher),
		Description: strings.TrimSpace(f.Description),
		GenreID:     domain.ID(strings.TrimSpace(f.GenreID)),
	}

	switch {
	case in.Title == "":
		e.add("title", "Book title is required")
	case utf8.RuneCountInString(in.Title) > BookTitleMax:
		e.add("title", fmt.Sprintf("Title must not exceed %d characters", BookTitleMax))
	}

	switch {
	case in.Writer == "":
		e.add("writer", "Author/Writer is required")
	case utf8.RuneCountInString(in.Writer) > BookWriterMax:
		e.add("writer", fmt.Sprintf("Writer must not exceed %d characters", BookWriterMax))
	}

	if raw := strings.TrimSpace(f.Price); raw == "" {
		e.add("price", "Price is required")
	} else if price, err := strconv.ParseFloat(raw, 64); err != nil {
		e.add("price", "Price must be a valid number")
	} else if price < PriceMin {
		e.add("price", fmt.Sprintf("Price must be at least %d", PriceMin))
	} else if price > PriceMax {
		e.add("price", fmt.Sprintf("Price cannot exceed %d", PriceMax))
	} else {
		in.Price = price
	}

	if raw := strings.TrimSpace(f.Stock); raw == "" {
		e.add("stock", "Stock is required")
	} else if stock, err := strconv.Atoi(raw); err != nil {
		e.add("stock", "Stock must be a valid number")
	} else if stock < StockMin {
		e.add("stock", fmt.Sprintf("Stock must be at least %d", StockMin))
	} else if stock > StockMax {
		e.add("stock", fmt.Sprintf("Stock cannot exceed %d", StockMax))
	} else {
		in.StockQuantity = stock
	}

	if raw := strings.TrimSpace(f.Year); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 0 {
			e.add("year", "Publication year must be a valid year")
		} else {
			in.PublicationYear = year
		}
	}

	if in.GenreID == "" {
		e.add("genreId", "Please select a genre")
	}

	if err := e.err(); err != nil {
		return domain.BookInput{}, err
	}
	return in, nil
}

// OrderLine checks one line of an order.
func OrderLine(bookID string, quantity int) error {
	var e Errors
	if strings.TrimSpace(bookID) == "" {
		e.add("bookId", "Book ID is required")
	}
	if quantity < 1 {
		e.add("quantity", "Quantity must be at least 1")
	}
	return e.err()
}
