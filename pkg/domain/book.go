package domain

import "time"

// Book is a catalog entry. Books are owned by the API and never mutated
// locally; the cart keeps its own copy of title and price.
type Book struct {
	ID              ID         `json:"id"`
	Title           string     `json:"title"`
	Writer          string     `json:"writer"`
	Publisher       string     `json:"publisher,omitempty"`
	PublicationYear int        `json:"publication_year,omitempty"`
	Description     string     `json:"description,omitempty"`
	Price           float64    `json:"price"`
	StockQuantity   int        `json:"stock_quantity"`
	GenreID         ID         `json:"genre_id,omitempty"`
	Genre           *Genre     `json:"genre,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// InStock reports whether at least one copy is available.
func (b Book) InStock() bool {
	return b.StockQuantity > 0
}

// GenreName returns the embedded genre's name, or "" when absent.
func (b Book) GenreName() string {
	if b.Genre == nil {
		return ""
	}
	return b.Genre.Name
}

// BookInput is the payload for creating a book.
type BookInput struct {
	Title           string  `json:"title"`
	Writer          string  `json:"writer"`
	Publisher       string  `json:"publisher"`
	PublicationYear int     `json:"publication_year"`
	Description     string  `json:"description,omitempty"`
	Price           float64 `json:"price"`
	StockQuantity   int     `json:"stock_quantity"`
	GenreID         ID      `json:"genre_id"`
}

// BookPatch is a partial update. Nil fields are left unchanged by the API.
type BookPatch struct {
	Title           *string  `json:"title,omitempty"`
	Writer          *string  `json:"writer,omitempty"`
	Publisher       *string  `json:"publisher,omitempty"`
	PublicationYear *int     `json:"publication_year,omitempty"`
	Description     *string  `json:"description,omitempty"`
	Price           *float64 `json:"price,omitempty"`
	StockQuantity   *int     `json:"stock_quantity,omitempty"`
	GenreID         *ID      `json:"genre_id,omitempty"`
}

// PageMeta describes one page of a paginated listing.
type PageMeta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// BookPage is one page of the catalog.
type BookPage struct {
	Meta PageMeta `json:"meta"`
	Data []Book   `json:"data"`
}

// Book sort keys accepted by GET /books.
const (
	SortNewest    = "date_desc"
	SortOldest    = "date_asc"
	SortPriceDesc = "price_desc"
	SortPriceAsc  = "price_asc"
)

// BookSorts lists the catalog sort keys in display order.
var BookSorts = []string{SortNewest, SortOldest, SortPriceAsc, SortPriceDesc}
