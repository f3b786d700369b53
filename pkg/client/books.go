package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/naveenspark/hogwarts/pkg/domain"
)

// BookQuery selects a page of the catalog.
type BookQuery struct {
	Page    int
	Limit   int
	Query   string
	Sort    string
	GenreID string
}

func (q BookQuery) values() url.Values {
	params := url.Values{}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Query != "" {
		params.Set("q", q.Query)
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	return params
}

// ListBooks fetches one page of books. A non-empty GenreID lists that genre
// through ListBooksByGenre.
func (c *Client) ListBooks(ctx context.Context, q BookQuery) (*domain.BookPage, error) {
	if q.GenreID != "" {
		return c.ListBooksByGenre(ctx, q.GenreID, q)
	}
	return c.listBooks(ctx, "/books", q, "client.ListBooks")
}

// ListBooksByGenre fetches one page of the books in a genre. The genre
// endpoint does not sort, so q.Sort is dropped.
func (c *Client) ListBooksByGenre(ctx context.Context, genreID string, q BookQuery) (*domain.BookPage, error) {
	q.Sort = ""
	return c.listBooks(ctx, "/books/genre/"+url.PathEscape(genreID), q, "client.ListBooksByGenre")
}

func (c *Client) listBooks(ctx context.Context, path string, q BookQuery, op string) (*domain.BookPage, error) {
	var page domain.BookPage
	if err := c.get(ctx, path, q.values(), &page); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if page.Meta.Pages == 0 && page.Meta.Limit > 0 {
		page.Meta.Pages = (page.Meta.Total + page.Meta.Limit - 1) / page.Meta.Limit
	}
	return &page, nil
}

// GetBook fetches a single book by ID.
func (c *Client) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	var resp struct {
		Data domain.Book `json:"data"`
	}
	if err := c.get(ctx, "/books/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, fmt.Errorf("client.GetBook: %w", err)
	}
	return &resp.Data, nil
}

// CreateBook adds a book to the catalog.
func (c *Client) CreateBook(ctx context.Context, in domain.BookInput) (*domain.Book, error) {
	var resp struct {
		Data domain.Book `json:"data"`
	}
	if err := c.post(ctx, "/books", in, &resp); err != nil {
		return nil, fmt.Errorf("client.CreateBook: %w", err)
	}
	return &resp.Data, nil
}

// UpdateBook applies a partial update to a book.
func (c *Client) UpdateBook(ctx context.Context, id string, patch domain.BookPatch) (*domain.Book, error) {
	var resp struct {
		Data domain.Book `json:"data"`
	}
	req := request{method: http.MethodPatch, path: "/books/" + url.PathEscape(id), body: patch}
	if err := c.doRequest(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("client.UpdateBook: %w", err)
	}
	return &resp.Data, nil
}

// DeleteBook removes a book from the catalog.
func (c *Client) DeleteBook(ctx context.Context, id string) error {
	req := request{method: http.MethodDelete, path: "/books/" + url.PathEscape(id)}
	if err := c.doRequest(ctx, req, nil); err != nil {
		return fmt.Errorf("client.DeleteBook: %w", err)
	}
	return nil
}
