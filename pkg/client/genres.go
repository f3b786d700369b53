package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/naveenspark/hogwarts/pkg/domain"
)

// genreScanLimit is the page size used when rebuilding genres from books.
const genreScanLimit = 100

// ListGenres returns every genre. Older API deployments have no /genres
// endpoint; for any non-401 failure the genres are collected from the
// embedded genre of each book instead.
func (c *Client) ListGenres(ctx context.Context) ([]domain.Genre, error) {
	var raw json.RawMessage
	err := c.get(ctx, "/genres", nil, &raw)
	if err == nil {
		genres, decErr := decodeGenres(raw)
		if decErr != nil {
			return nil, fmt.Errorf("client.ListGenres: %w", decErr)
		}
		return genres, nil
	}
	if errors.Is(err, ErrUnauthorized) || ctx.Err() != nil {
		return nil, fmt.Errorf("client.ListGenres: %w", err)
	}
	c.logger.Debug("genres endpoint unavailable, scanning books", zap.Error(err))

	genres, scanErr := c.genresFromBooks(ctx)
	if scanErr != nil {
		return nil, fmt.Errorf("client.ListGenres: %w", scanErr)
	}
	return genres, nil
}

// decodeGenres accepts {data: [...]} or a bare array.
func decodeGenres(raw json.RawMessage) ([]domain.Genre, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '[' {
		var genres []domain.Genre
		if err := json.Unmarshal(raw, &genres); err != nil {
			return nil, &ResponseError{Detail: "decode genres", Err: err}
		}
		return genres, nil
	}
	var env struct {
		Data []domain.Genre `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &ResponseError{Detail: "decode genres", Err: err}
	}
	return env.Data, nil
}

func (c *Client) genresFromBooks(ctx context.Context) ([]domain.Genre, error) {
	seen := make(map[domain.ID]bool)
	var genres []domain.Genre
	for page, pages := 1, 1; page <= pages; page++ {
		p, err := c.ListBooks(ctx, BookQuery{Page: page, Limit: genreScanLimit})
		if err != nil {
			if page == 1 {
				return nil, err
			}
			// Keep what earlier pages produced.
			break
		}
		pages = p.Meta.Pages
		for _, b := range p.Data {
			if b.Genre == nil || b.Genre.ID == "" || b.Genre.Name == "" || seen[b.Genre.ID] {
				continue
			}
			seen[b.Genre.ID] = true
			genres = append(genres, *b.Genre)
		}
	}
	return genres, nil
}
