package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/naveenspark/hogwarts/pkg/domain"
)

// ListTransactions returns the caller's orders. Zero page or limit omits the parameter.
func (c *Client) ListTransactions(ctx context.Context, page, limit int) ([]domain.Transaction, error) {
	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Data []domain.Transaction `json:"data"`
	}
	if err := c.get(ctx, "/transactions", params, &resp); err != nil {
		return nil, fmt.Errorf("client.ListTransactions: %w", err)
	}
	return resp.Data, nil
}

// GetTransaction fetches a single order by ID.
func (c *Client) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	var resp struct {
		Data domain.Transaction `json:"data"`
	}
	if err := c.get(ctx, "/transactions/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, fmt.Errorf("client.GetTransaction: %w", err)
	}
	return &resp.Data, nil
}

// CreateTransaction places an order.
func (c *Client) CreateTransaction(ctx context.Context, order domain.OrderRequest) (*domain.Transaction, error) {
	var resp struct {
		Data domain.Transaction `json:"data"`
	}
	if err := c.post(ctx, "/transactions", order, &resp); err != nil {
		return nil, fmt.Errorf("client.CreateTransaction: %w", err)
	}
	return &resp.Data, nil
}

// DeleteTransaction cancels an order.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	req := request{method: http.MethodDelete, path: "/transactions/" + url.PathEscape(id)}
	if err := c.doRequest(ctx, req, nil); err != nil {
		return fmt.Errorf("client.DeleteTransaction: %w", err)
	}
	return nil
}
