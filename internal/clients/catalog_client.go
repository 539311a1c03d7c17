// internal/clients/catalog_client.go
package clients

import (
	"context"
	"net/http"
	"net/url"

	"libralend/internal/catalog"
)

func (c *Client) AddItem(ctx context.Context, req catalog.AddItemRequest) (*catalog.BookItem, error) {
	var item catalog.BookItem
	if err := c.do(ctx, http.MethodPost, "/items", nil, req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) GetItem(ctx context.Context, barcode string) (*catalog.BookItem, error) {
	var item catalog.BookItem
	if err := c.do(ctx, http.MethodGet, "/items/"+url.PathEscape(barcode), nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) ListItems(ctx context.Context) ([]catalog.BookItem, error) {
	var items []catalog.BookItem
	if err := c.do(ctx, http.MethodGet, "/items", nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}
