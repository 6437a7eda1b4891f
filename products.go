package beep

import (
	"context"
	"net/url"
)

// ListProductsOptions filters product listings
type ListProductsOptions struct {
	// Name restricts results to products with this exact name
	Name string
}

// GetProduct fetches a product by id
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	if id == "" {
		return nil, NewError(ErrCodeValidation, "product id is required", nil)
	}

	var product Product
	if err := c.get(ctx, "/v1/products/"+url.PathEscape(id), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts lists products, optionally filtered by name
func (c *Client) ListProducts(ctx context.Context, opts *ListProductsOptions) ([]Product, error) {
	path := "/v1/products"
	if opts != nil && opts.Name != "" {
		path += "?name=" + url.QueryEscape(opts.Name)
	}

	var result struct {
		Products []Product `json:"products"`
	}
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return result.Products, nil
}

// CreateProduct creates a product record
func (c *Client) CreateProduct(ctx context.Context, payload CreateProductPayload) (*Product, error) {
	if payload.Name == "" {
		return nil, NewError(ErrCodeValidation, "product name is required", nil)
	}
	if payload.Price == "" {
		return nil, NewError(ErrCodeValidation, "product price is required", nil)
	}

	var product Product
	if err := c.post(ctx, "/v1/products", payload, &product, nil); err != nil {
		return nil, err
	}
	return &product, nil
}
