// Package rest implements domain.VenueClient against a venue's HTTP API.
// The wire format follows the common exchange shape: GET depth, POST order,
// both JSON.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/quantbot/smartrouter/internal/domain"
)

// Client is a REST adapter for one venue.
type Client struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a REST venue client.
//
// baseURL is the API root, e.g. "https://api.venue.example/v1". The apiKey,
// when non-empty, is sent as a bearer token on every request.
func NewClient(name, baseURL, apiKey string) *Client {
	return &Client{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Name() string { return c.name }

// bookResponse is the venue's depth payload: [price, quantity] tuples.
type bookResponse struct {
	Bids [][2]float64 `json:"bids"`
	Asks [][2]float64 `json:"asks"`
}

// FetchBook returns the top depth levels for the asset.
func (c *Client) FetchBook(ctx context.Context, asset string, depth int) (domain.VenueBook, error) {
	params := url.Values{}
	params.Set("symbol", asset)
	if depth > 0 {
		params.Set("depth", strconv.Itoa(depth))
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/book?"+params.Encode(), nil)
	if err != nil {
		return domain.VenueBook{}, fmt.Errorf("%s: fetch book: %w", c.name, err)
	}

	var resp bookResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.VenueBook{}, fmt.Errorf("%s: decode book: %w", c.name, err)
	}

	book := domain.VenueBook{Venue: c.name}
	for _, l := range resp.Bids {
		book.Bids = append(book.Bids, domain.PriceLevel{Venue: c.name, Price: l[0], Quantity: l[1]})
	}
	for _, l := range resp.Asks {
		book.Asks = append(book.Asks, domain.PriceLevel{Venue: c.name, Price: l[0], Quantity: l[1]})
	}
	return book, nil
}

// orderRequest is the JSON body for order submission.
type orderRequest struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Type     string  `json:"type"`
}

// orderResponse is the venue's acknowledgement of a filled order.
type orderResponse struct {
	OrderID        string  `json:"order_id"`
	FilledQuantity float64 `json:"filled_quantity"`
	FilledPrice    float64 `json:"filled_price"`
	Fee            float64 `json:"fee"`
	Status         string  `json:"status"`
}

// SubmitOrder sends one order and blocks until the venue acknowledges it.
func (c *Client) SubmitOrder(ctx context.Context, asset string, side domain.Side, quantity, price float64) (domain.Fill, error) {
	reqBody, err := json.Marshal(orderRequest{
		Symbol:   asset,
		Side:     string(side),
		Quantity: quantity,
		Price:    price,
		Type:     string(domain.LegKindLimit),
	})
	if err != nil {
		return domain.Fill{}, fmt.Errorf("%s: encode order: %w", c.name, err)
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/orders", reqBody)
	if err != nil {
		return domain.Fill{}, fmt.Errorf("%s: submit order: %w", c.name, err)
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Fill{}, fmt.Errorf("%s: decode order response: %w", c.name, err)
	}
	if resp.Status == "rejected" {
		return domain.Fill{}, fmt.Errorf("%s: order rejected", c.name)
	}

	return domain.Fill{
		Venue:     c.name,
		OrderID:   resp.OrderID,
		Side:      side,
		Quantity:  resp.FilledQuantity,
		Price:     resp.FilledPrice,
		Fee:       resp.Fee,
		Timestamp: time.Now().UTC(),
	}, nil
}

// doRequest performs one HTTP call and returns the response body.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}
