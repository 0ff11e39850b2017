package pricesource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Listing is one priced entry as returned by the upstream market API.
type Listing struct {
	Name     string              `json:"market_hash_name"`
	MinPrice decimal.NullDecimal `json:"min_price"`
}

type Client struct {
	addr       string
	httpClient *http.Client
}

func NewClient(addr string) *Client {
	return &Client{
		addr:       addr,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch downloads one of the two listings. The upstream exposes the same
// endpoint for both, switched by the tradable flag.
func (c *Client) Fetch(ctx context.Context, tradable bool) ([]Listing, error) {
	flag := "0"
	if tradable {
		flag = "1"
	}
	url := fmt.Sprintf("%s/api/v1/prices?tradable=%s", c.addr, flag)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var listings []Listing
	if err := json.NewDecoder(resp.Body).Decode(&listings); err != nil {
		return nil, err
	}
	return listings, nil
}
