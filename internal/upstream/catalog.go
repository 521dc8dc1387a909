package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"cafepos/backend/internal/domain"
)

const (
	discountsPath  = "/api/discounts/"
	promotionsPath = "/api/promotions/"
)

// CatalogClient reads the discount and promotion lists.
type CatalogClient struct {
	client *Client
}

func NewCatalogClient(client *Client) *CatalogClient {
	return &CatalogClient{client: client}
}

func (c *CatalogClient) FetchDiscounts(ctx context.Context) ([]domain.RawDiscount, error) {
	var out []domain.RawDiscount
	if err := c.fetchList(ctx, discountsPath, "discounts", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CatalogClient) FetchPromotions(ctx context.Context) ([]domain.RawPromotion, error) {
	var out []domain.RawPromotion
	if err := c.fetchList(ctx, promotionsPath, "promotions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// fetchList accepts a bare JSON array or an object wrapping it under key,
// "data" or "results".
func (c *CatalogClient) fetchList(ctx context.Context, path string, key string, out any) error {
	var raw json.RawMessage
	if err := c.client.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '[' {
		return json.Unmarshal(raw, out)
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	for _, k := range []string{key, "data", "results"} {
		if list, ok := wrapped[k]; ok {
			return json.Unmarshal(list, out)
		}
	}
	return fmt.Errorf("decode %s: no %q list in response", path, key)
}
