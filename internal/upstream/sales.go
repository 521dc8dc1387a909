package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"cafepos/backend/internal/domain"
)

const (
	salesPath          = "/auth/sales/"
	purchaseOrdersPath = "/auth/purchase_orders/"
)

type SalesClient struct {
	client *Client
}

func NewSalesClient(client *Client) *SalesClient {
	return &SalesClient{client: client}
}

func (c *SalesClient) SubmitSale(ctx context.Context, sale domain.SaleRequest) (domain.SaleReceipt, error) {
	var out domain.SaleReceipt
	err := c.client.do(ctx, http.MethodPost, salesPath, sale, &out)
	return out, err
}

func (c *SalesClient) GetOrder(ctx context.Context, orderID string) (domain.CompletedOrder, error) {
	var out domain.CompletedOrder
	err := c.client.do(ctx, http.MethodGet, purchaseOrdersPath+url.PathEscape(orderID), nil, &out)
	return out, err
}

func (c *SalesClient) SubmitRefund(ctx context.Context, orderID string, endpoint domain.RefundEndpoint, submission domain.RefundSubmission) (domain.RefundReceipt, error) {
	switch endpoint {
	case domain.RefundEndpointFull, domain.RefundEndpointPartial, domain.RefundEndpointFullToday, domain.RefundEndpointPartialToday:
	default:
		return domain.RefundReceipt{}, fmt.Errorf("unknown refund endpoint %q", endpoint)
	}
	var out domain.RefundReceipt
	path := purchaseOrdersPath + url.PathEscape(orderID) + "/" + string(endpoint)
	err := c.client.do(ctx, http.MethodPost, path, submission, &out)
	return out, err
}
