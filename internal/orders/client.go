package orders

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/lacomanda/storefront/internal/transport"
)

// Client fetches order pages and performs staff mutations. It holds no page
// state of its own.
type Client struct {
	api *transport.Client
	lg  *zap.Logger
}

// NewClient creates an orders Client over the API transport.
func NewClient(api *transport.Client, lg *zap.Logger) *Client {
	return &Client{api: api, lg: lg.Named("orders")}
}

// FetchPage fetches one page of orders. A non-empty cursor is requested
// verbatim and the filter is ignored, since the cursor already encodes it.
func (c *Client) FetchPage(ctx context.Context, f Filter, cursor string) (Page, error) {
	ref := cursor
	if ref == "" {
		ref = "orders/"
		if q := f.Values().Encode(); q != "" {
			ref += "?" + q
		}
	}

	var page Page
	if err := c.api.Get(ctx, ref, &page); err != nil {
		return Page{}, errors.Wrap(err, "fetch orders page")
	}
	if page.Results == nil {
		page.Results = []Summary{}
	}
	return page, nil
}

// myOrdersResponse is the device-scoped listing envelope, which differs from
// the paginated admin listing.
type myOrdersResponse struct {
	Success bool      `json:"success"`
	Count   int       `json:"count"`
	Orders  []Summary `json:"orders"`
}

// MyOrders fetches all orders for the current device. The device id header
// is attached by the transport middleware.
func (c *Client) MyOrders(ctx context.Context) ([]Summary, error) {
	var resp myOrdersResponse
	if err := c.api.Get(ctx, "orders/my-orders/", &resp); err != nil {
		return nil, errors.Wrap(err, "fetch my orders")
	}
	if resp.Orders == nil {
		resp.Orders = []Summary{}
	}
	return resp.Orders, nil
}

// orderEnvelope wraps single-order responses.
type orderEnvelope struct {
	Success bool  `json:"success"`
	Order   Order `json:"order"`
}

// Get fetches a single order by id.
func (c *Client) Get(ctx context.Context, id int64) (*Order, error) {
	var resp orderEnvelope
	if err := c.api.Get(ctx, fmt.Sprintf("orders/%d/", id), &resp); err != nil {
		return nil, errors.Wrapf(err, "fetch order %d", id)
	}
	return &resp.Order, nil
}

// UpdateStatus moves an order to a new status and returns the updated
// record.
func (c *Client) UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error) {
	body := map[string]string{"status": string(status)}
	var resp orderEnvelope
	if err := c.api.Put(ctx, fmt.Sprintf("orders/%d/status/", id), body, &resp); err != nil {
		return nil, errors.Wrapf(err, "update order %d status", id)
	}
	c.lg.Info("order status updated",
		zap.Int64("order_id", id),
		zap.String("status", string(status)),
	)
	return &resp.Order, nil
}

// Delete removes an order.
func (c *Client) Delete(ctx context.Context, id int64) error {
	if err := c.api.Delete(ctx, fmt.Sprintf("orders/%d/", id), nil); err != nil {
		return errors.Wrapf(err, "delete order %d", id)
	}
	return nil
}
