package jobs

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/procureflow/procureflow/internal/purchasing"
)

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client submits jobs to the queue.
type Client struct {
	client taskEnqueuer
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueuePurchaseOrderCreated enqueues a creation notification.
func (c *Client) EnqueuePurchaseOrderCreated(ctx context.Context, payload PurchaseOrderCreatedPayload) (*asynq.TaskInfo, error) {
	task, err := NewPurchaseOrderCreatedTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// PurchaseOrderCreated implements purchasing.CreatedListener.
func (c *Client) PurchaseOrderCreated(ctx context.Context, evt purchasing.CreatedEvent) error {
	_, err := c.EnqueuePurchaseOrderCreated(ctx, PurchaseOrderCreatedPayload{
		ID:             evt.ID.String(),
		Number:         evt.Number,
		RequestorEmail: evt.RequestorEmail,
		Purpose:        evt.Purpose,
		ItemCount:      evt.ItemCount,
		Subtotal:       evt.Totals.Subtotal.StringFixed(2),
		VAT:            evt.Totals.VAT.StringFixed(2),
		Total:          evt.Totals.Total.StringFixed(2),
		CreatedAt:      evt.CreatedAt,
	})
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

var _ purchasing.CreatedListener = (*Client)(nil)
