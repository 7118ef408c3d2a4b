package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPurchaseOrderCreated notifies the requestor that an order was committed.
	TaskPurchaseOrderCreated = "purchase_order:created"
	// TaskSessionsCleanup prunes expired session rows and stale idempotency keys.
	TaskSessionsCleanup = "sessions:cleanup"
)

// PurchaseOrderCreatedPayload describes a committed purchase order.
type PurchaseOrderCreatedPayload struct {
	ID             string    `json:"id"`
	Number         string    `json:"number"`
	RequestorEmail string    `json:"requestor_email"`
	Purpose        string    `json:"purpose"`
	ItemCount      int       `json:"item_count"`
	Subtotal       string    `json:"subtotal"`
	VAT            string    `json:"vat"`
	Total          string    `json:"total"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewPurchaseOrderCreatedTask constructs an Asynq task. The task id is the
// purchase order number so a retried enqueue does not send twice.
func NewPurchaseOrderCreatedTask(payload PurchaseOrderCreatedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPurchaseOrderCreated, data,
		asynq.Queue(QueueDefault),
		asynq.TaskID(TaskPurchaseOrderCreated+":"+payload.Number),
		asynq.MaxRetry(5),
	), nil
}

// SessionsCleanupPayload configures the cleanup run.
type SessionsCleanupPayload struct {
	IdempotencyRetention time.Duration `json:"idempotency_retention"`
}

// NewSessionsCleanupTask builds the cleanup task registered with the scheduler.
func NewSessionsCleanupTask(idempotencyRetention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(SessionsCleanupPayload{IdempotencyRetention: idempotencyRetention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionsCleanup, data, asynq.Queue(QueueDefault)), nil
}
