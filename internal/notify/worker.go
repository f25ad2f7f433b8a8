// Package notify delivers withdrawal receipts out of band. Delivery runs as
// a river job so a slow or flaky webhook never blocks the withdrawal path.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/riverqueue/river"

	"github.com/harvestfi/rewardpool/internal/pool"
)

// ReceiptJobArgs carries one withdrawal receipt to deliver.
type ReceiptJobArgs struct {
	Receipt pool.Receipt `json:"receipt"`
}

func (ReceiptJobArgs) Kind() string { return "withdrawal_receipt" }

// ReceiptWorker posts receipts to a webhook, or just logs them when no
// webhook is configured.
type ReceiptWorker struct {
	river.WorkerDefaults[ReceiptJobArgs]
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewReceiptWorker returns a worker delivering to webhookURL; empty means
// log-only.
func NewReceiptWorker(webhookURL string, logger *slog.Logger) *ReceiptWorker {
	return &ReceiptWorker{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

func (w *ReceiptWorker) Work(ctx context.Context, job *river.Job[ReceiptJobArgs]) error {
	receipt := job.Args.Receipt

	if w.webhookURL == "" {
		w.logger.Info("withdrawal receipt",
			"farmer", receipt.Farmer, "total", receipt.Total,
			"farmer_amount", receipt.FarmerAmount, "fee", receipt.Fee, "nonce", receipt.Nonce)
		return nil
	}

	body, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build receipt request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver receipt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("receipt webhook returned status %d", resp.StatusCode)
	}
	return nil
}
