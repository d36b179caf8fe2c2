package mailer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultBatchSize is the number of recipients dispatched before pausing.
const DefaultBatchSize = 50

// RecipientError records a single failed delivery.
type RecipientError struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

// Summary aggregates the outcome of a bulk send.
type Summary struct {
	Total        int              `json:"total"`
	SuccessCount int              `json:"successCount"`
	ErrorCount   int              `json:"errorCount"`
	Errors       []RecipientError `json:"errors"`
}

// BatchSender fans a message out to many recipients in fixed-size groups.
// A failed recipient is recorded and the remaining recipients are still attempted.
type BatchSender struct {
	sender    Sender
	batchSize int
	delay     time.Duration
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewBatchSender constructs a BatchSender.
func NewBatchSender(sender Sender, batchSize int, delay time.Duration, logger *zap.Logger) *BatchSender {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if delay < 0 {
		delay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchSender{sender: sender, batchSize: batchSize, delay: delay, logger: logger, sleep: sleepCtx}
}

// Send delivers a single message through the underlying sender.
func (b *BatchSender) Send(ctx context.Context, msg Message) error {
	return b.sender.Send(ctx, msg)
}

// SendBulk builds one message per recipient and sends them batch by batch.
// If ctx is cancelled, the recipients not yet attempted are reported as failures.
func (b *BatchSender) SendBulk(ctx context.Context, recipients []string, build func(recipient string) Message) Summary {
	summary := Summary{Total: len(recipients), Errors: []RecipientError{}}
	for start := 0; start < len(recipients); start += b.batchSize {
		if start > 0 && b.delay > 0 {
			if err := b.sleep(ctx, b.delay); err != nil {
				b.failRemaining(&summary, recipients[start:], err)
				return summary
			}
		}
		end := start + b.batchSize
		if end > len(recipients) {
			end = len(recipients)
		}
		for i, recipient := range recipients[start:end] {
			if err := ctx.Err(); err != nil {
				b.failRemaining(&summary, recipients[start+i:], err)
				return summary
			}
			if err := b.sender.Send(ctx, build(recipient)); err != nil {
				b.logger.Warn("bulk email delivery failed", zap.String("to", recipient), zap.Error(err))
				summary.ErrorCount++
				summary.Errors = append(summary.Errors, RecipientError{Email: recipient, Error: err.Error()})
				continue
			}
			summary.SuccessCount++
		}
	}
	b.logger.Info("bulk email finished",
		zap.Int("total", summary.Total),
		zap.Int("success", summary.SuccessCount),
		zap.Int("failed", summary.ErrorCount),
	)
	return summary
}

func (b *BatchSender) failRemaining(summary *Summary, remaining []string, err error) {
	for _, recipient := range remaining {
		summary.ErrorCount++
		summary.Errors = append(summary.Errors, RecipientError{Email: recipient, Error: err.Error()})
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
