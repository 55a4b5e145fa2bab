package payout

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"farmfuzion/internal/logger"
	"farmfuzion/internal/metrics"
)

const queueKey = "withdrawals"

// Provider is the external payout dependency. The core only cares about
// pass/fail/timeout.
type Provider interface {
	Payout(ctx context.Context, destination, method string, amountCents int64) error
}

// Ledger is the slice of the wallet repository the confirmer needs.
type Ledger interface {
	CompleteWithdrawal(ctx context.Context, txID int, ok bool) error
}

// Job is one queued withdrawal awaiting external confirmation.
type Job struct {
	TxID        int       `json:"tx_id"`
	FarmerID    int       `json:"farmer_id"`
	AmountCents int64     `json:"amount_cents"`
	Destination string    `json:"destination"`
	Method      string    `json:"method"`
	Tries       int       `json:"tries"`
	Created     time.Time `json:"created"`
}

type Service struct {
	redis    *redis.Client
	provider Provider
	ledger   Ledger
}

func New(redisAddr string, provider Provider, ledger Ledger) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		provider: provider,
		ledger:   ledger,
	}
}

// NewWithClient is used by tests to inject a mock redis client.
func NewWithClient(client *redis.Client, provider Provider, ledger Ledger) *Service {
	return &Service{redis: client, provider: provider, ledger: ledger}
}

func (s *Service) Close() error {
	return s.redis.Close()
}

func (s *Service) EnqueueWithdrawal(ctx context.Context, txID, farmerID int, amountCents int64, destination, method string) error {
	job := Job{
		TxID:        txID,
		FarmerID:    farmerID,
		AmountCents: amountCents,
		Destination: destination,
		Method:      method,
		Created:     time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, string(data)).Err(); err != nil {
		return err
	}

	metrics.WithdrawalQueueLength.Inc()
	logger.Infof("Withdrawal tx=%d queued for confirmation", txID)
	return nil
}

// Start runs the confirmation loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	logger.Info("Withdrawal confirmer started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Withdrawal confirmer stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	metrics.WithdrawalQueueLength.Dec()

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad withdrawal job data: %v", err)
		return
	}

	job.Tries++
	logger.Infof("Confirming withdrawal tx=%d (attempt %d)", job.TxID, job.Tries)

	payoutCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = s.provider.Payout(payoutCtx, job.Destination, job.Method, job.AmountCents)
	cancel()

	if err != nil {
		logger.Errorf("Payout failed for tx=%d: %v", job.TxID, err)

		if job.Tries < 3 {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, string(data))
			metrics.WithdrawalQueueLength.Inc()
			return
		}

		// Terminal provider failure: mark failed and return the funds.
		if err := s.ledger.CompleteWithdrawal(context.Background(), job.TxID, false); err != nil {
			logger.Errorf("Failed to mark withdrawal tx=%d failed: %v", job.TxID, err)
		}
		metrics.RecordLedgerTransaction("withdraw", "failed")
		return
	}

	if err := s.ledger.CompleteWithdrawal(context.Background(), job.TxID, true); err != nil {
		logger.Errorf("Failed to complete withdrawal tx=%d: %v", job.TxID, err)
		return
	}

	metrics.RecordLedgerTransaction("withdraw", "completed")
	logger.Infof("Withdrawal tx=%d confirmed", job.TxID)
}
