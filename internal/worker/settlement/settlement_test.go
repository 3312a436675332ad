package settlement

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"jvc-ledger/config"
	"jvc-ledger/internal/core/ports"
	"jvc-ledger/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestWorker_RunsBatchesUntilCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var calls atomic.Int32
	mockSettlement := mocks.NewMockSettlementService(ctrl)
	mockSettlement.EXPECT().RunBatch(gomock.Any(), 10, false).
		DoAndReturn(func(ctx context.Context, limit int, dryRun bool) (*ports.SettlementSummary, error) {
			calls.Add(1)
			return &ports.SettlementSummary{
				Processed: 1,
				TotalPaid: decimal.RequireFromString("9.00"),
			}, nil
		}).MinTimes(2)

	w := New(mockSettlement, config.SettlementConfig{
		BatchLimit: 10,
		Interval:   5 * time.Millisecond,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWorker_KeepsRunningAfterBatchError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var calls atomic.Int32
	mockSettlement := mocks.NewMockSettlementService(ctrl)
	mockSettlement.EXPECT().RunBatch(gomock.Any(), 10, false).
		DoAndReturn(func(ctx context.Context, limit int, dryRun bool) (*ports.SettlementSummary, error) {
			calls.Add(1)
			return nil, assert.AnError
		}).MinTimes(2)

	w := New(mockSettlement, config.SettlementConfig{
		BatchLimit: 10,
		Interval:   5 * time.Millisecond,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	<-done
}
