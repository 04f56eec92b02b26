package worker_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/sertantai/lrt-engine/internal/worker"
)

func TestPoolRunProcessesEveryName(t *testing.T) {
	pool := worker.New(arbor.NewLogger(), 3)

	names := []string{"UK_uksi_2024_1", "UK_uksi_2024_2", "UK_uksi_2024_3", "UK_uksi_2024_4"}
	var processed int64

	results := pool.Run(context.Background(), names, func(ctx context.Context, name string) error {
		atomic.AddInt64(&processed, 1)
		return nil
	})

	require.Len(t, results, len(names))
	assert.EqualValues(t, len(names), processed)
}

func TestPoolRunCapturesPerNameError(t *testing.T) {
	pool := worker.New(arbor.NewLogger(), 2)

	names := []string{"UK_uksi_2024_1", "UK_uksi_2024_2"}
	results := pool.Run(context.Background(), names, func(ctx context.Context, name string) error {
		if name == "UK_uksi_2024_2" {
			return fmt.Errorf("boom")
		}
		return nil
	})

	byName := map[string]error{}
	for _, r := range results {
		byName[r.Name] = r.Err
	}

	assert.NoError(t, byName["UK_uksi_2024_1"])
	assert.Error(t, byName["UK_uksi_2024_2"])
}

func TestPoolRunRecoversFromTaskPanic(t *testing.T) {
	pool := worker.New(arbor.NewLogger(), 2)

	names := []string{"UK_uksi_2024_1", "UK_uksi_2024_2"}
	results := pool.Run(context.Background(), names, func(ctx context.Context, name string) error {
		if name == "UK_uksi_2024_2" {
			panic("boom")
		}
		return nil
	})

	byName := map[string]error{}
	for _, r := range results {
		byName[r.Name] = r.Err
	}

	require.Len(t, results, len(names))
	assert.NoError(t, byName["UK_uksi_2024_1"])
	assert.Error(t, byName["UK_uksi_2024_2"])
}

func TestPoolNonPositiveWorkersDefaultsToOne(t *testing.T) {
	pool := worker.New(arbor.NewLogger(), 0)
	results := pool.Run(context.Background(), []string{"UK_uksi_2024_1"}, func(ctx context.Context, name string) error {
		return nil
	})
	assert.Len(t, results, 1)
}
