package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limp/internal/gateway/provider"
)

func newTestCallLog(t *testing.T) *CallLogStore {
	t.Helper()
	s, err := NewCallLogStore(filepath.Join(t.TempDir(), "calls.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCallLogRoundTrip(t *testing.T) {
	s := newTestCallLog(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)
	for i := 0; i < 3; i++ {
		err := s.RecordCall(ctx, provider.CallLog{
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			ProviderID: "stub:vision",
			User:       fmt.Sprintf("prompt %d", i),
			ImageCount: 1,
			Output:     `{"phase": "Flop"}`,
			Latency:    120 * time.Millisecond,
		})
		require.NoError(t, err)
	}

	records, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// newest first
	assert.Equal(t, "prompt 2", records[0].User)
	assert.Equal(t, "prompt 1", records[1].User)
	assert.Equal(t, "stub:vision", records[0].ProviderID)
	assert.Equal(t, int64(120), records[0].LatencyMS)
	assert.Empty(t, records[0].Error)
}

func TestCallLogRecordsErrors(t *testing.T) {
	s := newTestCallLog(t)
	ctx := context.Background()

	err := s.RecordCall(ctx, provider.CallLog{
		Timestamp:  time.Now(),
		ProviderID: "stub:text",
		User:       "who wins?",
		Err:        "model offline",
	})
	require.NoError(t, err)

	records, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "model offline", records[0].Error)
}

func TestCallLogClosed(t *testing.T) {
	s := newTestCallLog(t)
	require.NoError(t, s.Close())

	err := s.RecordCall(context.Background(), provider.CallLog{Timestamp: time.Now()})
	assert.Error(t, err)
	_, err = s.Recent(context.Background(), 5)
	assert.Error(t, err)
}
