package transcribe

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTranscriber is a mock implementation of Transcriber.
type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

func TestTranscribeAll_OrderedResults(t *testing.T) {
	m := new(MockTranscriber)
	paths := []string{"/j/part_000.wav", "/j/part_001.wav", "/j/part_002.wav"}
	for i, p := range paths {
		// later segments answer first
		delay := time.Duration(len(paths)-i) * 10 * time.Millisecond
		m.On("Transcribe", mock.Anything, p).After(delay).Return(fmt.Sprintf("text %d", i), nil)
	}

	got, err := TranscribeAll(context.Background(), m, paths, FanOutOpts{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, tr := range got {
		assert.Equal(t, i, tr.Index)
		assert.Equal(t, paths[i], tr.Path)
		assert.Equal(t, fmt.Sprintf("text %d", i), tr.Text)
		assert.Empty(t, tr.Error)
	}
	assert.Equal(t, "text 0\ntext 1\ntext 2", JoinText(got))
	m.AssertExpectations(t)
}

func TestTranscribeAll_CollectsAllErrors(t *testing.T) {
	m := new(MockTranscriber)
	errA := errors.New("upstream timeout")
	errB := errors.New("invalid audio")
	m.On("Transcribe", mock.Anything, "/j/part_000.wav").Return("", errA)
	m.On("Transcribe", mock.Anything, "/j/part_001.wav").Return("fine", nil)
	m.On("Transcribe", mock.Anything, "/j/part_002.wav").Return("", errB)

	got, err := TranscribeAll(context.Background(), m, []string{"/j/part_000.wav", "/j/part_001.wav", "/j/part_002.wav"}, FanOutOpts{Concurrency: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)

	// every segment was attempted
	m.AssertNumberOfCalls(t, "Transcribe", 3)
	assert.Equal(t, "fine", got[1].Text)
	assert.Contains(t, got[0].Error, "upstream timeout")
	assert.Contains(t, got[2].Error, "part_002.wav")
	assert.Equal(t, "fine", JoinText(got))
}

type countingTranscriber struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (c *countingTranscriber) Transcribe(_ context.Context, path string) (string, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	return path, nil
}

func TestTranscribeAll_ConcurrencyLimit(t *testing.T) {
	ct := &countingTranscriber{}
	paths := make([]string, 8)
	for i := range paths {
		paths[i] = fmt.Sprintf("p%d", i)
	}

	got, err := TranscribeAll(context.Background(), ct, paths, FanOutOpts{Concurrency: 2})
	require.NoError(t, err)
	assert.Len(t, got, 8)
	assert.LessOrEqual(t, ct.peak.Load(), int32(2))
}

func TestTranscribeAll_Empty(t *testing.T) {
	got, err := TranscribeAll(context.Background(), new(MockTranscriber), nil, FanOutOpts{RatePerMin: 60})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTranscribeAll_CancelledContextWithRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := new(MockTranscriber)
	got, err := TranscribeAll(ctx, m, []string{"a", "b"}, FanOutOpts{RatePerMin: 1})
	require.Error(t, err)
	assert.Len(t, got, 2)
	m.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything)
}
