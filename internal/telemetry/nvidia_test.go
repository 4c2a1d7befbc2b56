package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSMI = `0, NVIDIA GeForce RTX 4090, 5120, 24564, 12, 48
1, NVIDIA A100-SXM4-80GB, 1, 81920, 0, 33
`

func TestParse(t *testing.T) {
	gpus, err := Parse([]byte(sampleSMI))
	require.NoError(t, err)
	require.Len(t, gpus, 2)
	assert.Equal(t, 0, gpus[0].ID)
	assert.Equal(t, "NVIDIA GeForce RTX 4090", gpus[0].Name)
	assert.Equal(t, 5120, gpus[0].MemoryUsedMB)
	assert.Equal(t, 24564, gpus[0].MemoryTotalMB)
	assert.Equal(t, 12, gpus[0].UtilizationPercent)
	assert.Equal(t, 48, gpus[0].TemperatureC)
	assert.Equal(t, "NVIDIA A100-SXM4-80GB", gpus[1].Name)
}

func TestParseSkipsIncompleteRows(t *testing.T) {
	gpus, err := Parse([]byte("0, Tesla T4, [N/A], 15360, 0, 40\n1, short\n2, Tesla T4, 10, 15360, 5, 41\n"))
	require.NoError(t, err)
	require.Len(t, gpus, 1)
	assert.Equal(t, 2, gpus[0].ID)
}

func TestCollectUsesRunner(t *testing.T) {
	var gotName string
	var gotArgs []string
	n := &NvidiaSMI{Bin: "nvidia-smi", Timeout: time.Second, Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline, "runner must get a deadline")
		return []byte(sampleSMI), nil
	}}
	gpus, err := n.Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, gpus, 2)
	assert.Equal(t, "nvidia-smi", gotName)
	assert.Equal(t, queryArgs, gotArgs)
}

func TestCollectFailureIsUnavailable(t *testing.T) {
	n := &NvidiaSMI{Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("exec: \"nvidia-smi\": executable file not found in $PATH")
	}}
	_, err := n.Collect(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)

	empty := &NvidiaSMI{Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("\n"), nil
	}}
	_, err = empty.Collect(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCollectTimesOut(t *testing.T) {
	n := &NvidiaSMI{Timeout: 20 * time.Millisecond, Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	start := time.Now()
	_, err := n.Collect(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}
