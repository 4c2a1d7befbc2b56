// Package telemetry collects best-effort accelerator readings.
package telemetry

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"asrd/pkg/types"
)

// DefaultTimeout bounds a single nvidia-smi invocation.
const DefaultTimeout = 5 * time.Second

// ErrUnavailable is returned when no accelerator reading could be taken.
var ErrUnavailable = errors.New("gpu telemetry unavailable")

var queryArgs = []string{
	"--query-gpu=index,name,memory.used,memory.total,utilization.gpu,temperature.gpu",
	"--format=csv,noheader,nounits",
}

// Collector returns one record per visible accelerator.
type Collector interface {
	Collect(ctx context.Context) ([]types.GPUInfo, error)
}

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// NvidiaSMI queries nvidia-smi.
type NvidiaSMI struct {
	// Bin defaults to "nvidia-smi" on PATH.
	Bin     string
	Timeout time.Duration
	Run     Runner
}

// NewNvidiaSMI returns a collector with default binary and timeout.
func NewNvidiaSMI(timeout time.Duration) *NvidiaSMI {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &NvidiaSMI{Bin: "nvidia-smi", Timeout: timeout, Run: execRunner}
}

// Available reports whether the nvidia-smi binary can be found.
func (n *NvidiaSMI) Available() bool {
	_, err := exec.LookPath(n.bin())
	return err == nil
}

func (n *NvidiaSMI) bin() string {
	if n.Bin == "" {
		return "nvidia-smi"
	}
	return n.Bin
}

// Collect runs nvidia-smi with a short timeout and parses its CSV output.
func (n *NvidiaSMI) Collect(ctx context.Context) ([]types.GPUInfo, error) {
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	run := n.Run
	if run == nil {
		run = execRunner
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	out, err := run(ctx, n.bin(), queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	gpus, err := Parse(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(gpus) == 0 {
		return nil, ErrUnavailable
	}
	return gpus, nil
}

// Parse decodes nvidia-smi csv,noheader,nounits output. Rows with fewer than
// six columns or non-numeric values ("[N/A]") are skipped.
func Parse(out []byte) ([]types.GPUInfo, error) {
	r := csv.NewReader(bytes.NewReader(out))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	var gpus []types.GPUInfo
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return gpus, err
		}
		if len(rec) < 6 {
			continue
		}
		nums := make([]int, 0, 5)
		ok := true
		for _, i := range []int{0, 2, 3, 4, 5} {
			v, err := strconv.Atoi(strings.TrimSpace(rec[i]))
			if err != nil {
				ok = false
				break
			}
			nums = append(nums, v)
		}
		if !ok {
			continue
		}
		gpus = append(gpus, types.GPUInfo{
			ID:                 nums[0],
			Name:               strings.TrimSpace(rec[1]),
			MemoryUsedMB:       nums[1],
			MemoryTotalMB:      nums[2],
			UtilizationPercent: nums[3],
			TemperatureC:       nums[4],
		})
	}
	return gpus, nil
}
