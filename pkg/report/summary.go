package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/picogrid/fragment-simulations/pkg/potential"
)

// Summary is the machine-readable record of one run
type Summary struct {
	Metadata SummaryMetadata   `yaml:"metadata" json:"metadata"`
	Status   string            `yaml:"status" json:"status"`
	Energy   *potential.Energy `yaml:"energy,omitempty" json:"energy,omitempty"`
	Metrics  []Metric          `yaml:"metrics" json:"metrics"`
	Events   []Event           `yaml:"events" json:"events"`
}

// SummaryMetadata identifies the run
type SummaryMetadata struct {
	RunID       string    `yaml:"run_id" json:"run_id"`
	RunType     string    `yaml:"run_type" json:"run_type"`
	Input       string    `yaml:"input,omitempty" json:"input,omitempty"`
	GeneratedAt time.Time `yaml:"generated_at" json:"generated_at"`
	Start       time.Time `yaml:"start" json:"start"`
	End         time.Time `yaml:"end" json:"end"`
	Duration    string    `yaml:"duration" json:"duration"`
	Version     string    `yaml:"version" json:"version"`
}

// Summarize builds the summary of the run recorded by r.
func (r *Recorder) Summarize(input, version string) *Summary {
	r.mu.RLock()
	start, end := r.startTime, r.endTime
	var final *potential.Energy
	if r.energy != nil {
		en := *r.energy
		final = &en
	}
	r.mu.RUnlock()
	if end.IsZero() {
		end = time.Now()
	}

	return &Summary{
		Metadata: SummaryMetadata{
			RunID:       r.runID.String(),
			RunType:     r.runType,
			Input:       input,
			GeneratedAt: time.Now(),
			Start:       start,
			End:         end,
			Duration:    formatDuration(end.Sub(start)),
			Version:     version,
		},
		Status:  r.Status(),
		Energy:  final,
		Metrics: r.Metrics(),
		Events:  r.Events(),
	}
}

// Save writes the summary as JSON when path ends in .json and as YAML
// otherwise. A trailing .zst compresses the output with zstd.
func (s *Summary) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	name := path
	compressed := strings.EqualFold(filepath.Ext(name), zstdExt)
	if compressed {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		data, err = json.MarshalIndent(s, "", "  ")
	default:
		data, err = yaml.Marshal(s)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}

	if compressed {
		if data, err = compress(data); err != nil {
			return fmt.Errorf("failed to compress run summary: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run summary: %w", err)
	}
	return nil
}

// LoadSummary reads a summary written by Save.
func LoadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run summary: %w", err)
	}

	name := path
	if strings.EqualFold(filepath.Ext(name), zstdExt) {
		name = strings.TrimSuffix(name, filepath.Ext(name))
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decompress run summary: %w", err)
		}
		defer zr.Close()
		if data, err = io.ReadAll(zr); err != nil {
			return nil, fmt.Errorf("failed to decompress run summary: %w", err)
		}
	}

	var s Summary
	if strings.EqualFold(filepath.Ext(name), ".json") {
		err = json.Unmarshal(data, &s)
	} else {
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse run summary: %w", err)
	}
	return &s, nil
}

const zstdExt = ".zst"

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Microsecond).String()
	}
	return d.Round(time.Millisecond).String()
}
