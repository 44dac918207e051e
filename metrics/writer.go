package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// IterationRecord is one row of a training run's ledger.
type IterationRecord struct {
	Iteration     int
	Episodes      int
	Examples      int
	CorpusSize    int
	CorpusBatches int
	FullSearches  int
	FastSearches  int
	CandidateWins int
	IncumbentWins int
	Draws         int
	Accepted      bool
	Duration      time.Duration
}

// Writer records a training run under its checkpoint directory: the resolved
// configuration as YAML and one CSV row per completed iteration.
type Writer struct {
	baseDir string
}

func NewWriter(baseDir string) (*Writer, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	return &Writer{baseDir: baseDir}, nil
}

// WriteConfig snapshots the resolved run configuration so the experiment can
// be reconstructed later.
func (w *Writer) WriteConfig(config any) error {
	buf, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal run config: %w", err)
	}
	path := filepath.Join(w.baseDir, "config.yaml")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("failed to write run config: %w", err)
	}
	return nil
}

// AppendIteration appends one record to iterations.csv, writing the header
// first when the file is new.
func (w *Writer) AppendIteration(record IterationRecord) error {
	path := filepath.Join(w.baseDir, "iterations.csv")
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open iteration records file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	if fresh {
		header := []string{
			"iteration", "episodes", "examples", "corpus_size", "corpus_batches",
			"full_searches", "fast_searches",
			"candidate_wins", "incumbent_wins", "draws", "accepted", "duration",
		}
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("failed to write iteration records header: %w", err)
		}
	}

	row := []string{
		strconv.Itoa(record.Iteration),
		strconv.Itoa(record.Episodes),
		strconv.Itoa(record.Examples),
		strconv.Itoa(record.CorpusSize),
		strconv.Itoa(record.CorpusBatches),
		strconv.Itoa(record.FullSearches),
		strconv.Itoa(record.FastSearches),
		strconv.Itoa(record.CandidateWins),
		strconv.Itoa(record.IncumbentWins),
		strconv.Itoa(record.Draws),
		strconv.FormatBool(record.Accepted),
		record.Duration.String(),
	}
	if err := writer.Write(row); err != nil {
		return fmt.Errorf("failed to write iteration record row: %w", err)
	}

	writer.Flush()
	return writer.Error()
}
