package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// exampleRow is the on-disk shape of one training example.
type exampleRow struct {
	Iteration int64     `parquet:"iteration"`
	Encoding  []float64 `parquet:"encoding"`
	Policy    []float64 `parquet:"policy"`
	Value     float64   `parquet:"value"`
}

// Save writes the retained examples to a zstd-compressed parquet file. The
// write goes through a temp file and an atomic rename, so a crash mid-write
// leaves any previous file intact.
func (c *Corpus) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create corpus dir: %w", err)
		}
	}

	rows := make([]exampleRow, 0, c.total)
	for _, b := range c.batches {
		for _, ex := range b.Examples {
			rows = append(rows, exampleRow{
				Iteration: int64(b.Iteration),
				Encoding:  ex.Encoding,
				Policy:    ex.Policy,
				Value:     ex.Value,
			})
		}
	}

	tmp := path + ".tmp"
	_ = os.Remove(tmp)
	if err := parquet.WriteFile(tmp, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	); err != nil {
		return fmt.Errorf("write corpus parquet: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize corpus parquet: %w", err)
	}
	return nil
}

// Load replaces the corpus contents with the examples persisted at path,
// regrouped into their original iteration batches, and re-applies the
// retention policy under the receiver's limits.
func (c *Corpus) Load(path string) error {
	rows, err := parquet.ReadFile[exampleRow](path)
	if err != nil {
		return fmt.Errorf("read corpus parquet: %w", err)
	}

	grouped := make(map[int][]Example)
	for _, row := range rows {
		iter := int(row.Iteration)
		grouped[iter] = append(grouped[iter], Example{
			Encoding:  row.Encoding,
			Policy:    row.Policy,
			Value:     row.Value,
			Iteration: iter,
		})
	}

	iterations := make([]int, 0, len(grouped))
	for iter := range grouped {
		iterations = append(iterations, iter)
	}
	sort.Ints(iterations)

	c.batches = c.batches[:0]
	c.total = 0
	for _, iter := range iterations {
		c.batches = append(c.batches, Batch{Iteration: iter, Examples: grouped[iter]})
		c.total += len(grouped[iter])
	}
	c.enforce()
	return nil
}
