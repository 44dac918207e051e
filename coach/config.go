package coach

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries every tunable of the improvement cycle. Zero values are
// filled in by Normalize, including the settings derived from others.
type Config struct {
	NumIters  int           `yaml:"numIters"`
	TimeIters time.Duration `yaml:"timeIters"`
	NumEps    int           `yaml:"numEps"`

	NumMCTSSims    int     `yaml:"numMCTSSims"`
	RatioFullMCTS  int     `yaml:"ratioFullMCTS"`
	ProbFullMCTS   float64 `yaml:"probFullMCTS"`
	Cpuct          float64 `yaml:"cpuct"`
	DirichletAlpha float64 `yaml:"dirichletAlpha"`
	TempThreshold  int     `yaml:"tempThreshold"`
	ForcedPlayouts bool    `yaml:"forcedPlayouts"`
	MaxMoves       int     `yaml:"maxMoves"`

	NumItersHistory int `yaml:"numItersHistory"`
	MaxlenOfQueue   int `yaml:"maxlenOfQueue"`

	UpdateThreshold float64 `yaml:"updateThreshold"`
	ArenaCompare    int     `yaml:"arenaCompare"`
	ArenaSims       int     `yaml:"arenaSims"`

	LearnRate float64 `yaml:"learnRate"`
	Momentum  float64 `yaml:"momentum"`
	Epochs    int     `yaml:"epochs"`
	BatchSize int     `yaml:"batchSize"`

	Goroutines    int    `yaml:"goroutines"`
	CheckpointDir string `yaml:"checkpointDir"`
	Seed          uint64 `yaml:"seed"`
}

// DefaultConfig returns the standard training setup.
func DefaultConfig() Config {
	return Config{
		NumIters:        50,
		NumEps:          500,
		NumMCTSSims:     1600,
		RatioFullMCTS:   5,
		ProbFullMCTS:    0.25,
		Cpuct:           1.0,
		DirichletAlpha:  0.2,
		TempThreshold:   10,
		MaxMoves:        10000,
		NumItersHistory: 5,
		UpdateThreshold: 0.60,
		LearnRate:       0.0003,
		Momentum:        0.9,
		Epochs:          2,
		BatchSize:       32,
		Goroutines:      8,
		CheckpointDir:   "./temp",
	}
}

// Normalize fills in derived and defaulted settings:
//   - arena size scales with the confidence the self-play phase needs: 30
//     games when numEps < 500, 50 otherwise;
//   - the corpus ceiling targets roughly 2GB of examples split across the
//     retention window;
//   - a wall-clock budget switches the loop to an effectively unbounded
//     iteration count, terminated by the budget check between iterations.
func (c *Config) Normalize() {
	if c.ArenaCompare == 0 {
		if c.NumEps < 500 {
			c.ArenaCompare = 30
		} else {
			c.ArenaCompare = 50
		}
	}
	if c.ArenaSims == 0 {
		c.ArenaSims = c.NumMCTSSims
	}
	if c.NumItersHistory < 1 {
		c.NumItersHistory = 5
	}
	if c.MaxlenOfQueue == 0 {
		c.MaxlenOfQueue = int(2.5e6 / (1.2 * float64(c.NumItersHistory)))
	}
	if c.TimeIters > 0 {
		c.NumIters = 1000
	}
	if c.Goroutines < 1 {
		c.Goroutines = 1
	}
	if c.MaxMoves < 1 {
		c.MaxMoves = 10000
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	buf, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(buf, &config); err != nil {
		return config, fmt.Errorf("parse config: %w", err)
	}
	return config, nil
}
