package evaluator

import (
	"errors"
	"fmt"
	"math"

	"azero/corpus"

	deep "github.com/patrikeh/go-deep"
	"github.com/patrikeh/go-deep/training"
)

// Arch selects the network layout. The choice is made once at construction;
// a snapshot never switches architecture at prediction time.
type Arch string

const (
	ArchCompact Arch = "compact"
	ArchWide    Arch = "wide"
)

func (a Arch) layout(actions int) ([]int, error) {
	switch a {
	case ArchCompact:
		return []int{128, 64, actions + 1}, nil
	case ArchWide:
		return []int{256, 128, 64, actions + 1}, nil
	default:
		return nil, fmt.Errorf("unknown architecture %q", a)
	}
}

// Hyperparams configure one training pass over the corpus.
type Hyperparams struct {
	LearnRate float64
	Momentum  float64
	Epochs    int
	BatchSize int
}

func DefaultHyperparams() Hyperparams {
	return Hyperparams{LearnRate: 0.0003, Momentum: 0.9, Epochs: 2, BatchSize: 32}
}

// Network is one evaluator snapshot: a feedforward net with actions+1 linear
// outputs, read as policy logits followed by a value head. Predict applies a
// legal-masked softmax to the logits and tanh to the value. Snapshots are
// never trained in place; Train fits a copy and returns it, so searches
// holding the incumbent keep a consistent view.
type Network struct {
	net     *deep.Neural
	arch    Arch
	inputs  int
	actions int
	version int
}

// NewNetwork builds a freshly initialized snapshot for the given encoding
// size and action space.
func NewNetwork(inputs, actions int, arch Arch) (*Network, error) {
	if inputs < 1 || actions < 1 {
		return nil, fmt.Errorf("invalid network shape: %d inputs, %d actions", inputs, actions)
	}
	layout, err := arch.layout(actions)
	if err != nil {
		return nil, err
	}
	net := deep.NewNeural(&deep.Config{
		Inputs:     inputs,
		Layout:     layout,
		Activation: deep.ActivationReLU,
		Mode:       deep.ModeRegression,
		Weight:     deep.NewNormal(0.1, 0.0),
		Bias:       true,
	})
	return &Network{net: net, arch: arch, inputs: inputs, actions: actions}, nil
}

// Version is the iteration number that produced this snapshot, zero for a
// fresh network.
func (n *Network) Version() int { return n.version }

// Predict returns the legal-masked policy distribution and the value estimate
// for one encoded state. Non-finite network output is an error, never
// coerced.
func (n *Network) Predict(encoding []float64, legal []bool) ([]float64, float64, error) {
	if len(encoding) != n.inputs {
		return nil, 0, fmt.Errorf("encoding has %d features, network expects %d", len(encoding), n.inputs)
	}
	if len(legal) != n.actions {
		return nil, 0, fmt.Errorf("legal mask has %d actions, network expects %d", len(legal), n.actions)
	}

	out := n.net.Predict(encoding)
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, 0, fmt.Errorf("non-finite network output at index %d", i)
		}
	}

	policy := maskedSoftmax(out[:n.actions], legal)
	value := math.Tanh(out[n.actions])
	return policy, value, nil
}

// maskedSoftmax exponentiates the legal logits, shifted by their max for
// stability, and normalizes. Illegal actions get exactly zero mass.
func maskedSoftmax(logits []float64, legal []bool) []float64 {
	maxLogit := math.Inf(-1)
	for a, l := range logits {
		if legal[a] && l > maxLogit {
			maxLogit = l
		}
	}

	policy := make([]float64, len(logits))
	sum := 0.0
	for a, l := range logits {
		if !legal[a] {
			continue
		}
		policy[a] = math.Exp(l - maxLogit)
		sum += policy[a]
	}
	for a := range policy {
		policy[a] /= sum
	}
	return policy
}

// Train fits a copy of the snapshot to the examples and returns it tagged with
// the given version. The receiver's weights are left untouched.
func (n *Network) Train(examples []corpus.Example, hp Hyperparams, version int) (*Network, error) {
	if len(examples) == 0 {
		return nil, errors.New("no training examples")
	}

	data := make(training.Examples, 0, len(examples))
	for i, ex := range examples {
		if len(ex.Encoding) != n.inputs || len(ex.Policy) != n.actions {
			return nil, fmt.Errorf("example %d has shape (%d, %d), network expects (%d, %d)",
				i, len(ex.Encoding), len(ex.Policy), n.inputs, n.actions)
		}
		response := make([]float64, n.actions+1)
		copy(response, ex.Policy)
		response[n.actions] = ex.Value
		data = append(data, training.Example{Input: ex.Encoding, Response: response})
	}
	data.Shuffle()

	candidate := n.clone()
	candidate.version = version

	trainer := training.NewBatchTrainer(
		training.NewSGD(hp.LearnRate, hp.Momentum, 0, false),
		0, hp.BatchSize, 1,
	)
	trainer.Train(candidate.net, data, nil, hp.Epochs)

	return candidate, nil
}

func (n *Network) clone() *Network {
	return &Network{
		net:     deep.FromDump(n.net.Dump()),
		arch:    n.arch,
		inputs:  n.inputs,
		actions: n.actions,
		version: n.version,
	}
}
