// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package recommend

import (
	"errors"
	"math"
	"math/rand"
)

// Training failures that mean "skip the overlay", not "fail the request".
var (
	ErrInsufficientData = errors.New("recommend: not enough training samples")
	ErrSingleClass      = errors.New("recommend: training samples have one label")
)

// Sample is one labeled training example. Label is 1 for like, 0 for dislike.
type Sample struct {
	X     []float64
	Label float64
}

// ClassifierConfig contains classifier hyperparameters.
type ClassifierConfig struct {
	// HiddenUnits is the width of the ReLU layer.
	// Default: 16.
	HiddenUnits int

	// Epochs is the number of passes over the samples.
	// Default: 200.
	Epochs int

	// LearningRate is the SGD step size.
	// Default: 0.05.
	LearningRate float64

	// MinSamples is the minimum number of samples to train at all.
	// Default: 4.
	MinSamples int

	// Seed for reproducible weight initialization and shuffling.
	Seed int64
}

// DefaultClassifierConfig returns default hyperparameters.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		HiddenUnits:  16,
		Epochs:       200,
		LearningRate: 0.05,
		MinSamples:   4,
		Seed:         42,
	}
}

// Classifier is a two-layer dense network:
//
//	h = relu(W1·x + b1)
//	p = sigmoid(w2·h + b2)
//
// trained with binary cross-entropy.
type Classifier struct {
	config ClassifierConfig
	inputs int

	w1 [][]float64 // hidden x inputs
	b1 []float64
	w2 []float64 // hidden
	b2 float64

	trained bool
}

// NewClassifier creates an untrained classifier for inputs features.
func NewClassifier(inputs int, cfg ClassifierConfig) *Classifier {
	def := DefaultClassifierConfig()
	if cfg.HiddenUnits <= 0 {
		cfg.HiddenUnits = def.HiddenUnits
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = def.Epochs
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = def.MinSamples
	}
	if cfg.Seed == 0 {
		cfg.Seed = def.Seed
	}
	return &Classifier{config: cfg, inputs: inputs}
}

// Trained reports whether Train succeeded.
func (c *Classifier) Trained() bool { return c.trained }

// Train fits the network to samples. It returns ErrInsufficientData or
// ErrSingleClass when the samples cannot support a model.
func (c *Classifier) Train(samples []Sample) error {
	if len(samples) < c.config.MinSamples {
		return ErrInsufficientData
	}
	pos := 0
	for _, s := range samples {
		if s.Label >= 0.5 {
			pos++
		}
	}
	if pos == 0 || pos == len(samples) {
		return ErrSingleClass
	}

	rng := rand.New(rand.NewSource(c.config.Seed)) //nolint:gosec // deterministic init, not security sensitive
	c.init(rng)

	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}
	hidden := make([]float64, c.config.HiddenUnits)
	pre := make([]float64, c.config.HiddenUnits)

	for epoch := 0; epoch < c.config.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, idx := range order {
			c.step(samples[idx], pre, hidden)
		}
	}
	c.trained = true
	return nil
}

// init uses He initialization for the ReLU layer and Xavier for the output.
func (c *Classifier) init(rng *rand.Rand) {
	h := c.config.HiddenUnits
	heStd := math.Sqrt(2.0 / float64(c.inputs))
	c.w1 = make([][]float64, h)
	for i := range c.w1 {
		c.w1[i] = make([]float64, c.inputs)
		for j := range c.w1[i] {
			c.w1[i][j] = rng.NormFloat64() * heStd
		}
	}
	c.b1 = make([]float64, h)

	xavier := math.Sqrt(1.0 / float64(h))
	c.w2 = make([]float64, h)
	for i := range c.w2 {
		c.w2[i] = rng.NormFloat64() * xavier
	}
	c.b2 = 0
}

// step runs one forward/backward pass and applies the SGD update.
func (c *Classifier) step(s Sample, pre, hidden []float64) {
	p := c.forward(s.X, pre, hidden)
	lr := c.config.LearningRate

	// dL/dz for sigmoid + cross-entropy.
	dOut := p - s.Label

	for i := range hidden {
		grad := dOut * c.w2[i]
		c.w2[i] -= lr * dOut * hidden[i]
		if pre[i] <= 0 {
			continue
		}
		for j, xj := range s.X {
			if xj != 0 {
				c.w1[i][j] -= lr * grad * xj
			}
		}
		c.b1[i] -= lr * grad
	}
	c.b2 -= lr * dOut
}

func (c *Classifier) forward(x, pre, hidden []float64) float64 {
	z := c.b2
	for i := range c.w1 {
		sum := c.b1[i]
		for j, xj := range x {
			if j < c.inputs {
				sum += c.w1[i][j] * xj
			}
		}
		pre[i] = sum
		hidden[i] = math.Max(0, sum)
		z += c.w2[i] * hidden[i]
	}
	return sigmoid(z)
}

// Predict returns the probability that x is liked. An untrained classifier
// returns 0.5.
func (c *Classifier) Predict(x []float64) float64 {
	if !c.trained {
		return 0.5
	}
	pre := make([]float64, c.config.HiddenUnits)
	hidden := make([]float64, c.config.HiddenUnits)
	return c.forward(x, pre, hidden)
}

func sigmoid(z float64) float64 {
	if z < -30 {
		return 0
	}
	if z > 30 {
		return 1
	}
	return 1 / (1 + math.Exp(-z))
}
