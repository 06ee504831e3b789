package initwfn

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// GlorotNConfig implements a configuration of the Glorot Normal
// initialization algorithm. Weights are drawn from a source seeded
// with Seed, so initialization is reproducible: two GlorotNConfigs
// with equal fields produce identical weights.
type GlorotNConfig struct {
	Gain float64
	Seed uint64
}

// NewGlorotN returns a new Glorot Normal weight initializer.
func NewGlorotN(gain float64, seed uint64) (*InitWFn, error) {
	config := GlorotNConfig{
		Gain: gain,
		Seed: seed,
	}

	return newInitWFn(config)
}

// Type returns the type of initialization algorithm described by the
// configuration.
func (g GlorotNConfig) Type() Type {
	return GlorotN
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn. Successive weight tensors draw from a single seeded
// stream, so the order in which layers are initialized matters.
func (g GlorotNConfig) Create() G.InitWFn {
	dist := distuv.Normal{
		Mu:    0.0,
		Sigma: 1.0,
		Src:   rand.NewSource(g.Seed),
	}

	return func(dt tensor.Dtype, s ...int) interface{} {
		if dt != tensor.Float64 {
			panic(fmt.Sprintf("create: invalid data type %v", dt))
		}

		fanIn, fanOut := fans(s...)
		std := g.Gain * math.Sqrt(2.0/float64(fanIn+fanOut))

		backing := make([]float64, tensor.Shape(s).TotalSize())
		for i := range backing {
			backing[i] = dist.Rand() * std
		}
		return backing
	}
}

// fans returns the fan-in and fan-out of a weight tensor shape
func fans(s ...int) (fanIn, fanOut int) {
	switch len(s) {
	case 0:
		return 1, 1

	case 1:
		return s[0], s[0]

	default:
		return s[0], s[1]
	}
}
