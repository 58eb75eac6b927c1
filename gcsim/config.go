package gcsim

import (
	"github.com/cockroachdb/errors"
)

// Config tunes the simulated workload.
type Config struct {
	// Markers is the number of concurrent marking workers.
	Markers int
	// Mutators is the number of goroutines allocating during marking.
	Mutators int
	// MutatorAllocs is the number of objects each mutator allocates per cycle.
	MutatorAllocs int
	// Survival is the probability an object survives a cycle.
	Survival float64
	// MidCycleDeaths is the probability a marked survivor dies before sweep.
	MidCycleDeaths float64
	// Seed makes survival choices reproducible.
	Seed uint64
}

// DefaultConfig is used when New is given a nil config.
var DefaultConfig = Config{
	Markers:        4,
	Mutators:       2,
	MutatorAllocs:  64,
	Survival:       0.5,
	MidCycleDeaths: 0.01,
	Seed:           1,
}

// Validate reports whether c is usable.
func (c Config) Validate() error {
	switch {
	case c.Markers < 1:
		return errors.Newf("gcsim: markers %d < 1", c.Markers)
	case c.Mutators < 0 || c.MutatorAllocs < 0:
		return errors.Newf("gcsim: negative mutator workload %d x %d", c.Mutators, c.MutatorAllocs)
	case c.Survival < 0 || c.Survival > 1:
		return errors.Newf("gcsim: survival %v outside [0, 1]", c.Survival)
	case c.MidCycleDeaths < 0 || c.MidCycleDeaths > 1:
		return errors.Newf("gcsim: mid-cycle deaths %v outside [0, 1]", c.MidCycleDeaths)
	}
	return nil
}
