// Package seed provides an explicit, run-scoped seed context. Nothing in
// it touches process-global random state, so concurrent runs with their
// own contexts do not interfere.
package seed

import (
	"math/rand"
	randv2 "math/rand/v2"
	"sort"
)

// Source names a randomness source a run may draw from.
type Source string

const (
	MathRand   Source = "math/rand"
	MathRandV2 Source = "math/rand/v2"
	CryptoRand Source = "crypto/rand"
)

var allSources = []Source{MathRand, MathRandV2, CryptoRand}

const (
	reasonNoSeed     = "no seed provided"
	reasonCryptoRand = "crypto/rand reads from the operating system and cannot be seeded"
)

// Status is the seeding outcome for one source.
type Status struct {
	Seeded bool
	Reason string
}

// Context owns the seeded generators of a single run.
type Context struct {
	seed   int64
	rng    *rand.Rand
	rngV2  *randv2.Rand
	status map[Source]Status
}

// New seeds every source it can. Sources that cannot be seeded are
// recorded with a reason instead of failing.
func New(seed int64) *Context {
	c := &Context{
		seed:   seed,
		rng:    rand.New(rand.NewSource(seed)),
		rngV2:  randv2.New(randv2.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)),
		status: make(map[Source]Status, len(allSources)),
	}
	c.status[MathRand] = Status{Seeded: true}
	c.status[MathRandV2] = Status{Seeded: true}
	c.status[CryptoRand] = Status{Reason: reasonCryptoRand}
	return c
}

func (c *Context) Seed() int64 { return c.seed }

// Rand returns the run's math/rand generator. It is not safe for
// concurrent use.
func (c *Context) Rand() *rand.Rand { return c.rng }

// RandV2 returns the run's PCG-backed math/rand/v2 generator.
func (c *Context) RandV2() *randv2.Rand { return c.rngV2 }

// Status reports the outcome for src. A nil context reports every source
// as unseeded.
func (c *Context) Status(src Source) Status {
	if c == nil {
		return Status{Reason: reasonNoSeed}
	}
	st, ok := c.status[src]
	if !ok {
		return Status{Reason: "unknown source"}
	}
	return st
}

// Sources lists the known sources in a stable order.
func Sources() []Source {
	out := make([]Source, len(allSources))
	copy(out, allSources)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Report is the manifest view of a seed context.
type Report struct {
	Seed    *int64            `json:"seed"`
	Sources map[string]bool   `json:"sources"`
	Reasons map[string]string `json:"reasons,omitempty"`
}

// Report summarises the context. It is valid on a nil context.
func (c *Context) Report() Report {
	r := Report{Sources: make(map[string]bool, len(allSources))}
	if c != nil {
		s := c.seed
		r.Seed = &s
	}
	for _, src := range allSources {
		st := c.Status(src)
		r.Sources[string(src)] = st.Seeded
		if st.Reason != "" {
			if r.Reasons == nil {
				r.Reasons = make(map[string]string)
			}
			r.Reasons[string(src)] = st.Reason
		}
	}
	return r
}

// Seedable is implemented by systems that draw random numbers. The
// orchestrator hands them the run's context before integration starts.
type Seedable interface {
	SeedWith(c *Context)
}
