// Package menta turns sensor samplers into updaters: closures that read the
// exact readings a decision needs.
//
// A sampler is one of three shapes. A sequence sampler returns every channel
// at once, an indexed sampler reads one channel by index, and a direct
// sampler returns a single packed value whose bits are the channels.
// SamplerUsage picks a sampler and the channel indexes to keep.
package menta

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyUsage   = errors.New("menta: empty sampler usage list")
	ErrSamplerIndex = errors.New("menta: sampler index out of range")
	ErrNoDataIndex  = errors.New("menta: indexed sampler needs at least one data index")
	ErrDataIndex    = errors.New("menta: negative data index")
	ErrNilSampler   = errors.New("menta: sampler has no function")
)

// SamplerKind tells the three sampler shapes apart.
type SamplerKind int

const (
	SequenceSampler SamplerKind = iota
	IndexedSampler
	DirectSampler
)

func (k SamplerKind) String() string {
	switch k {
	case SequenceSampler:
		return "sequence"
	case IndexedSampler:
		return "indexed"
	case DirectSampler:
		return "direct"
	default:
		return fmt.Sprintf("SamplerKind(%d)", int(k))
	}
}

// Sampler reads raw sensor data. Build one with Sequence, Indexed or Direct.
type Sampler struct {
	kind     SamplerKind
	sequence func() []float64
	indexed  func(int) float64
	direct   func() float64
}

// Sequence wraps a sampler returning all channels at once.
func Sequence(f func() []float64) Sampler { return Sampler{kind: SequenceSampler, sequence: f} }

// Indexed wraps a sampler reading one channel at a time.
func Indexed(f func(int) float64) Sampler { return Sampler{kind: IndexedSampler, indexed: f} }

// Direct wraps a sampler returning one packed value.
func Direct(f func() float64) Sampler { return Sampler{kind: DirectSampler, direct: f} }

func (s Sampler) Kind() SamplerKind { return s.kind }

func (s Sampler) valid() bool {
	switch s.kind {
	case SequenceSampler:
		return s.sequence != nil
	case IndexedSampler:
		return s.indexed != nil
	case DirectSampler:
		return s.direct != nil
	}
	return false
}

// SamplerUsage selects a sampler and the data indexes read from it.
type SamplerUsage struct {
	Sampler     int   `yaml:"sampler" toml:"sampler"`
	DataIndexes []int `yaml:"indexes" toml:"indexes"`
}

// Usage is shorthand for a SamplerUsage literal.
func Usage(sampler int, indexes ...int) SamplerUsage {
	return SamplerUsage{Sampler: sampler, DataIndexes: indexes}
}

// Updater returns either a single reading or a sequence of readings.
type Updater struct {
	single   func() float64
	sequence func() []float64
}

// IsSequence reports whether the updater yields several readings.
func (u Updater) IsSequence() bool { return u.sequence != nil }

// Value reads a single updater. A sequence updater yields its first reading,
// or NaN when the sequence is empty.
func (u Updater) Value() float64 {
	if u.single != nil {
		return u.single()
	}
	if u.sequence != nil {
		if vs := u.sequence(); len(vs) > 0 {
			return vs[0]
		}
	}
	return math.NaN()
}

// Values reads the updater as a sequence. A single updater yields one
// reading.
func (u Updater) Values() []float64 {
	if u.sequence != nil {
		return u.sequence()
	}
	if u.single != nil {
		return []float64{u.single()}
	}
	return nil
}

// Menta holds the registered samplers.
type Menta struct {
	samplers []Sampler
	log      zerolog.Logger
}

// Option configures a Menta.
type Option func(*Menta)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Menta) { m.log = l }
}

// New registers samplers in index order.
func New(samplers []Sampler, opts ...Option) *Menta {
	m := &Menta{
		samplers: append([]Sampler(nil), samplers...),
		log:      log.Logger.With().Str("component", "menta").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddSampler appends a sampler and returns its index.
func (m *Menta) AddSampler(s Sampler) int {
	m.samplers = append(m.samplers, s)
	return len(m.samplers) - 1
}

// Samplers returns the number of registered samplers.
func (m *Menta) Samplers() int { return len(m.samplers) }

// ConstructUpdater resolves usages into one updater. A single usage keeps
// its own shape; several usages produce a sequence updater that
// concatenates their readings in usage order.
func (m *Menta) ConstructUpdater(usages ...SamplerUsage) (Updater, error) {
	if len(usages) == 0 {
		m.log.Error().Msg("cannot resolve an empty usage list")
		return Updater{}, ErrEmptyUsage
	}
	parts := make([]Updater, 0, len(usages))
	for i, u := range usages {
		up, err := m.resolve(u)
		if err != nil {
			m.log.Error().Err(err).Int("usage", i).Int("sampler", u.Sampler).Ints("indexes", u.DataIndexes).Msg("cannot resolve sampler usage")
			return Updater{}, fmt.Errorf("usage %d: %w", i, err)
		}
		parts = append(parts, up)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return Updater{sequence: func() []float64 {
		var out []float64
		for _, p := range parts {
			out = append(out, p.Values()...)
		}
		return out
	}}, nil
}

func (m *Menta) resolve(u SamplerUsage) (Updater, error) {
	if u.Sampler < 0 || u.Sampler >= len(m.samplers) {
		return Updater{}, fmt.Errorf("%d of %d: %w", u.Sampler, len(m.samplers), ErrSamplerIndex)
	}
	for _, i := range u.DataIndexes {
		if i < 0 {
			return Updater{}, fmt.Errorf("%d: %w", i, ErrDataIndex)
		}
	}
	s := m.samplers[u.Sampler]
	if !s.valid() {
		return Updater{}, fmt.Errorf("sampler %d: %w", u.Sampler, ErrNilSampler)
	}
	indexes := append([]int(nil), u.DataIndexes...)

	switch s.kind {
	case SequenceSampler:
		return m.resolveSequence(s.sequence, indexes), nil
	case IndexedSampler:
		return resolveIndexed(s.indexed, indexes)
	default:
		return resolveDirect(s.direct, indexes), nil
	}
}

func (m *Menta) resolveSequence(f func() []float64, indexes []int) Updater {
	pick := func(data []float64, i int) float64 {
		if i >= len(data) {
			m.log.Warn().Int("index", i).Int("len", len(data)).Msg("data index beyond sampled sequence")
			return math.NaN()
		}
		return data[i]
	}
	switch len(indexes) {
	case 0:
		return Updater{sequence: f}
	case 1:
		i := indexes[0]
		return Updater{single: func() float64 { return pick(f(), i) }}
	default:
		return Updater{sequence: func() []float64 {
			data := f()
			out := make([]float64, len(indexes))
			for n, i := range indexes {
				out[n] = pick(data, i)
			}
			return out
		}}
	}
}

func resolveIndexed(f func(int) float64, indexes []int) (Updater, error) {
	switch len(indexes) {
	case 0:
		return Updater{}, ErrNoDataIndex
	case 1:
		i := indexes[0]
		return Updater{single: func() float64 { return f(i) }}, nil
	default:
		return Updater{sequence: func() []float64 {
			out := make([]float64, len(indexes))
			for n, i := range indexes {
				out[n] = f(i)
			}
			return out
		}}, nil
	}
}

// Bit extracts bit i of the integer part of v.
func Bit(v float64, i int) float64 {
	if i >= 64 {
		i = 63
	}
	return float64((int64(v) >> uint(i)) & 1)
}

func resolveDirect(f func() float64, indexes []int) Updater {
	switch len(indexes) {
	case 0:
		return Updater{single: f}
	case 1:
		i := indexes[0]
		return Updater{single: func() float64 { return Bit(f(), i) }}
	default:
		return Updater{sequence: func() []float64 {
			v := f()
			out := make([]float64, len(indexes))
			for n, i := range indexes {
				out[n] = Bit(v, i)
			}
			return out
		}}
	}
}
