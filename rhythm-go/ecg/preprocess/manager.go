package preprocess

import (
	"math"
	"math/rand"

	"github.com/rhythmlab/rhythmlab/rhythm-golib/errors"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/sigproc"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/workerpool"
)

// Manager applies the configured conditioning steps to multi-lead
// signals. It is stateless between calls apart from the rand source
// used for random ordering.
type Manager struct {
	ops     []op
	random  bool
	rng     *rand.Rand
	workers int
}

type op struct {
	name  string
	apply func(sig []float64, fs float64) ([]float64, float64, error)
}

// New builds a Manager from cfg. rng drives the random application
// order and may be nil when cfg.Random is unset.
func New(cfg Config, rng *rand.Rand) (*Manager, error) {
	if cfg.Random && rng == nil {
		return nil, errors.New("random step order needs a rand source")
	}
	m := &Manager{random: cfg.Random, rng: rng, workers: cfg.Workers}
	if c := cfg.BaselineRemove; c != nil {
		if c.Window1 <= 0 || c.Window2 <= 0 {
			return nil, errors.Errorf("baseline windows must be positive, got %g and %g", c.Window1, c.Window2)
		}
		win1, win2 := c.Window1, c.Window2
		m.ops = append(m.ops, op{OpBaselineRemove, func(sig []float64, fs float64) ([]float64, float64, error) {
			return sigproc.RemoveBaseline(sig, fs, win1, win2), fs, nil
		}})
	}
	if c := cfg.Bandpass; c != nil {
		if c.High <= c.Low {
			return nil, errors.Errorf("bandpass band [%g, %g] is empty", c.Low, c.High)
		}
		low, high, order := c.Low, c.High, c.Order
		m.ops = append(m.ops, op{OpBandpass, func(sig []float64, fs float64) ([]float64, float64, error) {
			out, err := sigproc.Bandpass(sig, fs, low, high, order)
			return out, fs, err
		}})
	}
	if c := cfg.Normalize; c != nil {
		method := c.Method
		if method == "" {
			method = MethodZScore
		}
		var norm func([]float64) []float64
		switch method {
		case MethodZScore:
			norm = sigproc.ZScore
		case MethodMinMax:
			norm = sigproc.MinMax
		default:
			return nil, errors.Errorf("unknown normalization method %q", method)
		}
		m.ops = append(m.ops, op{OpNormalize, func(sig []float64, fs float64) ([]float64, float64, error) {
			return norm(sig), fs, nil
		}})
	}
	if c := cfg.Resample; c != nil {
		if c.Fs <= 0 {
			return nil, errors.Errorf("resample frequency must be positive, got %g", c.Fs)
		}
		target := c.Fs
		m.ops = append(m.ops, op{OpResample, func(sig []float64, fs float64) ([]float64, float64, error) {
			num := int(math.Round(float64(len(sig)) * target / fs))
			return sigproc.Resample(sig, num), target, nil
		}})
	}
	return m, nil
}

// Empty reports whether no steps are configured.
func (m *Manager) Empty() bool {
	return len(m.ops) == 0
}

// Names returns the active step names in application order.
func (m *Manager) Names() []string {
	out := make([]string, len(m.ops))
	for i, o := range m.ops {
		out[i] = o.name
	}
	return out
}

// Rearrange reorders the steps. names must be a permutation of Names().
func (m *Manager) Rearrange(names []string) error {
	if len(names) != len(m.ops) {
		return errors.Errorf("got %d step names, have %d steps", len(names), len(m.ops))
	}
	byName := make(map[string]op, len(m.ops))
	for _, o := range m.ops {
		byName[o.name] = o
	}
	ordered := make([]op, 0, len(names))
	for _, name := range names {
		o, ok := byName[name]
		if !ok {
			return errors.Errorf("step %q is not configured", name)
		}
		ordered = append(ordered, o)
		delete(byName, name)
	}
	m.ops = ordered
	return nil
}

// Apply runs the conditioning steps over every lead of sig and returns
// the conditioned signal and its (possibly resampled) frequency. The
// input is never mutated.
func (m *Manager) Apply(sig [][]float64, fs float64) ([][]float64, float64, error) {
	out := make([][]float64, len(sig))
	if len(m.ops) == 0 {
		for i, lead := range sig {
			out[i] = append([]float64(nil), lead...)
		}
		return out, fs, nil
	}
	ops := m.ops
	if m.random {
		ops = append([]op(nil), m.ops...)
		m.rng.Shuffle(len(ops), func(i, j int) { ops[i], ops[j] = ops[j], ops[i] })
	}
	outFs := make([]float64, len(sig))
	apply := func(i int) error {
		lead := append([]float64(nil), sig[i]...)
		leadFs := fs
		var err error
		for _, o := range ops {
			lead, leadFs, err = o.apply(lead, leadFs)
			if err != nil {
				return errors.Wrapf(err, "applying %s to lead %d", o.name, i)
			}
		}
		out[i] = lead
		outFs[i] = leadFs
		return nil
	}
	if m.workers > 1 && len(sig) > 1 {
		jobs := make([]workerpool.Job, 0, len(sig))
		for i := range sig {
			i := i
			jobs = append(jobs, func() error { return apply(i) })
		}
		pool := workerpool.New(m.workers)
		defer pool.Stop()
		pool.Add(jobs)
		if err := pool.Wait(); err != nil {
			return nil, 0, err
		}
	} else {
		for i := range sig {
			if err := apply(i); err != nil {
				return nil, 0, err
			}
		}
	}
	if len(sig) == 0 {
		return out, fs, nil
	}
	return out, outFs[0], nil
}
