package vp9lf

import (
	"fmt"
	"sync"

	"github.com/deepteams/vp9lf/internal/dsp"
	"github.com/pion/logging"
)

// State is the lifecycle position of a Filter.
type State uint8

const (
	Uninitialized State = iota
	TablesBuilt
	LevelsResolved
	Filtering
	Done
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case TablesBuilt:
		return "tables-built"
	case LevelsResolved:
		return "levels-resolved"
	case Filtering:
		return "filtering"
	case Done:
		return "done"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Filter is the loop filter of one decoder context. It owns the limit tables
// and hands out one Plan per frame. Methods are safe for concurrent use, but
// a context filters one frame at a time.
type Filter struct {
	mu     sync.Mutex
	state  State
	tables *Tables
	epoch  uint64 // bumped whenever the tables are rebuilt

	kernel  dsp.Kernel
	workers int
	yOnly   bool
	log     logging.LeveledLogger
}

// New returns a Filter in the Uninitialized state.
func New(opts ...Option) (*Filter, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	k, err := dsp.KernelByName(o.kernelName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	if o.loggerFactory == nil {
		o.loggerFactory = logging.NewDefaultLoggerFactory()
	}
	f := &Filter{
		kernel:  k,
		workers: o.workers,
		yOnly:   o.yOnly,
		log:     o.loggerFactory.NewLogger("vp9lf"),
	}
	f.log.Debugf("filter created: kernel=%s workers=%d yOnly=%v", k.Name(), f.workers, f.yOnly)
	return f, nil
}

// State returns the current lifecycle state.
func (f *Filter) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Kernel returns the name of the edge kernel in use.
func (f *Filter) Kernel() string { return f.kernel.Name() }

// SetSharpness builds the tables, or rebuilds them when the sharpness
// differs from the current one. Plans prepared against the old tables can no
// longer be applied. The same sharpness again is a no-op.
func (f *Filter) SetSharpness(sharpness int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setSharpnessLocked(sharpness)
}

func (f *Filter) setSharpnessLocked(sharpness int) error {
	if f.state == Filtering {
		return fmt.Errorf("%w: tables rebuilt while filtering", ErrInconsistentState)
	}
	if sharpness < 0 || sharpness > MaxSharpness {
		return fmt.Errorf("%w: sharpness %d outside [0,%d]", ErrInvalidParameter, sharpness, MaxSharpness)
	}
	if f.tables == nil {
		t, err := NewTables(sharpness)
		if err != nil {
			return err
		}
		f.tables = t
		f.epoch++
		f.state = TablesBuilt
		f.log.Debugf("tables built: sharpness=%d", sharpness)
	} else if f.tables.Sharpness() != sharpness {
		if err := f.tables.Update(sharpness); err != nil {
			return err
		}
		f.epoch++
		f.state = TablesBuilt
		f.log.Debugf("tables rebuilt: sharpness=%d", sharpness)
	}
	// Nothing rebuilt: the state and outstanding plans stay as they are.
	return nil
}

// Tables returns the current tables, or nil before SetSharpness or Prepare.
// The returned tables must not be used across a sharpness change.
func (f *Filter) Tables() *Tables {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tables
}

// Prepare resolves the levels of one frame, building or rebuilding the
// tables first when cfg.Sharpness requires it.
func (f *Filter) Prepare(cfg LevelConfig) (*Plan, error) {
	lv, err := ResolveLevels(cfg)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.setSharpnessLocked(cfg.Sharpness); err != nil {
		return nil, err
	}
	p := newPlan(f, f.tables, lv, f.epoch)
	f.state = LevelsResolved
	f.log.Debugf("plan prepared: base=%d sharpness=%d deltas=%v segmentation=%v",
		cfg.BaseLevel, cfg.Sharpness, cfg.DeltasEnabled, cfg.Segmentation.Enabled)
	return p, nil
}

// begin moves the filter into Filtering for p.
func (f *Filter) begin(p *Plan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case p.applied:
		return fmt.Errorf("%w: plan already applied", ErrInconsistentState)
	case p.epoch != f.epoch:
		return fmt.Errorf("%w: tables rebuilt since plan was prepared", ErrInconsistentState)
	case f.state == Filtering:
		return fmt.Errorf("%w: another frame is being filtered", ErrInconsistentState)
	}
	p.applied = true
	f.state = Filtering
	return nil
}

// finish moves the filter into Done.
func (f *Filter) finish() {
	f.mu.Lock()
	f.state = Done
	f.mu.Unlock()
}
