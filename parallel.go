package vp9lf

import (
	"sync"
	"sync/atomic"
)

// stripSync publishes how many superblock columns each strip has finished
// in the horizontal pass. Waits use an atomic fast path and only take the
// lock when the data is not ready yet.
type stripSync struct {
	strips []stripState
}

// stripState is padded to a full cache line (64 bytes) to prevent false sharing.
type stripState struct {
	done    atomic.Int32
	waiters atomic.Int32
	mu      sync.Mutex
	cond    *sync.Cond
	_       [8]byte
}

func newStripSync(n int) *stripSync {
	ss := &stripSync{strips: make([]stripState, n)}
	for i := range ss.strips {
		ss.strips[i].cond = sync.NewCond(&ss.strips[i].mu)
	}
	return ss
}

// waitFor blocks until strip k has finished at least needed columns.
func (ss *stripSync) waitFor(k int, needed int32) {
	s := &ss.strips[k]
	if s.done.Load() >= needed {
		return
	}
	s.waiters.Add(1)
	s.mu.Lock()
	for s.done.Load() < needed {
		s.cond.Wait()
	}
	s.mu.Unlock()
	s.waiters.Add(-1)
}

// signal records that strip k has finished done columns.
func (ss *stripSync) signal(k int, done int32) {
	s := &ss.strips[k]
	s.done.Store(done)
	if s.waiters.Load() > 0 {
		s.mu.Lock()
		s.mu.Unlock()
		s.cond.Broadcast()
	}
}

// run filters mode-info rows [start, end) of the planes in two phases.
//
// Phase V: strips of one superblock row each are claimed by workers through
// an atomic counter and their vertical edges filtered. A vertical edge only
// touches pixels of its own rows, so strips are independent.
//
// Phase H: after a barrier, strips are claimed again and their horizontal
// edges filtered one superblock column at a time. The top edges of strip k
// rewrite the bottom rows of strip k-1, so strip k starts column sc only
// once strip k-1 has signalled it finished that column. Strips are claimed
// in increasing order, so the wait never cycles.
func (p *Plan) run(planes []plane, mi *ModeInfo, start, end int) {
	strips := (end - start + MiPerSuperblock - 1) / MiPerSuperblock
	sbCols := (mi.MiCols + MiPerSuperblock - 1) / MiPerSuperblock
	workers := min(p.f.workers, strips)

	stripRows := func(k int) (int, int) {
		lo := start + k*MiPerSuperblock
		return lo, min(lo+MiPerSuperblock, end)
	}
	vertical := func(k int) {
		lo, hi := stripRows(k)
		for i := range planes {
			pl := &planes[i]
			r0, r1 := pl.unitRows(lo, hi)
			for r := r0; r < r1; r++ {
				p.verticalRow(pl, mi, r)
			}
		}
	}
	horizontal := func(k int, ss *stripSync) {
		lo, hi := stripRows(k)
		for sc := 0; sc < sbCols; sc++ {
			if ss != nil && k > 0 {
				ss.waitFor(k-1, int32(sc+1))
			}
			for i := range planes {
				pl := &planes[i]
				r0, r1 := pl.unitRows(lo, hi)
				c0, c1 := pl.unitCols(sc)
				for r := r0; r < r1; r++ {
					p.horizontalRow(pl, mi, r, c0, c1)
				}
			}
			if ss != nil {
				ss.signal(k, int32(sc+1))
			}
		}
		p.f.log.Tracef("strip %d filtered (rows %d-%d)", k, lo, hi-1)
	}

	if workers <= 1 {
		for k := 0; k < strips; k++ {
			vertical(k)
		}
		for k := 0; k < strips; k++ {
			horizontal(k, nil)
		}
		return
	}

	var next atomic.Int32
	var wg sync.WaitGroup
	spawn := func(work func(k int)) {
		next.Store(0)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					k := int(next.Add(1) - 1)
					if k >= strips {
						return
					}
					work(k)
				}
			}()
		}
		wg.Wait()
	}

	spawn(vertical)
	ss := newStripSync(strips)
	spawn(func(k int) { horizontal(k, ss) })
}
