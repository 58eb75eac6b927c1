package gcsim

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/extable/codeptr"
	"github.com/joshuapare/extable/internal/logger"
	"github.com/joshuapare/extable/table"
)

// Object is a sandboxed object holding one code pointer handle.
type Object struct {
	Field      table.HandleField
	Code       table.Address
	Entrypoint table.Address
	Tag        codeptr.Tag
}

// Heap is a set of live objects backed by one space of a code pointer table.
// A Heap is driven from one goroutine; Cycle starts its own workers.
type Heap struct {
	cfg   Config
	tbl   *codeptr.Table
	space *table.Space
	log   *slog.Logger
	rng   *rand.Rand

	objects  []*Object
	nextCode table.Address
	cycle    int
	counters table.Counters
}

// CycleReport summarizes one Cycle.
type CycleReport struct {
	Cycle     int `json:"cycle"`
	Survivors int `json:"survivors"`
	Died      int `json:"died"`
	Allocated int `json:"allocated"`
	Objects   int `json:"objects"`
	Segments  int `json:"segments"`
	Free      int `json:"free"`

	Compaction table.CompactionResult `json:"compaction"`
}

// New returns an empty heap. A nil config uses DefaultConfig.
func New(tbl *codeptr.Table, space *table.Space, cfg *Config) (*Heap, error) {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Heap{
		cfg:      *cfg,
		tbl:      tbl,
		space:    space,
		log:      logger.L,
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		nextCode: 0x1000_0000,
	}, nil
}

// Objects returns the number of live objects.
func (h *Heap) Objects() int { return len(h.objects) }

// Counters returns the accumulated compaction counters.
func (h *Heap) Counters() *table.Counters { return &h.counters }

// Space returns the space the heap allocates from.
func (h *Heap) Space() *table.Space { return h.space }

// Allocate creates n objects outside of a GC cycle.
func (h *Heap) Allocate(n int) error {
	for range n {
		o, err := h.newObject(h.nextCodeAddress(), codeptr.Tags()[h.rng.IntN(len(codeptr.Tags()))])
		if err != nil {
			return err
		}
		h.objects = append(h.objects, o)
	}
	return nil
}

func (h *Heap) nextCodeAddress() table.Address {
	a := h.nextCode
	h.nextCode += 0x40
	return a
}

func (h *Heap) newObject(code table.Address, tag codeptr.Tag) (*Object, error) {
	o := &Object{Code: code, Entrypoint: code + 0x20, Tag: tag}
	handle, err := h.tbl.AllocateAndInitializeEntry(h.space, o.Code, o.Entrypoint, o.Tag)
	if err != nil {
		return nil, err
	}
	o.Field.Store(handle)
	return o, nil
}

// Cycle runs one full GC cycle.
func (h *Heap) Cycle(ctx context.Context) (CycleReport, error) {
	if err := ctx.Err(); err != nil {
		return CycleReport{}, err
	}
	h.cycle++
	report := CycleReport{Cycle: h.cycle}

	survivors := make([]*Object, 0, len(h.objects))
	for _, o := range h.objects {
		if h.rng.Float64() < h.cfg.Survival {
			survivors = append(survivors, o)
		}
	}
	report.Died = len(h.objects) - len(survivors)

	// Codes for mutator allocations are drawn up front so the cycle stays
	// reproducible regardless of goroutine scheduling.
	codes := make([][]table.Address, h.cfg.Mutators)
	for m := range codes {
		codes[m] = make([]table.Address, h.cfg.MutatorAllocs)
		for i := range codes[m] {
			codes[m][i] = h.nextCodeAddress()
		}
	}
	dying := make([]bool, len(survivors))
	for i := range dying {
		dying[i] = h.rng.Float64() < h.cfg.MidCycleDeaths
	}

	h.space.SetAllocatingBlack(true)
	h.tbl.StartCompactingIfNeeded(h.space)
	threshold := h.space.Threshold()

	allocated, err := h.mark(survivors, codes)
	h.space.SetAllocatingBlack(false)
	if err != nil {
		// Sweep anyway so the space leaves the compacting state.
		h.tbl.FinishCompaction(h.space, &h.counters)
		return report, err
	}

	// Marked objects that die before sweep stay live as floating garbage
	// until the next cycle; their fields must not be rewritten.
	kept := survivors[:0]
	for i, o := range survivors {
		if dying[i] {
			h.space.ReleaseField(&o.Field)
			report.Died++
			continue
		}
		kept = append(kept, o)
	}
	survivors = kept

	report.Compaction = h.tbl.FinishCompaction(h.space, &h.counters)
	h.objects = append(survivors, allocated...)
	report.Survivors = len(survivors)
	report.Allocated = len(allocated)
	report.Objects = len(h.objects)
	report.Segments = len(h.space.Segments())
	report.Free = h.space.FreeCount()

	if err := h.check(report.Compaction, threshold); err != nil {
		return report, err
	}
	h.log.Debug("gcsim: cycle done", "cycle", h.cycle, "objects", report.Objects,
		"outcome", report.Compaction.Outcome.String(), "segments", report.Segments)
	return report, nil
}

// mark runs the marking workers and the mutators concurrently.
func (h *Heap) mark(survivors []*Object, codes [][]table.Address) ([]*Object, error) {
	var wg sync.WaitGroup
	markers := h.cfg.Markers
	for w := range markers {
		wg.Go(func() {
			// Workers start at different offsets and walk the whole set, so
			// most objects are marked by several workers.
			n := len(survivors)
			for i := range n {
				o := survivors[(i+w*n/markers)%n]
				h.tbl.Mark(h.space, o.Field.Load(), &o.Field)
			}
		})
	}

	allocated := make([][]*Object, len(codes))
	errs := make([]error, len(codes))
	for m, batch := range codes {
		wg.Go(func() {
			for i, code := range batch {
				o, err := h.newObject(code, codeptr.Tags()[i%len(codeptr.Tags())])
				if err != nil {
					errs[m] = err
					return
				}
				allocated[m] = append(allocated[m], o)
			}
		})
	}
	wg.Wait()

	var out []*Object
	for _, batch := range allocated {
		out = append(out, batch...)
	}
	for _, err := range errs {
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// check compares every object with the content it was created with.
func (h *Heap) check(res table.CompactionResult, threshold uint32) error {
	for _, o := range h.objects {
		handle := o.Field.Load()
		if code := h.tbl.GetCodeObject(handle); code != o.Code {
			return errors.Wrapf(ErrLostContent, "handle %#x: code %#x, want %#x", uint32(handle), code, o.Code)
		}
		if ep := h.tbl.GetEntrypoint(handle, o.Tag); ep != o.Entrypoint {
			return errors.Wrapf(ErrLostContent, "handle %#x: entrypoint %#x, want %#x", uint32(handle), ep, o.Entrypoint)
		}
		if res.Outcome == table.OutcomeSuccess && table.HandleIndex(handle) >= threshold {
			return errors.Wrapf(ErrNotCompacted, "handle %#x at or above %d", uint32(handle), threshold)
		}
	}
	return h.tbl.Verify(h.space)
}
