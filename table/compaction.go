package table

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/extable/internal/check"
)

// Outcome classifies how a cycle's compaction ended.
type Outcome uint8

const (
	// OutcomeNone means the space did not compact this cycle.
	OutcomeNone Outcome = iota
	// OutcomeSuccess means every marked entry above the threshold moved.
	OutcomeSuccess
	// OutcomeAborted means compaction stopped early. Evacuations made before
	// the abort were still resolved; no segment was released.
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeSuccess:
		return "success"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	for _, c := range []Outcome{OutcomeNone, OutcomeSuccess, OutcomeAborted} {
		if c.String() == string(text) {
			*o = c
			return nil
		}
	}
	return errors.Newf("table: unknown compaction outcome %q", text)
}

// CompactionResult describes one FinishCompaction call.
type CompactionResult struct {
	Space     string  `json:"space"`
	Outcome   Outcome `json:"outcome"`
	Threshold uint32  `json:"threshold"`

	Live             int `json:"live"`
	Evacuated        int `json:"evacuated"`
	Stale            int `json:"stale"`
	Freed            int `json:"freed"`
	SegmentsReleased int `json:"segments_released"`
}

// StatsSink receives the result of every FinishCompaction call.
type StatsSink interface {
	RecordCompaction(CompactionResult)
}

// Counters is a StatsSink that accumulates totals. Safe for concurrent use.
type Counters struct {
	Cycles           atomic.Uint64
	Compactions      atomic.Uint64
	Aborted          atomic.Uint64
	Evacuated        atomic.Uint64
	Freed            atomic.Uint64
	SegmentsReleased atomic.Uint64
}

// RecordCompaction implements StatsSink.
func (c *Counters) RecordCompaction(r CompactionResult) {
	c.Cycles.Add(1)
	switch r.Outcome {
	case OutcomeSuccess:
		c.Compactions.Add(1)
	case OutcomeAborted:
		c.Compactions.Add(1)
		c.Aborted.Add(1)
	}
	c.Evacuated.Add(uint64(r.Evacuated))
	c.Freed.Add(uint64(r.Freed))
	c.SegmentsReleased.Add(uint64(r.SegmentsReleased))
}

// StartCompactingIfNeeded decides at marking start whether s should shrink
// and, if so, sets its evacuation threshold. It reports whether compaction
// started.
//
// With F free entries out of capacity C in S segments of K entries, the space
// compacts when S >= 2, F/C reaches the configured minimum free ratio and
// N = ((F-1)/2)/K is at least 1. The N trailing segments (at most S-1) form
// the evacuation area. Keeping N*K below F/2 leaves more free entries below
// the threshold than there can be live entries above it.
func (t *Table[E, P]) StartCompactingIfNeeded(s *Space) bool {
	if t.cfg.Compaction.Disabled {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	check.That(s.threshold.Load() == NotCompacting, "table: space %q already compacting", s.name)

	segments := len(s.segments)
	if segments < 2 {
		return false
	}
	capacity := s.capacityLocked()
	free := int(s.freeCount.Load())
	if free <= 0 || float64(free)/float64(capacity) < t.cfg.Compaction.MinFreeRatio {
		return false
	}
	n := min(((free-1)/2)/int(t.cfg.SegmentEntries), segments-1)
	if n < 1 {
		return false
	}

	threshold := s.segments[segments-n].Start
	s.threshold.Store(threshold)
	t.log.Debug("table: compaction started", "space", s.name, "threshold", threshold,
		"evacuating", n, "segments", segments, "free", free, "capacity", capacity)
	return true
}

// StartCompactingAt starts compaction with an explicit threshold, which must
// be an index of s. Entries at or above it are evacuated as they are marked.
// Unlike StartCompactingIfNeeded it does not check that enough free entries
// exist below the threshold; if they run out the compaction aborts.
func (t *Table[E, P]) StartCompactingAt(s *Space, threshold uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.threshold.Load() != NotCompacting {
		return errors.Wrapf(ErrBadThreshold, "space %q already compacting", s.name)
	}
	if !s.containsLocked(threshold) {
		return errors.Wrapf(ErrBadThreshold, "index %d not in space %q", threshold, s.name)
	}
	s.threshold.Store(threshold)
	t.log.Debug("table: compaction started", "space", s.name, "threshold", threshold, "forced", true)
	return nil
}

func (t *Table[E, P]) abortCompacting(s *Space, reason string, index uint32) {
	if s.abortCompacting() {
		t.log.Info("table: compaction aborted", "space", s.name, "reason", reason,
			"index", index, "threshold", s.Threshold())
	}
}
