package table

import (
	"log/slog"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/extable/internal/buf"
	"github.com/joshuapare/extable/internal/check"
	"github.com/joshuapare/extable/internal/format"
	"github.com/joshuapare/extable/internal/logger"
	"github.com/joshuapare/extable/internal/vmem"
)

// Store supplies the table's backing memory. vmem.New returns the platform
// implementation.
type Store interface {
	Reserve(size int) ([]byte, error)
	Commit(off, size int) error
	Decommit(off, size int) error
	Granularity() int
	Close() error
}

// Table is a flat array of entries of type E, split into segments owned by
// spaces.
type Table[E any, P Entry[E]] struct {
	store Store
	log   *slog.Logger
	cfg   Config

	entries      []E
	entrySize    int
	segmentBytes int

	// mu guards the segment bookkeeping below.
	mu            sync.Mutex
	segmentUsed   []bool
	segmentsInUse int
}

// New reserves a table of E entries in store. A nil store uses vmem.New; a
// nil config uses DefaultConfig.
func New[E any, P Entry[E]](store Store, config *Config) (*Table[E, P], error) {
	if config == nil {
		config = &DefaultConfig
	}
	var zero E
	entrySize := int(unsafe.Sizeof(zero))
	cfg := config.withDefaults(entrySize)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		store = vmem.New()
	}

	segmentBytes := int(cfg.SegmentEntries) * entrySize
	g := store.Granularity()
	if !format.IsPowerOfTwo(g) {
		return nil, errors.Wrapf(ErrBadConfig, "store granularity %d is not a power of two", g)
	}
	if !format.IsAligned(segmentBytes, g) {
		return nil, errors.Wrapf(ErrBadConfig, "segment of %d bytes not a multiple of store granularity %d", segmentBytes, g)
	}
	size, ok := buf.SizeOf(int(cfg.MaxEntries), entrySize)
	if !ok {
		return nil, errors.Wrapf(ErrBadConfig, "reservation of %d entries overflows", cfg.MaxEntries)
	}
	mem, err := store.Reserve(size)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "table: reserve"), ErrOutOfMemory)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.L
	}

	t := &Table[E, P]{
		store:        store,
		log:          log,
		cfg:          cfg,
		entries:      unsafe.Slice((*E)(unsafe.Pointer(unsafe.SliceData(mem))), cfg.MaxEntries),
		entrySize:    entrySize,
		segmentBytes: segmentBytes,
		segmentUsed:  make([]bool, cfg.MaxEntries/cfg.SegmentEntries),
	}

	// Segment 0 holds the null entry. It stays committed and owned by no
	// space, so index 0 is never allocated.
	if err := store.Commit(0, segmentBytes); err != nil {
		_ = store.Close()
		return nil, errors.Mark(errors.Wrap(err, "table: commit null segment"), ErrOutOfMemory)
	}
	t.segmentUsed[0] = true
	t.segmentsInUse = 1
	return t, nil
}

// Close returns the reservation to the store. The table and every space that
// used it must not be used afterwards.
func (t *Table[E, P]) Close() error {
	t.entries = nil
	return t.store.Close()
}

// Config returns the effective configuration.
func (t *Table[E, P]) Config() Config { return t.cfg }

// SegmentEntries returns the number of entries per segment.
func (t *Table[E, P]) SegmentEntries() uint32 { return t.cfg.SegmentEntries }

// EntrySize returns the size of one entry in bytes.
func (t *Table[E, P]) EntrySize() int { return t.entrySize }

// At returns the entry at index. The index is trusted: it must come from a
// decoded handle or from the table itself.
func (t *Table[E, P]) At(index uint32) P {
	return P(&t.entries[index])
}

// Lookup returns the entry h refers to. The null handle, and the handle of
// index 0, resolve to the null entry, which reads as zero. A value that is
// not a handle panics.
func (t *Table[E, P]) Lookup(h Handle) P {
	if h == NullHandle {
		return P(&t.entries[format.NoEntry])
	}
	return P(&t.entries[t.index(h)])
}

// LookupForWrite is Lookup for updates. Writing through the null handle
// would give the null entry content, so it panics.
func (t *Table[E, P]) LookupForWrite(h Handle) P {
	check.That(h != NullHandle, "table: write through the null handle")
	index := t.index(h)
	check.That(index != format.NoEntry, "table: write to the null entry")
	return P(&t.entries[index])
}

func (t *Table[E, P]) index(h Handle) uint32 {
	index, ok := format.DecodeHandle(h)
	if !ok {
		check.Fail("table: %#x is not a handle", uint32(h))
	}
	if index >= uint32(len(t.entries)) {
		check.Fail("table: handle %#x out of range", uint32(h))
	}
	return index
}

// allocateSegment commits the lowest unused segment.
func (t *Table[E, P]) allocateSegment() (Segment, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := -1
	for i, used := range t.segmentUsed {
		if !used {
			n = i
			break
		}
	}
	if n < 0 {
		return Segment{}, errors.Wrapf(ErrOutOfMemory, "all %d segments in use", len(t.segmentUsed))
	}
	if err := t.store.Commit(n*t.segmentBytes, t.segmentBytes); err != nil {
		return Segment{}, errors.Mark(errors.Wrapf(err, "table: commit segment %d", n), ErrOutOfMemory)
	}
	t.segmentUsed[n] = true
	t.segmentsInUse++
	return Segment{Start: uint32(n) * t.cfg.SegmentEntries, Count: t.cfg.SegmentEntries}, nil
}

// releaseSegment decommits seg. The caller has already dropped it from its
// space.
func (t *Table[E, P]) releaseSegment(seg Segment) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := int(seg.Number())
	check.That(n > 0 && t.segmentUsed[n], "table: release of unused segment %d", n)
	if err := t.store.Decommit(n*t.segmentBytes, t.segmentBytes); err != nil {
		// The memory stays committed but unowned; the segment can still be
		// handed out again.
		t.log.Warn("table: decommit failed", "segment", n, "error", err)
	}
	t.segmentUsed[n] = false
	t.segmentsInUse--
}

// TearDownSpace releases every segment of s and leaves it empty. No entry
// of s may be used afterwards. Requires exclusive access.
func (t *Table[E, P]) TearDownSpace(s *Space) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, seg := range s.segments {
		t.releaseSegment(seg)
	}
	t.log.Debug("table: space torn down", "space", s.name, "segments", len(s.segments))
	s.segments = nil
	v, _ := unpackHead(s.freelistHead.Load())
	s.freelistHead.Store(packHead(v+1, format.NoEntry))
	s.freeCount.Store(0)
	s.threshold.Store(NotCompacting)
	s.resetEvacuations()
}

// IterateActiveEntriesIn calls fn for every live entry of s in index order.
// Free and evacuation entries are skipped. Requires exclusive access.
func (t *Table[E, P]) IterateActiveEntriesIn(s *Space, fn func(Handle, P)) {
	for _, seg := range s.Segments() {
		for i := seg.Start; i < seg.End(); i++ {
			e := P(&t.entries[i])
			if e.Word().IsLive() {
				fn(format.EncodeHandle(i), e)
			}
		}
	}
}
