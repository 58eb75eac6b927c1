package table

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/extable/internal/format"
)

// DefaultMinFreeRatio is the free fraction a space needs before compaction
// is considered.
const DefaultMinFreeRatio = 0.10

// CompactionConfig controls when a space compacts.
type CompactionConfig struct {
	// Disabled turns StartCompactingIfNeeded into a no-op.
	Disabled bool

	// MinFreeRatio is the minimum free/capacity ratio for compaction. Zero
	// is honored: the space then compacts whenever its free entries cover an
	// evacuation area. DefaultConfig carries DefaultMinFreeRatio.
	MinFreeRatio float64
}

// Config parameterizes a Table.
type Config struct {
	// SegmentEntries is the number of entries per segment. Zero derives it
	// from format.DefaultSegmentSize and the entry size.
	SegmentEntries uint32

	// MaxEntries bounds the reservation. Zero means format.MaxEntries.
	// Must be a multiple of SegmentEntries.
	MaxEntries uint32

	Compaction CompactionConfig

	// Logger receives segment and compaction events. Nil uses logger.L.
	Logger *slog.Logger
}

// DefaultConfig is used when New is given a nil config.
var DefaultConfig = Config{
	Compaction: CompactionConfig{MinFreeRatio: DefaultMinFreeRatio},
}

// withDefaults fills the zero sizing fields for an entry of entrySize bytes.
func (c Config) withDefaults(entrySize int) Config {
	if c.SegmentEntries == 0 && entrySize > 0 {
		c.SegmentEntries = uint32(format.DefaultSegmentSize / entrySize)
	}
	if c.MaxEntries == 0 {
		c.MaxEntries = format.MaxEntries
		if c.SegmentEntries > 0 {
			c.MaxEntries -= c.MaxEntries % c.SegmentEntries
		}
	}
	return c
}

// Validate reports whether c describes a usable table.
func (c Config) Validate() error {
	switch {
	case c.SegmentEntries < 2:
		return errors.Wrapf(ErrBadConfig, "segment entries %d < 2", c.SegmentEntries)
	case c.MaxEntries > format.MaxEntries:
		return errors.Wrapf(ErrBadConfig, "max entries %d exceeds handle range %d", c.MaxEntries, format.MaxEntries)
	case c.MaxEntries%c.SegmentEntries != 0:
		return errors.Wrapf(ErrBadConfig, "max entries %d not a multiple of segment entries %d", c.MaxEntries, c.SegmentEntries)
	case c.MaxEntries/c.SegmentEntries < 2:
		return errors.Wrapf(ErrBadConfig, "max entries %d leaves no segment after the null segment", c.MaxEntries)
	case c.Compaction.MinFreeRatio < 0 || c.Compaction.MinFreeRatio > 1:
		return errors.Wrapf(ErrBadConfig, "min free ratio %v outside [0, 1]", c.Compaction.MinFreeRatio)
	}
	return nil
}
