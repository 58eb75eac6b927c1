package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/extable/codeptr"
	"github.com/joshuapare/extable/gcsim"
	"github.com/joshuapare/extable/internal/vmem"
	"github.com/joshuapare/extable/table"
)

var (
	stressObjects        int
	stressCycles         int
	stressMarkers        int
	stressMutators       int
	stressAllocs         int
	stressSurvival       float64
	stressDeaths         float64
	stressSeed           uint64
	stressSegmentEntries uint32
	stressMinFreeRatio   float64
	stressNoCompaction   bool
	stressHeap           bool
	stressMap            bool
)

func init() {
	cmd := newStressCmd()
	addWorkloadFlags(cmd)
	cmd.Flags().IntVar(&stressCycles, "cycles", 10, "Number of GC cycles to run")
	cmd.Flags().BoolVar(&stressMap, "map", false, "Print the segment occupancy map after the run")
	rootCmd.AddCommand(cmd)
}

// addWorkloadFlags binds the table and simulation flags shared by stress and
// watch.
func addWorkloadFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&stressObjects, "objects", 20000, "Objects allocated before the first cycle")
	cmd.Flags().IntVar(&stressMarkers, "markers", gcsim.DefaultConfig.Markers, "Concurrent marking workers")
	cmd.Flags().IntVar(&stressMutators, "mutators", gcsim.DefaultConfig.Mutators, "Goroutines allocating during marking")
	cmd.Flags().IntVar(&stressAllocs, "allocs", gcsim.DefaultConfig.MutatorAllocs, "Allocations per mutator per cycle")
	cmd.Flags().Float64Var(&stressSurvival, "survival", gcsim.DefaultConfig.Survival, "Probability an object survives a cycle")
	cmd.Flags().Float64Var(&stressDeaths, "deaths", gcsim.DefaultConfig.MidCycleDeaths, "Probability a marked object dies before sweep")
	cmd.Flags().Uint64Var(&stressSeed, "seed", gcsim.DefaultConfig.Seed, "Random seed")
	cmd.Flags().Uint32Var(&stressSegmentEntries, "segment-entries", 1024, "Entries per segment")
	cmd.Flags().Float64Var(&stressMinFreeRatio, "min-free-ratio", table.DefaultMinFreeRatio, "Free ratio that triggers compaction")
	cmd.Flags().BoolVar(&stressNoCompaction, "no-compaction", false, "Never start compaction")
	cmd.Flags().BoolVar(&stressHeap, "heap", false, "Back the table with heap memory instead of a mapping")
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run simulated GC cycles against a code pointer table",
		Long: `The stress command fills a code pointer table with objects and runs
garbage collection cycles over it. Each cycle marks survivors from several
goroutines while mutators allocate, then sweeps and, when the space is
fragmented enough, compacts it. Every cycle checks that no handle lost its
content and that the table's freelist is intact.

Example:
  eptctl stress
  eptctl stress --objects 100000 --cycles 50 --survival 0.3
  eptctl stress --segment-entries 64 --map
  eptctl stress --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runStress(ctx)
		},
	}
	return cmd
}

type stressResult struct {
	Reports     []gcsim.CycleReport  `json:"reports"`
	Table       table.TableStats     `json:"table"`
	Space       table.SpaceStats     `json:"space"`
	Occupancy   []table.SegmentUsage `json:"occupancy,omitempty"`
	Cycles      uint64               `json:"cycles"`
	Compacted   uint64               `json:"compacted"`
	Aborted     uint64               `json:"aborted"`
	Evacuated   uint64               `json:"evacuated"`
	Freed       uint64               `json:"freed"`
	Released    uint64               `json:"segments_released"`
	Fingerprint uint64               `json:"fingerprint"`
}

func runStress(ctx context.Context) error {
	w, err := newWorkload()
	if err != nil {
		return err
	}
	defer w.Close()
	tbl, space, heap := w.tbl, w.space, w.heap

	res := stressResult{}
	if !jsonOut {
		printInfo("%s\n", styled(headerStyle, fmt.Sprintf("%-6s %9s %9s %9s %9s %9s %9s  %-8s %9s %9s",
			"cycle", "objects", "died", "new", "segments", "free", "threshold", "outcome", "evacuated", "released")))
	}
	for range stressCycles {
		report, err := heap.Cycle(ctx)
		if err != nil {
			return fmt.Errorf("cycle %d: %w", report.Cycle, err)
		}
		res.Reports = append(res.Reports, report)
		if !jsonOut {
			printCycle(report)
		}
	}

	counters := heap.Counters()
	res.Table = tbl.Stats()
	res.Space = space.Stats()
	res.Cycles = counters.Cycles.Load()
	res.Compacted = counters.Compactions.Load()
	res.Aborted = counters.Aborted.Load()
	res.Evacuated = counters.Evacuated.Load()
	res.Freed = counters.Freed.Load()
	res.Released = counters.SegmentsReleased.Load()
	res.Fingerprint = tbl.Fingerprint(space)
	if stressMap {
		res.Occupancy = tbl.Occupancy(space)
	}

	if jsonOut {
		return printJSON(res)
	}
	printStressSummary(res)
	return nil
}

// workload is a populated table and the heap driving it.
type workload struct {
	tbl   *codeptr.Table
	space *table.Space
	heap  *gcsim.Heap
}

// newWorkload builds a table and heap from the workload flags and allocates
// the initial objects.
func newWorkload() (*workload, error) {
	cfg := table.DefaultConfig
	cfg.SegmentEntries = stressSegmentEntries
	cfg.Compaction.Disabled = stressNoCompaction
	cfg.Compaction.MinFreeRatio = stressMinFreeRatio

	var store table.Store
	if stressHeap {
		store = vmem.NewHeap()
	}

	tbl, err := codeptr.New(store, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	w := &workload{tbl: tbl, space: table.NewSpace("stress")}

	w.heap, err = gcsim.New(tbl, w.space, &gcsim.Config{
		Markers:        stressMarkers,
		Mutators:       stressMutators,
		MutatorAllocs:  stressAllocs,
		Survival:       stressSurvival,
		MidCycleDeaths: stressDeaths,
		Seed:           stressSeed,
	})
	if err != nil {
		w.Close()
		return nil, err
	}

	printVerbose("Allocating %s objects\n", formatNumber(int64(stressObjects)))
	if err := w.heap.Allocate(stressObjects); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to allocate objects: %w", err)
	}
	return w, nil
}

// Close releases the space and the table.
func (w *workload) Close() error {
	w.tbl.TearDownSpace(w.space)
	return w.tbl.Close()
}

func printCycle(r gcsim.CycleReport) {
	outcome := renderOutcome(r.Compaction.Outcome)
	// Pad on the plain text so ANSI escapes do not skew the columns.
	if pad := 8 - len(r.Compaction.Outcome.String()); pad > 0 {
		outcome += strings.Repeat(" ", pad)
	}
	printInfo("%-6d %9s %9s %9s %9d %9s %9s  %s %9d %9d\n",
		r.Cycle,
		formatNumber(int64(r.Objects)),
		formatNumber(int64(r.Died)),
		formatNumber(int64(r.Allocated)),
		r.Segments,
		formatNumber(int64(r.Free)),
		formatThreshold(r.Compaction.Threshold),
		outcome,
		r.Compaction.Evacuated,
		r.Compaction.SegmentsReleased,
	)
}

func printStressSummary(res stressResult) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", styled(headerStyle, "Summary"))
	fmt.Fprintf(&b, "  Cycles:            %s\n", formatNumber(int64(res.Cycles)))
	fmt.Fprintf(&b, "  Compactions:       %s succeeded, %s aborted\n",
		formatNumber(int64(res.Compacted)), formatNumber(int64(res.Aborted)))
	fmt.Fprintf(&b, "  Entries evacuated: %s\n", formatNumber(int64(res.Evacuated)))
	fmt.Fprintf(&b, "  Entries freed:     %s\n", formatNumber(int64(res.Freed)))
	fmt.Fprintf(&b, "  Segments released: %s\n", formatNumber(int64(res.Released)))
	fmt.Fprintf(&b, "  Segments in use:   %d of %d\n", res.Table.SegmentsInUse, res.Table.MaxSegments)
	fmt.Fprintf(&b, "  Free entries:      %s of %s (%s)\n",
		formatNumber(int64(res.Space.Free)), formatNumber(int64(res.Space.Capacity)),
		formatPercent(res.Space.Free, res.Space.Capacity))
	fmt.Fprintf(&b, "  Committed:         %s\n", formatBytes(int64(res.Table.CommittedBytes)))
	fmt.Fprintf(&b, "  Fingerprint:       %016x", res.Fingerprint)
	printInfo("\n%s\n", boxed(b.String()))

	if res.Occupancy != nil {
		printInfo("\n%s\n%s\n", styled(headerStyle, "Occupancy"), renderOccupancy(res.Occupancy))
	}
}
