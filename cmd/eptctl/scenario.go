package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/extable/codeptr"
	"github.com/joshuapare/extable/gcsim"
	"github.com/joshuapare/extable/internal/vmem"
	"github.com/joshuapare/extable/table"
)

// The scenario runs on two segments of eight entries after the null segment.
// Eight fillers occupy the first one and are freed, so it becomes the area
// evacuated entries move into.
const (
	scenarioSegmentEntries = 8
	scenarioMaxEntries     = 64
	scenarioObjects        = 8
	scenarioThreshold      = 20
)

// scenarioMarked lists the objects still reachable at marking time.
var scenarioMarked = []int{0, 1, 6, 7, 8}

func init() {
	rootCmd.AddCommand(newScenarioCmd())
}

func newScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Replay a small compaction step by step",
		Long: `The scenario command allocates nine code pointer entries in a tiny
table, frees two of them, compacts the space with a fixed threshold and
shows where every surviving handle ends up.

Example:
  eptctl scenario
  eptctl scenario --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario()
		},
	}
	return cmd
}

// scenarioObject is one row of the scenario report.
type scenarioObject struct {
	Name   string `json:"name"`
	Before uint32 `json:"before"`
	After  uint32 `json:"after,omitempty"`
	Marked bool   `json:"marked"`
	Freed  bool   `json:"freed"`
	Code   uint64 `json:"code"`
}

type scenarioResult struct {
	Threshold  uint32                 `json:"threshold"`
	Objects    []scenarioObject       `json:"objects"`
	Pending    int                    `json:"pending_evacuations"`
	Compaction table.CompactionResult `json:"compaction"`
	Freelist   []uint32               `json:"freelist"`
	Occupancy  []table.SegmentUsage   `json:"occupancy"`
}

func runScenario() error {
	res, err := playScenario()
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(res)
	}
	printScenario(res)
	return nil
}

func playScenario() (scenarioResult, error) {
	cfg := table.DefaultConfig
	cfg.SegmentEntries = scenarioSegmentEntries
	cfg.MaxEntries = scenarioMaxEntries

	tbl, err := codeptr.New(vmem.NewHeap(), &cfg)
	if err != nil {
		return scenarioResult{}, fmt.Errorf("failed to create table: %w", err)
	}
	defer tbl.Close()
	s := table.NewSpace("scenario")

	alloc := func(code table.Address) (*gcsim.Object, error) {
		o := &gcsim.Object{Code: code, Entrypoint: code + 0x20, Tag: codeptr.JSEntrypointTag}
		h, err := tbl.AllocateAndInitializeEntry(s, o.Code, o.Entrypoint, o.Tag)
		if err != nil {
			return nil, err
		}
		o.Field.Store(h)
		return o, nil
	}

	var fillers, objs []*gcsim.Object
	for i := range scenarioObjects {
		o, err := alloc(table.Address(0x9000 + i*0x40))
		if err != nil {
			return scenarioResult{}, err
		}
		fillers = append(fillers, o)
	}
	for i := range scenarioObjects {
		o, err := alloc(table.Address(0x1000 + i*0x40))
		if err != nil {
			return scenarioResult{}, err
		}
		objs = append(objs, o)
	}
	for _, f := range fillers {
		tbl.FreeEntry(s, f.Field.Load())
	}

	res := scenarioResult{Threshold: scenarioThreshold}
	freed := map[int]bool{2: true, 5: true}
	for i := range objs {
		if freed[i] {
			tbl.FreeEntry(s, objs[i].Field.Load())
		}
	}
	o, err := alloc(0x1000 + scenarioObjects*0x40)
	if err != nil {
		return scenarioResult{}, err
	}
	objs = append(objs, o)

	for i, o := range objs {
		res.Objects = append(res.Objects, scenarioObject{
			Name:   fmt.Sprintf("h%d", i),
			Before: table.HandleIndex(o.Field.Load()),
			Freed:  freed[i],
			Code:   uint64(o.Code),
		})
	}

	if err := tbl.StartCompactingAt(s, scenarioThreshold); err != nil {
		return scenarioResult{}, err
	}
	for _, i := range scenarioMarked {
		tbl.Mark(s, objs[i].Field.Load(), &objs[i].Field)
		res.Objects[i].Marked = true
	}
	res.Pending = s.PendingEvacuations()
	res.Compaction = tbl.FinishCompaction(s, nil)

	for i, o := range objs {
		if !res.Objects[i].Marked {
			continue
		}
		h := o.Field.Load()
		if got := tbl.GetCodeObject(h); got != o.Code {
			return res, fmt.Errorf("%s: code %#x after compaction, want %#x", res.Objects[i].Name, got, o.Code)
		}
		res.Objects[i].After = table.HandleIndex(h)
	}
	if err := tbl.Verify(s); err != nil {
		return res, err
	}

	res.Freelist = freelist(tbl, s)
	res.Occupancy = tbl.Occupancy(s)
	return res, nil
}

// freelist lists the free entries of s in freelist order. It relies on the
// freelist being rebuilt in ascending index order after a sweep.
func freelist(tbl *codeptr.Table, s *table.Space) []uint32 {
	var out []uint32
	for _, seg := range s.Segments() {
		for i := seg.Start; i < seg.End(); i++ {
			if tbl.At(i).Word().IsFree() {
				out = append(out, i)
			}
		}
	}
	return out
}

func printScenario(res scenarioResult) {
	printInfo("%s\n\n", styled(headerStyle, fmt.Sprintf("Compaction with threshold %d", res.Threshold)))
	printInfo("%-4s %8s %8s  %s\n", "obj", "before", "after", "state")
	for _, o := range res.Objects {
		after, state := "-", "dead"
		switch {
		case o.Freed:
			state = "freed before marking"
		case o.Marked:
			after = fmt.Sprintf("%d", o.After)
			state = "kept"
			if o.Before >= res.Threshold {
				state = "evacuated"
			}
		}
		printInfo("%-4s %8d %8s  %s\n", o.Name, o.Before, after, state)
	}

	c := res.Compaction
	printInfo("\nPending evacuations at sweep: %d\n", res.Pending)
	printInfo("Outcome: %s, live %d, evacuated %d, freed %d, segments released %d\n",
		renderOutcome(c.Outcome), c.Live, c.Evacuated, c.Freed, c.SegmentsReleased)

	ids := make([]string, len(res.Freelist))
	for i, idx := range res.Freelist {
		ids[i] = fmt.Sprintf("%d", idx)
	}
	printInfo("Freelist: %s\n", strings.Join(ids, " "))
	printVerbose("\n%s\n", renderOccupancy(res.Occupancy))
}
