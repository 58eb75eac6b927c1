package main

import (
	"fmt"
	"strconv"
	"unsafe"

	"github.com/spf13/cobra"

	"github.com/joshuapare/extable/codeptr"
	"github.com/joshuapare/extable/extptr"
	"github.com/joshuapare/extable/internal/format"
	"github.com/joshuapare/extable/table"
)

var (
	layoutEncode         bool
	layoutSegmentEntries uint32
)

func init() {
	cmd := newLayoutCmd()
	cmd.Flags().BoolVar(&layoutEncode, "encode", false, "Treat arguments as entry indices and encode them")
	cmd.Flags().Uint32Var(&layoutSegmentEntries, "segment-entries", 0, "Entries per segment (0 = derived from the entry size)")
	rootCmd.AddCommand(cmd)
}

func newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout [handle...]",
		Short: "Show handle and entry layouts, or decode handles",
		Long: `The layout command prints the handle encoding, the entry sizes and
tags of the code pointer and external pointer tables. Given arguments it
decodes each one as a handle instead.

Example:
  eptctl layout
  eptctl layout 0x150a5 0x10000
  eptctl layout --encode 21 4095`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(args)
		},
	}
	return cmd
}

type tagInfo struct {
	Name  string `json:"name"`
	Value uint64 `json:"value"`
}

type entryLayout struct {
	Table          string    `json:"table"`
	EntrySize      int       `json:"entry_size"`
	SegmentEntries int       `json:"segment_entries"`
	Tags           []tagInfo `json:"tags"`
}

type layoutResult struct {
	HandleShift  int           `json:"handle_shift"`
	HandleMarker uint32        `json:"handle_marker"`
	MaxEntries   int           `json:"max_entries"`
	SegmentSize  int           `json:"segment_size"`
	Entries      []entryLayout `json:"entries"`
}

type decodedHandle struct {
	Input   string `json:"input"`
	Handle  uint32 `json:"handle"`
	Valid   bool   `json:"valid"`
	Index   uint32 `json:"index"`
	Segment uint32 `json:"segment"`
	Offset  uint32 `json:"offset"`
}

func runLayout(args []string) error {
	if len(args) > 0 {
		return runDecode(args)
	}

	res := layoutResult{
		HandleShift:  format.HandleShift,
		HandleMarker: format.HandleMarker,
		MaxEntries:   format.MaxEntries,
		SegmentSize:  format.DefaultSegmentSize,
	}

	codeSize := int(unsafe.Sizeof(codeptr.Entry{}))
	code := entryLayout{Table: "code pointer", EntrySize: codeSize, SegmentEntries: format.DefaultSegmentSize / codeSize}
	for _, tag := range codeptr.Tags() {
		code.Tags = append(code.Tags, tagInfo{Name: tag.String(), Value: uint64(tag)})
	}

	extSize := int(unsafe.Sizeof(extptr.Entry{}))
	ext := entryLayout{Table: "external pointer", EntrySize: extSize, SegmentEntries: format.DefaultSegmentSize / extSize}
	for _, tag := range extptr.Tags() {
		ext.Tags = append(ext.Tags, tagInfo{Name: tag.String(), Value: uint64(tag)})
	}
	res.Entries = []entryLayout{code, ext}

	if jsonOut {
		return printJSON(res)
	}

	printInfo("%s\n", styled(headerStyle, "Handles"))
	printInfo("  handle = index << %d | %#x, null = 0\n", res.HandleShift, res.HandleMarker)
	printInfo("  Max entries:   %s\n", formatNumber(int64(res.MaxEntries)))
	printInfo("  Segment size:  %s\n", formatBytes(int64(res.SegmentSize)))
	for _, e := range res.Entries {
		printInfo("\n%s\n", styled(headerStyle, fmt.Sprintf("%s entries", e.Table)))
		printInfo("  Entry size:       %d bytes\n", e.EntrySize)
		printInfo("  Entries/segment:  %s\n", formatNumber(int64(e.SegmentEntries)))
		printInfo("  Tags:\n")
		for _, t := range e.Tags {
			printInfo("    %-24s %#018x\n", t.Name, t.Value)
		}
	}
	return nil
}

func runDecode(args []string) error {
	perSegment := layoutSegmentEntries
	if perSegment == 0 {
		perSegment = uint32(format.DefaultSegmentSize / int(unsafe.Sizeof(codeptr.Entry{})))
	}

	out := make([]decodedHandle, 0, len(args))
	for _, arg := range args {
		v, err := strconv.ParseUint(arg, 0, 32)
		if err != nil {
			return fmt.Errorf("invalid argument %q: %w", arg, err)
		}
		h := table.Handle(v)
		if layoutEncode {
			if v == 0 || v >= format.MaxEntries {
				return fmt.Errorf("index %d outside 1..%d", v, format.MaxEntries-1)
			}
			h = table.EncodeHandle(uint32(v))
		}
		d := decodedHandle{Input: arg, Handle: uint32(h), Valid: format.IsValidHandle(h)}
		if d.Valid {
			d.Index = table.HandleIndex(h)
			d.Segment = d.Index / perSegment
			d.Offset = d.Index % perSegment
		}
		out = append(out, d)
	}

	if jsonOut {
		return printJSON(out)
	}
	for _, d := range out {
		if !d.Valid {
			printInfo("%-12s 0x%08x  %s\n", d.Input, d.Handle, styled(lowStyle, "not a handle"))
			continue
		}
		printInfo("%-12s 0x%08x  index %d (segment %d, offset %d)\n", d.Input, d.Handle, d.Index, d.Segment, d.Offset)
	}
	return nil
}
