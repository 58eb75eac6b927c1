package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	overlay "github.com/rmhubbert/bubbletea-overlay"
	"github.com/spf13/cobra"

	"github.com/joshuapare/extable/gcsim"
	"github.com/joshuapare/extable/table"
)

var (
	watchInterval time.Duration
	watchCycles   int
)

// writeClipboard is swapped in tests.
var writeClipboard = clipboard.WriteAll

func init() {
	cmd := newWatchCmd()
	addWorkloadFlags(cmd)
	cmd.Flags().DurationVar(&watchInterval, "interval", 500*time.Millisecond, "Delay between cycles")
	cmd.Flags().IntVar(&watchCycles, "cycles", 0, "Stop after this many cycles (0 = run until quit)")
	rootCmd.AddCommand(cmd)
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the segment occupancy change cycle by cycle",
		Long: `The watch command runs the same workload as stress in an interactive
view. The occupancy map is redrawn after every cycle, so evacuation into the
lower segments and the release of the upper ones can be followed live.

Example:
  eptctl watch
  eptctl watch --segment-entries 256 --survival 0.4 --interval 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context())
		},
	}
	return cmd
}

func runWatch(ctx context.Context) error {
	w, err := newWorkload()
	if err != nil {
		return err
	}
	defer w.Close()

	m := newWatchModel(ctx, w, watchInterval, watchCycles)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("failed to run watch view: %w", err)
	}
	if fm, ok := final.(watchModel); ok && fm.err != nil {
		return fm.err
	}
	return nil
}

// cycleMsg carries the result of one heap cycle.
type cycleMsg struct {
	report    gcsim.CycleReport
	occupancy []table.SegmentUsage
	stats     table.SpaceStats
	err       error
}

// tickMsg schedules the next cycle.
type tickMsg time.Time

// watchModel is the bubbletea model of the watch view. Only one cycle runs
// at a time; the table is inspected only between cycles.
type watchModel struct {
	ctx      context.Context
	w        *workload
	keys     KeyMap
	viewport viewport.Model

	interval  time.Duration
	maxCycles int

	paused   bool
	running  bool
	showHelp bool

	reports   []gcsim.CycleReport
	occupancy []table.SegmentUsage
	stats     table.SpaceStats
	status    string
	err       error

	width  int
	height int
}

func newWatchModel(ctx context.Context, w *workload, interval time.Duration, maxCycles int) watchModel {
	vp := viewport.New(80, 20)
	m := watchModel{
		ctx:       ctx,
		w:         w,
		keys:      DefaultKeyMap(),
		viewport:  vp,
		interval:  interval,
		maxCycles: maxCycles,
		occupancy: w.tbl.Occupancy(w.space),
		stats:     w.space.Stats(),
	}
	m.viewport.SetContent(renderOccupancy(m.occupancy))
	return m
}

// Init starts the cycle timer
func (m watchModel) Init() tea.Cmd {
	return m.tick()
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runCycle runs one heap cycle off the update loop.
func (m watchModel) runCycle() tea.Cmd {
	w, ctx := m.w, m.ctx
	return func() tea.Msg {
		report, err := w.heap.Cycle(ctx)
		return cycleMsg{
			report:    report,
			occupancy: w.tbl.Occupancy(w.space),
			stats:     w.space.Stats(),
			err:       err,
		}
	}
}

func (m watchModel) done() bool {
	return m.maxCycles > 0 && len(m.reports) >= m.maxCycles
}

// Update handles all messages and updates the model
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-watchChromeLines, 1)
		return m, nil

	case tea.KeyMsg:
		if m.showHelp {
			if key.Matches(msg, m.keys.Esc) || key.Matches(msg, m.keys.Help) {
				m.showHelp = false
				return m, nil
			}
			if key.Matches(msg, m.keys.Quit) {
				return m, tea.Quit
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = true
			return m, nil
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			if !m.paused && !m.running && !m.done() {
				return m, m.tick()
			}
			return m, nil
		case key.Matches(msg, m.keys.Step):
			if m.running || m.done() {
				return m, nil
			}
			m.running = true
			return m, m.runCycle()
		case key.Matches(msg, m.keys.Copy):
			m.status = m.copyLastReport()
			return m, nil
		}

		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tickMsg:
		if m.paused || m.running || m.done() {
			return m, nil
		}
		m.running = true
		return m, m.runCycle()

	case cycleMsg:
		m.running = false
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.reports = append(m.reports, msg.report)
		m.occupancy = msg.occupancy
		m.stats = msg.stats
		m.viewport.SetContent(renderOccupancy(m.occupancy))
		if m.done() {
			m.status = fmt.Sprintf("finished %d cycles", len(m.reports))
			return m, nil
		}
		if m.paused {
			return m, nil
		}
		return m, m.tick()
	}

	return m, nil
}

func (m watchModel) copyLastReport() string {
	if len(m.reports) == 0 {
		return "no cycle yet"
	}
	data, err := json.MarshalIndent(m.reports[len(m.reports)-1], "", "  ")
	if err != nil {
		return fmt.Sprintf("copy failed: %v", err)
	}
	if err := writeClipboard(string(data)); err != nil {
		return fmt.Sprintf("copy failed: %v", err)
	}
	return "copied cycle report"
}

// watchChromeLines is the height of everything around the viewport.
const watchChromeLines = 6

// View renders the entire UI
func (m watchModel) View() string {
	if m.err != nil {
		return styled(lowStyle, fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.showHelp {
		return overlay.New(helpView{keys: m.keys}, mainView{m: m}, overlay.Center, overlay.Center, 0, 0).View()
	}
	return m.renderMain()
}

func (m watchModel) renderMain() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderStatus(),
	)
}

func (m watchModel) renderHeader() string {
	title := styled(headerStyle, "Entity table occupancy")
	s := m.stats
	line := fmt.Sprintf("segments %d  capacity %s  free %s (%s)  evacuations %s  aborts %s",
		s.Segments, formatNumber(int64(s.Capacity)), formatNumber(int64(s.Free)),
		formatPercent(s.Free, s.Capacity), formatNumber(int64(s.Evacuations)), formatNumber(int64(s.Aborts)))

	last := "no cycle yet"
	if n := len(m.reports); n > 0 {
		r := m.reports[n-1]
		last = fmt.Sprintf("cycle %d: %s objects, threshold %s, %s, %d evacuated, %d released",
			r.Cycle, formatNumber(int64(r.Objects)), formatThreshold(r.Compaction.Threshold),
			renderOutcome(r.Compaction.Outcome), r.Compaction.Evacuated, r.Compaction.SegmentsReleased)
	}
	return strings.Join([]string{title, line, last, ""}, "\n")
}

func (m watchModel) renderStatus() string {
	state := "running"
	switch {
	case m.done():
		state = "done"
	case m.paused:
		state = "paused"
	}
	status := fmt.Sprintf("[%s] ? help  n step  space pause  q quit", state)
	if m.status != "" {
		status += "  " + m.status
	}
	return styled(emptyStyle, status)
}

// mainView adapts the main screen to tea.Model for the help overlay.
type mainView struct{ m watchModel }

func (v mainView) Init() tea.Cmd                       { return nil }
func (v mainView) Update(tea.Msg) (tea.Model, tea.Cmd) { return v, nil }
func (v mainView) View() string                        { return v.m.renderMain() }

// helpView renders the key bindings in a box.
type helpView struct{ keys KeyMap }

func (v helpView) Init() tea.Cmd                       { return nil }
func (v helpView) Update(tea.Msg) (tea.Model, tea.Cmd) { return v, nil }

func (v helpView) View() string {
	var b strings.Builder
	b.WriteString(styled(headerStyle, "Keys"))
	for _, k := range v.keys.bindings() {
		h := k.Help()
		fmt.Fprintf(&b, "\n  %-8s %s", h.Key, h.Desc)
	}
	return boxStyle.Render(b.String())
}
