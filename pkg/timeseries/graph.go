package timeseries

import (
	"fmt"
	"sync"
)

// Mode is the graph panel layout.
type Mode string

const (
	Minimized Mode = "minimized"
	Split     Mode = "split"
	Full      Mode = "full"
)

// ParseMode validates a mode name. An unknown mode panics: callers pass
// constants, never user text.
func ParseMode(s string) Mode {
	switch m := Mode(s); m {
	case Minimized, Split, Full:
		return m
	}
	panic(fmt.Sprintf("timeseries: unknown graph mode %q", s))
}

// View is what the host draws.
type View struct {
	Key            string   `json:"key,omitempty"`
	Mode           Mode     `json:"mode"`
	Visible        bool     `json:"visible"`
	Expanded       bool     `json:"expanded"`
	Focus          bool     `json:"focus"`
	MapInteractive bool     `json:"mapInteractive"`
	CurrentYear    int      `json:"currentYear,omitempty"`
	Highlight      string   `json:"highlight,omitempty"`
	Dataset        *Dataset `json:"dataset,omitempty"`
	// HighlightSeries holds the highlighted element's points per scenario.
	HighlightSeries []Series `json:"highlightSeries,omitempty"`
}

// Graph is the single reusable graph panel.
type Graph struct {
	mu          sync.Mutex
	data        *Dataset
	hidden      bool
	mode        Mode
	restore     Mode
	focus       bool
	highlight   string
	currentYear int
}

// NewGraph creates a hidden panel in mode.
func NewGraph(mode Mode) *Graph {
	restore := mode
	if restore == Minimized {
		restore = Split
	}
	return &Graph{mode: ParseMode(string(mode)), restore: restore, hidden: true}
}

// SetData shows d.
func (g *Graph) SetData(d *Dataset) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.data = d
	g.hidden = d == nil
}

// Hide clears the panel.
func (g *Graph) Hide() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.data = nil
	g.hidden = true
	g.focus = false
}

// HighlightSubcatchment marks one element across every series.
func (g *Graph) HighlightSubcatchment(topazID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.highlight = topazID
}

// ClearHighlight removes the highlight.
func (g *Graph) ClearHighlight() {
	g.HighlightSubcatchment("")
}

// SetCurrentYear marks the year shown on the map.
func (g *Graph) SetCurrentYear(year int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.currentYear = year
}

// SetMode switches layout. Minimising drops focus.
func (g *Graph) SetMode(m Mode) {
	m = ParseMode(string(m))
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mode = m
	if m == Minimized {
		g.focus = false
	} else {
		g.restore = m
	}
}

// SetFocus requests focus. Focus is refused while minimized; the result
// reports the focus actually held.
func (g *Graph) SetFocus(focus bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.focus = focus && g.mode != Minimized
	return g.focus
}

// ToggleCollapse minimizes the panel, or restores the last open mode.
func (g *Graph) ToggleCollapse() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mode == Minimized {
		g.mode = g.restore
	} else {
		g.mode = Minimized
		g.focus = false
	}
	return g.mode
}

// Mode returns the current layout.
func (g *Graph) Mode() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// View returns what to draw. Minimized hides the panel; split shows it
// beside the map; full expands it and takes interaction from the map.
func (g *Graph) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()

	v := View{
		Mode:           g.mode,
		Visible:        !g.hidden && g.data != nil && g.mode != Minimized,
		Focus:          g.focus && g.mode != Minimized,
		MapInteractive: true,
		CurrentYear:    g.currentYear,
		Highlight:      g.highlight,
	}
	if !v.Visible {
		return v
	}
	v.Key = g.data.Key
	v.Dataset = g.data
	if g.mode == Full {
		v.Expanded = true
		v.MapInteractive = false
	}
	if g.highlight != "" && g.data.Kind == KindBoxplot {
		for _, s := range g.data.Series {
			if pts := s.Member(g.highlight); len(pts) > 0 {
				v.HighlightSeries = append(v.HighlightSeries, Series{Scenario: s.Scenario, Name: s.Name, Points: pts})
			}
		}
	}
	return v
}
