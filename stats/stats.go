//
// stats.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package stats records wall-clock timestamps for the protocol phases
// and renders a profiling report.
package stats

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/markkurossi/tabulate"
)

// ID identifies a measured protocol phase.
type ID int

// Measured protocol phases.
const (
	SpPresetup ID = iota
	SpSetup
	GatesSetup
	GatesOnline
	Total
	numIDs
)

var idNames = map[ID]string{
	SpPresetup:  "SP Presetup",
	SpSetup:     "SP Setup",
	GatesSetup:  "Gates Setup",
	GatesOnline: "Gates Online",
	Total:       "Total",
}

func (id ID) String() string {
	name, ok := idNames[id]
	if !ok {
		return fmt.Sprintf("{ID %d}", int(id))
	}
	return name
}

// Span holds the start and end timestamps of one phase.
type Span struct {
	Start time.Time
	End   time.Time
}

// Duration returns the phase duration. It is zero unless both
// RecordStart and RecordEnd have been called for the phase.
func (s Span) Duration() time.Duration {
	if s.Start.IsZero() || s.End.IsZero() {
		return 0
	}
	return s.End.Sub(s.Start)
}

// RunTimeStats collects phase timestamps. The zero value is ready for
// use and safe for concurrent access.
type RunTimeStats struct {
	mu    sync.Mutex
	spans [numIDs]Span
}

// RecordStart records the start timestamp of the phase.
func (st *RunTimeStats) RecordStart(id ID) {
	st.mu.Lock()
	st.spans[id].Start = time.Now()
	st.mu.Unlock()
}

// RecordEnd records the end timestamp of the phase.
func (st *RunTimeStats) RecordEnd(id ID) {
	st.mu.Lock()
	st.spans[id].End = time.Now()
	st.mu.Unlock()
}

// Get returns the span recorded for the phase.
func (st *RunTimeStats) Get(id ID) Span {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.spans[id]
}

// Print renders the recorded phases as a table. Phases without a
// complete start-end pair are omitted.
func (st *RunTimeStats) Print(w io.Writer) {
	st.mu.Lock()
	spans := st.spans
	st.mu.Unlock()

	total := spans[Total].Duration()
	if total == 0 {
		for id := ID(0); id < numIDs; id++ {
			total += spans[id].Duration()
		}
	}

	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Phase").SetAlign(tabulate.ML)
	tab.Header("Time").SetAlign(tabulate.MR)
	tab.Header("%").SetAlign(tabulate.MR)

	for id := ID(0); id < numIDs; id++ {
		d := spans[id].Duration()
		if d == 0 {
			continue
		}
		row := tab.Row()
		row.Column(id.String())
		row.Column(d.String())
		if total > 0 {
			row.Column(fmt.Sprintf("%.2f%%",
				float64(d)/float64(total)*100))
		} else {
			row.Column("")
		}
	}
	tab.Print(w)
}
