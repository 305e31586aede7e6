// Package quality computes advisory statistics comparing diagram text before
// and after structural repair. A quality report never blocks the pipeline; it
// flags repairs that removed a suspicious share of the diagram so the caller
// can retry with orphan preservation.
package quality

import (
	"fmt"

	"github.com/diagramtools/mermaidfix/pkg/diagram"
	"github.com/diagramtools/mermaidfix/pkg/repair"
)

// overReachThreshold is the removal ratio at or above which a repair is
// flagged as having removed too much of the diagram.
const overReachThreshold = 0.5

// BlockStats summarizes the block structure of one version of a diagram.
type BlockStats struct {
	Blocks      int `json:"blocks"`
	WithMembers int `json:"withMembers"`
	Empty       int `json:"empty"`
	Members     int `json:"members"`
}

// Report is the advisory outcome of validating a repair. AnomalyFlag marks
// repairs that look destructive; it is a signal, not an error.
type Report struct {
	Before             BlockStats `json:"before"`
	After              BlockStats `json:"after"`
	RemovedMemberCount int        `json:"removedMemberCount"`
	TotalMemberCount   int        `json:"totalMemberCount"`
	RemovalRatio       float64    `json:"removalRatio"`
	AnomalyFlag        bool       `json:"anomalyFlag"`
	AnomalyReason      string     `json:"anomalyReason,omitempty"`
}

// OverReach reports whether the repair removed enough content that the
// pipeline should retry with orphan preservation.
func (r *Report) OverReach() bool {
	return r.AnomalyFlag
}

// Validate compares the diagram before and after repair and returns an
// advisory report. records are the repair records produced by the engine for
// this before/after pair.
func Validate(before, after string, g diagram.Grammar, records []repair.Record) *Report {
	rep := &Report{
		Before: collectStats(before, g),
		After:  collectStats(after, g),
	}

	for _, rec := range records {
		if rec.Action == repair.ActionRemoved && rec.Reason == repair.ReasonOrphanedOutsideBlock {
			rep.RemovedMemberCount++
		}
	}
	// Before.Members counts every member line in the pre-repair text, the
	// orphaned ones included.
	rep.TotalMemberCount = rep.Before.Members

	total := rep.TotalMemberCount
	if total < 1 {
		total = 1
	}
	rep.RemovalRatio = float64(rep.RemovedMemberCount) / float64(total)

	switch {
	case rep.RemovalRatio >= overReachThreshold && rep.RemovedMemberCount > 0:
		rep.AnomalyFlag = true
		rep.AnomalyReason = fmt.Sprintf("repair removed %d of %d members (ratio %.2f)",
			rep.RemovedMemberCount, rep.TotalMemberCount, rep.RemovalRatio)
	case rep.After.Blocks > 0 && rep.After.Empty > rep.After.WithMembers:
		rep.AnomalyFlag = true
		rep.AnomalyReason = fmt.Sprintf("%d of %d blocks are empty after repair",
			rep.After.Empty, rep.After.Blocks)
	}

	return rep
}

// collectStats walks the classified lines of one diagram version and counts
// blocks, members, and which blocks ended up empty.
func collectStats(text string, g diagram.Grammar) BlockStats {
	var stats BlockStats
	var state repair.BlockState
	membersInBlock := 0
	inBlock := false

	closeBlock := func() {
		if !inBlock {
			return
		}
		if membersInBlock > 0 {
			stats.WithMembers++
		} else {
			stats.Empty++
		}
		membersInBlock = 0
		inBlock = false
	}

	for _, line := range repair.ClassifyLines(text, g) {
		prevDepth := state.Depth
		state.Apply(line)

		switch line.Kind {
		case repair.KindBlockOpen:
			if prevDepth == 0 {
				stats.Blocks++
				inBlock = true
			}
		case repair.KindBlockClose:
			if state.Depth == 0 {
				closeBlock()
			}
		case repair.KindMember, repair.KindField:
			stats.Members++
			if inBlock {
				membersInBlock++
			}
		}
	}
	// Unterminated trailing block still counts.
	closeBlock()

	return stats
}
