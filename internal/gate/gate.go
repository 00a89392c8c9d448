// Package gate implements the absolute-distance / density / confidence-gap
// gate sequence (spec.md §4.3), ported from the original Python's
// src/rag/gating.py. Stages short-circuit to refuse or ambiguous in the
// same order the source does.
package gate

import (
	"github.com/brunobiangulo/docqa/internal/doc"
)

// Status is the gate's verdict.
type Status int

const (
	// StatusRefuse means no candidate cleared the density/threshold bar.
	StatusRefuse Status = iota
	// StatusAmbiguous means the top candidates are too close to call.
	StatusAmbiguous
	// StatusOK means the gate picked a confident top-final_k set.
	StatusOK
)

// Config mirrors original_source/src/rag/gating.py's GateConfig.
type Config struct {
	FinalK    int
	MaxL2     float64
	MinKeep   int
	MinGap    *float64
	SoftMaxL2 *float64
}

// Result is the gate's output: a status and, only when StatusOK, the
// trimmed candidate list.
type Result struct {
	Status Status
	Docs   []doc.ScoredDocument
}

// Run applies the three gates in order to scored, which must already be
// sorted ascending by distance.
func Run(scored []doc.ScoredDocument, cfg Config) Result {
	if len(scored) == 0 {
		return Result{Status: StatusRefuse}
	}

	threshold, ok := selectThreshold(scored, cfg.MaxL2, cfg.SoftMaxL2)
	if !ok {
		return Result{Status: StatusRefuse}
	}

	filtered := filterByThreshold(scored, threshold)

	minKeep := cfg.MinKeep
	if minKeep <= 0 {
		minKeep = 1
	}
	if len(filtered) < minKeep {
		return Result{Status: StatusRefuse}
	}

	if !confidenceGapPasses(filtered, cfg.MinGap) {
		return Result{Status: StatusAmbiguous}
	}

	finalK := cfg.FinalK
	if finalK <= 0 || finalK > len(filtered) {
		finalK = len(filtered)
	}
	return Result{Status: StatusOK, Docs: filtered[:finalK]}
}

// selectThreshold implements spec.md §4.3 step 1: try the hard max first,
// then fall back to the soft max if the best candidate still clears it.
func selectThreshold(scored []doc.ScoredDocument, hardMax float64, softMax *float64) (float64, bool) {
	best := scored[0].Distance
	if best <= hardMax {
		return hardMax, true
	}
	if softMax == nil {
		return 0, false
	}
	if best > *softMax {
		return 0, false
	}
	return *softMax, true
}

// filterByThreshold keeps the leading run of scored whose distance is at
// or below threshold. scored is sorted ascending, so this is a prefix.
func filterByThreshold(scored []doc.ScoredDocument, threshold float64) []doc.ScoredDocument {
	out := make([]doc.ScoredDocument, 0, len(scored))
	for _, sd := range scored {
		if sd.Distance > threshold {
			break
		}
		out = append(out, sd)
	}
	return out
}

// confidenceGapPasses implements spec.md §4.3 step 3. A small gap between
// the top two candidates is tolerated — not flagged ambiguous — when
// either they share a source and are within 2 pages of each other, or
// they share a non-empty core tag signature (spec.md §9, Open Question b:
// both exemptions apply independently via "or").
func confidenceGapPasses(scored []doc.ScoredDocument, minGap *float64) bool {
	if minGap == nil {
		return true
	}
	if len(scored) < 2 {
		return true
	}

	best, second := scored[0], scored[1]
	gap := second.Distance - best.Distance
	if gap < 0 {
		gap = -gap
	}
	if gap >= *minGap {
		return true
	}

	if sameFileClosePages(best.Doc, second.Doc) {
		return true
	}

	bestSig := doc.CoreSignature(best.Doc)
	secondSig := doc.CoreSignature(second.Doc)
	if bestSig.Key() == secondSig.Key() && !bestSig.IsEmpty() {
		return true
	}

	return false
}

func sameFileClosePages(a, b doc.Document) bool {
	if a.Source == "" || b.Source == "" || a.Filename() != b.Filename() {
		return false
	}
	if a.Page == nil || b.Page == nil {
		return false
	}
	diff := *a.Page - *b.Page
	if diff < 0 {
		diff = -diff
	}
	return diff <= 2
}
