package graph

import (
	"context"
	"io"
	"log/slog"

	"github.com/coregx/corescan/report"
)

// ReduceOptions tunes ReduceGraph.
type ReduceOptions struct {
	// Logger receives one Debug record per pass that changed the graph.
	// Nil discards them.
	Logger *slog.Logger

	// Highlander enables the passes that rely on every report firing at
	// most once.
	Highlander bool
}

type reducePass struct {
	name string
	run  func(h *Holder, rm *report.Manager) bool
}

var reducePasses = []reducePass{
	{"prune-empty", func(h *Holder, _ *report.Manager) bool {
		n := h.NumVertices()
		h.PruneEmptyVertices()
		return h.NumVertices() != n
	}},
	{"prune-useless", func(h *Holder, _ *report.Manager) bool { return h.PruneUseless(true) }},
	{"cyclic-redundancy", func(h *Holder, _ *report.Manager) bool { return h.RemoveCyclicPathRedundancy() }},
	{"highlander-accepts", func(h *Holder, rm *report.Manager) bool { return h.PruneHighlanderAccepts(rm) }},
	{"highlander-dominated", func(h *Holder, rm *report.Manager) bool { return h.PruneHighlanderDominated(rm) }},
}

// ReduceGraph runs the reduction passes over h in order. It reports
// whether any pass changed the graph. The result is densely numbered.
func ReduceGraph(h *Holder, rm *report.Manager, opts ReduceOptions) bool {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	changed := false
	for _, p := range reducePasses {
		if !opts.Highlander && (p.name == "highlander-accepts" || p.name == "highlander-dominated") {
			continue
		}
		nv, ne := h.NumVertices(), h.NumEdges()
		if !p.run(h, rm) {
			continue
		}
		changed = true
		if log.Enabled(context.Background(), slog.LevelDebug) {
			log.Debug("graph pass",
				slog.String("pass", p.name),
				slog.Int("vertices_removed", nv-h.NumVertices()),
				slog.Int("edges_removed", ne-h.NumEdges()))
		}
	}
	h.Renumber()
	h.RenumberEdges()
	return changed
}
