//go:build !nogpu

package gpu

import (
	"github.com/gogpu/sprite/render"
)

// QueueParams is what the queue stage needs besides the frame and views.
type QueueParams struct {
	Phases       *render.ViewPhases
	Pipelines    *PipelineCache
	Key          PipelineKey
	DrawFunction render.DrawFunctionID
	Order        render.SortOrder
}

// QueueStats reports the outcome of one queue pass.
type QueueStats struct {
	// Queued is the number of draw items per view. Views that were skipped
	// are absent.
	Queued map[render.ViewID]int
	// MissingPhase lists views that had no registered phase.
	MissingPhase []render.ViewID
	// PipelineErr is set when the sprite pipeline could not be built. Items
	// are still queued, carrying render.InvalidPipeline.
	PipelineErr error
}

// Queue fills each view's phase with one draw item per extracted sprite the
// view can see, sorted by depth.
//
// Every registered phase is cleared first, including phases of views not
// rendered this frame. A view without a registered phase is logged and
// skipped; other views are unaffected. A pipeline build failure is reported
// in the stats and the items carry render.InvalidPipeline, which the draw
// step skips.
func Queue(frame *Frame, views []render.View, p QueueParams) QueueStats {
	stats := QueueStats{Queued: make(map[render.ViewID]int, len(views))}

	for _, id := range p.Phases.Views() {
		if phase, ok := p.Phases.Get(id); ok {
			phase.Clear()
		}
	}

	pipeline, err := p.Pipelines.Specialize(p.Key)
	if err != nil {
		slogger().Warn("gpu: sprite pipeline unavailable", "key", p.Key, "err", err)
		stats.PipelineErr = err
		pipeline = render.InvalidPipeline
	}

	sprites := frame.Sprites.All()
	for _, v := range views {
		phase, ok := p.Phases.Get(v.ID)
		if !ok {
			slogger().Info("gpu: no render phase found for view", "view", v.ID, "err", ErrMissingViewPhase)
			stats.MissingPhase = append(stats.MissingPhase, v.ID)
			continue
		}

		if v.Visible != nil {
			for i := range sprites {
				sp := &sprites[i]
				if !v.Visible.Contains(sp.Entity) {
					continue
				}
				phase.Add(render.DrawItem{
					SortKey:      sp.Depth,
					Entity:       sp.Entity,
					Pipeline:     pipeline,
					DrawFunction: p.DrawFunction,
					Batch:        render.Range{Start: 0, End: 1},
				})
			}
		}
		phase.Sort(p.Order)
		stats.Queued[v.ID] = phase.Len()
	}

	slogger().Debug("gpu: queued sprites", "frame", frame.Number, "views", len(stats.Queued))
	return stats
}
