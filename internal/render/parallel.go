package render

import (
	"golang.org/x/sync/errgroup"

	"github.com/colorscreen/reconstruct/internal/param"
	"github.com/colorscreen/reconstruct/internal/progress"
)

// RenderTileParallel is RenderTile's row-parallel sibling: rows are
// dispatched across `workers` goroutines (4 when workers <= 0, never
// more than req.H) via errgroup, the
// Go-native replacement for the original's OpenMP `parallel for` over
// output scanlines (spec §2's domain-stack note on errgroup). Each
// worker owns a distinct set of rows so no synchronization is needed
// beyond the shared cancellation flag and the final error join.
func (r *Renderer) RenderTileParallel(req TileRequest, out *Image, workers int, prog *progress.Info) error {
	if prog == nil {
		prog = progress.New()
	}
	if workers <= 0 {
		workers = 4
	}
	if workers > req.H {
		workers = req.H
	}
	if workers <= 1 {
		return r.RenderTile(req, out, prog)
	}

	prog.SetTask("render tile (parallel)", uint64(req.H))
	useSplat := r.params.Antialias == AntialiasSupersample ||
		(r.params.Antialias == AntialiasAuto && req.Step > r.s2i.PixelSize())
	if r.params.Antialias == AntialiasNone {
		useSplat = false
	}

	var g errgroup.Group
	rowsPerWorker := (req.H + workers - 1) / workers
	for w := 0; w < workers; w++ {
		y0 := w * rowsPerWorker
		y1 := y0 + rowsPerWorker
		if y1 > req.H {
			y1 = req.H
		}
		if y0 >= y1 {
			continue
		}
		g.Go(func() error {
			for row := y0; row < y1; row++ {
				if prog.CancelRequested() {
					return ErrCancelled
				}
				for col := 0; col < req.W; col++ {
					final := param.Point2D{
						X: req.XOffset + float64(col)*req.Step,
						Y: req.YOffset + float64(row)*req.Step,
					}
					var c param.RGB
					if useSplat {
						c = r.splatPixel(final, req.Step)
					} else {
						c = r.SamplePixelScr(r.s2i.FinalToScr(final))
					}
					rr, gg, bb := r.toOutput(c)
					out.set(col, row, rr, gg, bb)
				}
				prog.IncProgress()
			}
			return nil
		})
	}
	return g.Wait()
}
