package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/colorscreen/reconstruct"
	"github.com/colorscreen/reconstruct/internal/render"
)

var renderTypesByName = map[string]render.Type{
	"original":                         render.Original,
	"profiled-original":                render.ProfiledOriginal,
	"preview-grid":                     render.PreviewGrid,
	"realistic":                        render.Realistic,
	"interpolated":                     render.Interpolated,
	"predictive":                       render.Predictive,
	"combined":                         render.Combined,
	"fast":                             render.Fast,
	"scr-nearest":                      render.ScrNearest,
	"scr-nearest-scaled":               render.ScrNearestScaled,
	"scr-relax":                        render.ScrRelax,
	"adjusted-color":                   render.AdjustedColor,
	"normalized-color":                 render.NormalizedColor,
	"pixel-colors":                     render.PixelColors,
	"realistic-scr":                    render.RealisticScr,
	"interpolated-original":            render.InterpolatedOriginal,
	"interpolated-profiled-original":   render.InterpolatedProfiledOriginal,
	"interpolated-diff":                render.InterpolatedDiff,
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	parPath := fs.String("par", "", "input .par file (scan<->screen geometry)")
	tiffPath := fs.String("tiff", "", "input TIFF scan")
	gamma := fs.Float64("gamma", 1, "scan recording gamma (1 = already linear)")
	typeName := fs.String("type", "realistic", "render type: "+renderTypeNames())
	w := fs.Int("w", 1024, "output tile width")
	h := fs.Int("h", 1024, "output tile height")
	step := fs.Float64("step", 1, "final-space step between output pixels")
	xoff := fs.Float64("x", 0, "tile x offset in final space")
	yoff := fs.Float64("y", 0, "tile y offset in final space")
	workers := fs.Int("workers", 4, "row-parallel worker count (0/1 = serial)")
	output := fs.String("o", "out.tiff", "output TIFF path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *parPath == "" || *tiffPath == "" {
		return fmt.Errorf("render: -par and -tiff are required")
	}

	typ, ok := renderTypesByName[strings.ToLower(*typeName)]
	if !ok {
		return fmt.Errorf("render: unknown -type %q (want one of: %s)", *typeName, renderTypeNames())
	}

	parFile, err := os.Open(*parPath)
	if err != nil {
		return err
	}
	proj, err := colorscreen.Load(parFile)
	parFile.Close()
	if err != nil {
		return err
	}

	scanFile, err := os.Open(*tiffPath)
	if err != nil {
		return err
	}
	scan, err := colorscreen.LoadTIFF(scanFile, *gamma)
	scanFile.Close()
	if err != nil {
		return err
	}

	rparams := render.DefaultParams(typ)
	if *workers > 1 {
		rparams.Antialias = render.AntialiasSupersample
	}
	rnd, err := proj.NewRenderer(scan, colorscreen.RendererOptions{}, rparams)
	if err != nil {
		return err
	}
	defer rnd.Close()

	if err := rnd.PrecomputeAll(nil); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	req := render.TileRequest{XOffset: *xoff, YOffset: *yoff, Step: *step, W: *w, H: *h}
	out := render.NewImage(req.W, req.H)
	if *workers > 1 {
		err = rnd.RenderTileParallel(req, out, *workers, nil)
	} else {
		err = rnd.RenderTile(req, out, nil)
	}
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	outFile, err := os.Create(*output)
	if err != nil {
		return err
	}
	if err := colorscreen.SaveTIFF(outFile, out); err != nil {
		outFile.Close()
		os.Remove(*output)
		return err
	}
	if err := outFile.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Rendered %s (%s) -> %s\n", *tiffPath, *typeName, *output)
	return nil
}

func renderTypeNames() string {
	names := make([]string, 0, len(renderTypesByName))
	for n := range renderTypesByName {
		names = append(names, n)
	}
	return strings.Join(names, ", ")
}
