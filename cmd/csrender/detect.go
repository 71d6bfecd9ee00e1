package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/colorscreen/reconstruct"
	"github.com/colorscreen/reconstruct/internal/detect"
	"github.com/colorscreen/reconstruct/internal/param"
)

var screenTypesByName = map[string]param.ScreenType{
	"random":                  param.Random,
	"dufay":                   param.Dufay,
	"paget":                   param.Paget,
	"finlay":                  param.Finlay,
	"thames":                  param.Thames,
	"dioptichrome-b":          param.DioptichromeB,
	"improved-dioptichrome-b": param.ImprovedDioptichromeB,
	"omnicolore":              param.Omnicolore,
	"warner-powrie":           param.WarnerPowrie,
	"joly":                    param.Joly,
}

func runDetect(args []string) error {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	tiffPath := fs.String("tiff", "", "input TIFF scan")
	gamma := fs.Float64("gamma", 1, "scan recording gamma (1 = already linear)")
	screenName := fs.String("screen", "dufay", "screen type to search for")
	optimizeColors := fs.Bool("optimize-colors", true, "pre-optimize the detector's color thresholds")
	output := fs.String("o", "out.par", "output .par path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tiffPath == "" {
		return fmt.Errorf("detect: -tiff is required")
	}
	st, ok := screenTypesByName[*screenName]
	if !ok {
		return fmt.Errorf("detect: unknown -screen %q", *screenName)
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

	proj := &colorscreen.Project{
		Par:          &param.ParFile{ScrToImg: &param.ScrToImgParameters{ID: param.NextID(), ScreenType: st}},
		DetectParams: param.DefaultScrDetectParameters(),
	}

	res, err := proj.Detect(scan, detect.DefaultConfig(), *optimizeColors, nil)
	if err != nil && res == nil {
		return fmt.Errorf("detect: %w", err)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "detect: warning: %v (coverage=%.2f confirmed=%d)\n",
			err, res.Quality.ScreenPercentage, res.Quality.ConfirmedCount)
	}

	proj.Par.Solver.Points = res.Map.SolverPoints()

	outFile, err := os.Create(*output)
	if err != nil {
		return err
	}
	if err := proj.Save(outFile); err != nil {
		outFile.Close()
		os.Remove(*output)
		return err
	}
	if err := outFile.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Detected %s -> %s (%d confirmed patches)\n", *tiffPath, *output, res.Quality.ConfirmedCount)
	return nil
}
