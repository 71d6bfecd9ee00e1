package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/colorscreen/reconstruct"
	"github.com/colorscreen/reconstruct/internal/field"
)

// runAnalyzeBacklight derives a backlight-correction block (spec §4.7's
// analyze_scan) from a flat-field scan and writes it in the same text
// format internal/param.ParFile captures verbatim inside a `.par` file.
func runAnalyzeBacklight(args []string) error {
	fs := flag.NewFlagSet("analyze-backlight", flag.ContinueOnError)
	tiffPath := fs.String("tiff", "", "flat-field TIFF scan")
	gamma := fs.Float64("gamma", 1, "scan recording gamma")
	output := fs.String("o", "", "output backlight-correction text path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tiffPath == "" || *output == "" {
		return fmt.Errorf("analyze-backlight: -tiff and -o are required")
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

	grid := field.AnalyzeScan(scan, *gamma)

	outFile, err := os.Create(*output)
	if err != nil {
		return err
	}
	if err := field.SaveBacklightText(outFile, grid); err != nil {
		outFile.Close()
		os.Remove(*output)
		return fmt.Errorf("analyze-backlight: %w", err)
	}
	if err := outFile.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Analyzed %s -> %s\n", *tiffPath, *output)
	return nil
}
