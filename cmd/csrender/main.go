// Command csrender renders reconstructed color images from color-screen
// scans on the command line.
//
// Usage:
//
//	csrender detect -tiff scan.tiff -screen dufay -o out.par
//	csrender render -par in.par -tiff scan.tiff -type realistic -o out.tiff
//	csrender analyze-backlight -tiff flat.tiff -o flat.par
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "render":
		err = runRender(os.Args[2:])
	case "detect":
		err = runDetect(os.Args[2:])
	case "analyze-backlight":
		err = runAnalyzeBacklight(os.Args[2:])
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "csrender: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "csrender: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage:
  csrender detect [options] -tiff <scan.tiff>             Detect screen geometry
  csrender render [options] -tiff <scan.tiff>              Render a reconstructed tile
  csrender analyze-backlight -tiff <flat.tiff> -o <out>    Derive a backlight-correction block

Run "csrender <command> -h" for command-specific options.
`)
}
