// Package main implements a one-shot photomask generator.
//
// It builds a qubit mask from a design document (or the built-in sample),
// draws the geometry and writes the requested artifacts without going
// through the HTTP service.
//
// Usage:
//
//	go run ./cmd/maskgen -input design.json -out ./artifacts -formats gds,svg,json
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qubitmask/backend/internal/qubit"
	"github.com/qubitmask/backend/internal/svg"
)

// sampleParams is the classic demo transmon: a 2.0 x 0.4 junction with two
// 0.3 x 10.0 wires ending in radius-4.0 connection pads.
func sampleParams() qubit.Params {
	return qubit.Params{
		JunctionWidth:    2.0,
		JunctionHeight:   0.4,
		JunctionOffset:   0.2,
		WireWidth:        0.3,
		WireHeight:       10.0,
		ConnectionRadius: 4.0,
		ConnectionLayer:  0,
		WireLayer:        1,
		JunctionLayer:    2,
	}
}

func main() {
	input := flag.String("input", "", "Path to a design document JSON (built-in sample when empty)")
	outDir := flag.String("out", ".", "Directory artifacts are written to")
	name := flag.String("name", "output", "Base name for artifact files")
	formats := flag.String("formats", "gds,svg,json", "Comma-separated list of formats to write (gds, svg, json)")
	stylesPath := flag.String("styles", "", "Optional layer styles YAML used for SVG output")
	tolerance := flag.Float64("tolerance", 0.01, "Circle flattening tolerance in user units")
	flag.Parse()

	var q *qubit.Qubit
	if *input != "" {
		loaded, err := qubit.FromJSONFile(*input)
		if err != nil {
			fail("failed to load design document: %v", err)
		}
		q = loaded
		fmt.Printf("Loaded design document %s\n", *input)
	} else {
		q = qubit.New(sampleParams())
		fmt.Println("Using built-in sample design")
	}
	q.SetCircleTolerance(*tolerance)

	var styles *svg.Styles
	if *stylesPath != "" {
		parsed, err := svg.ParseStyles(*stylesPath)
		if err != nil {
			fail("failed to load layer styles: %v", err)
		}
		styles = parsed
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		fail("failed to create output directory: %v", err)
	}

	layout := q.Draw()
	fmt.Printf("Drew %d shapes across layers %v\n", len(layout.Flatten()), layout.Layers())
	if bounds, ok := layout.Bounds(); ok {
		fmt.Printf("Bounds: (%.3f, %.3f) to (%.3f, %.3f)\n",
			bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}

	for _, format := range strings.Split(*formats, ",") {
		format = strings.TrimSpace(strings.ToLower(format))
		if format == "" {
			continue
		}
		path := filepath.Join(*outDir, *name+"."+format)

		switch format {
		case "gds":
			if err := q.ToGDS(path); err != nil {
				fail("GDS export failed: %v", err)
			}
		case "svg":
			if err := svg.WriteFile(path, q.Layout(), styles); err != nil {
				fail("SVG export failed: %v", err)
			}
		case "json":
			if _, err := q.Serialize(path); err != nil {
				fail("JSON export failed: %v", err)
			}
			// Read the document back so a bad file never goes unnoticed
			if _, err := qubit.FromJSONFile(path); err != nil {
				fail("serialized document failed to parse back: %v", err)
			}
		default:
			fail("unsupported format %q (want gds, svg or json)", format)
		}

		info, err := os.Stat(path)
		if err != nil {
			fail("artifact not written: %v", err)
		}
		fmt.Printf("Wrote %s (%d bytes)\n", path, info.Size())
	}
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "maskgen: "+format+"\n", args...)
	os.Exit(1)
}
