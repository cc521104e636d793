// Package svg renders flattened cell geometry as standalone SVG documents
// for quick visual inspection of a mask without CAD tooling.
package svg

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/qubitmask/backend/internal/geometry"
)

// padRatio is the margin added around the geometry bounds, as a fraction of
// the larger extent.
const padRatio = 0.05

// WriteCell renders the cell's flattened geometry as an SVG document.
// Layers become groups in ascending order; mask coordinates grow upward, so
// the document flips the y axis once at the top.
func WriteCell(w io.Writer, cell *geometry.Cell, styles *Styles) error {
	if styles == nil {
		styles = DefaultStyles()
	}

	flat := cell.Flatten()
	byLayer := make(map[int][]*geometry.Polygon)
	for _, p := range flat {
		byLayer[p.Layer] = append(byLayer[p.Layer], p)
	}
	layers := make([]int, 0, len(byLayer))
	for layer := range byLayer {
		layers = append(layers, layer)
	}
	sort.Ints(layers)

	bounds, ok := cell.Bounds()
	if !ok {
		bounds = geometry.Rect{Max: geometry.Point{X: 1, Y: 1}}
	}
	pad := padRatio * bounds.Width()
	if h := padRatio * bounds.Height(); h > pad {
		pad = h
	}
	if pad == 0 {
		pad = 1
	}

	// The y flip negates coordinates, so the viewBox top is -Max.Y.
	viewMinX := bounds.Min.X - pad
	viewMinY := -bounds.Max.Y - pad
	viewW := bounds.Width() + 2*pad
	viewH := bounds.Height() + 2*pad

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&buf,
		`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="%s %s %s %s">`+"\n",
		num(viewW), num(viewH), num(viewMinX), num(viewMinY), num(viewW), num(viewH))
	buf.WriteString(`  <g transform="scale(1 -1)">` + "\n")

	for _, layer := range layers {
		style := styles.For(layer)
		fmt.Fprintf(&buf, `    <g class="layer-%d" fill="%s" fill-opacity="%s" stroke="none">`+"\n",
			layer, style.Fill, num(style.Opacity))
		for _, p := range byLayer[layer] {
			buf.WriteString(`      <polygon points="`)
			for i, pt := range p.Points {
				if i > 0 {
					buf.WriteByte(' ')
				}
				buf.WriteString(num(pt.X))
				buf.WriteByte(',')
				buf.WriteString(num(pt.Y))
			}
			buf.WriteString(`"/>` + "\n")
		}
		buf.WriteString("    </g>\n")
	}

	buf.WriteString("  </g>\n</svg>\n")

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing svg: %w", err)
	}
	return nil
}

// WriteFile renders cell into a new file at path, overwriting any existing
// file.
func WriteFile(path string, cell *geometry.Cell, styles *Styles) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteCell(file, cell, styles); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// num formats a coordinate compactly, trimming float noise from unit
// conversions.
func num(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}
