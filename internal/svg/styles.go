package svg

import (
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Styles maps mask layers to presentation attributes for vector output.
// The YAML format mirrors `layerstyles.yaml`.
type Styles struct {
	DefaultFill    string       `json:"defaultFill" yaml:"default_fill"`
	DefaultOpacity float64      `json:"defaultOpacity" yaml:"default_opacity"`
	Layers         []LayerStyle `json:"layers" yaml:"layers"`
}

// LayerStyle is the presentation of one mask layer.
type LayerStyle struct {
	Layer   int     `json:"layer" yaml:"layer"`
	Name    string  `json:"name" yaml:"name"`
	Fill    string  `json:"fill" yaml:"fill"`
	Opacity float64 `json:"opacity" yaml:"opacity"`
}

// DefaultStyles returns the built-in palette for the three mask layers.
func DefaultStyles() *Styles {
	return &Styles{
		DefaultFill:    "#7f7f7f",
		DefaultOpacity: 0.6,
		Layers: []LayerStyle{
			{Layer: 0, Name: "connection", Fill: "#1f77b4", Opacity: 0.6},
			{Layer: 1, Name: "wire", Fill: "#ff7f0e", Opacity: 0.6},
			{Layer: 2, Name: "junction", Fill: "#2ca02c", Opacity: 0.8},
		},
	}
}

// For resolves the style for a layer, falling back to the defaults for
// anything the file does not cover.
func (s *Styles) For(layer int) LayerStyle {
	style := LayerStyle{Layer: layer}
	for _, ls := range s.Layers {
		if ls.Layer == layer {
			style = ls
			break
		}
	}
	if style.Fill == "" {
		style.Fill = s.DefaultFill
	}
	if style.Fill == "" {
		style.Fill = "#7f7f7f"
	}
	if style.Opacity <= 0 {
		style.Opacity = s.DefaultOpacity
	}
	if style.Opacity <= 0 {
		style.Opacity = 1
	}
	return style
}

// StyleStore holds the active palette behind a lock so handlers and
// exporters share one set of styles.
type StyleStore struct {
	mu     sync.RWMutex
	styles *Styles
}

// NewStyleStore creates a store seeded with the given styles, or the
// built-in palette when styles is nil.
func NewStyleStore(styles *Styles) *StyleStore {
	if styles == nil {
		styles = DefaultStyles()
	}
	return &StyleStore{styles: styles}
}

// Current returns the active styles.
func (st *StyleStore) Current() *Styles {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.styles
}

// Update replaces the active styles.
func (st *StyleStore) Update(styles *Styles) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.styles = styles
}

// ParseStyles parses a YAML layer style file.
func ParseStyles(filePath string) (*Styles, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseStylesFromReader(file)
}

// ParseStylesFromReader parses styles from an io.Reader.
func ParseStylesFromReader(r io.Reader) (*Styles, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var styles Styles
	if err := yaml.Unmarshal(data, &styles); err != nil {
		return nil, fmt.Errorf("parsing layer styles: %w", err)
	}

	return &styles, nil
}
