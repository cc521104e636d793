package qubit

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// documentSchema is the fixed contract for design documents: four required
// parameter groups, every field a JSON number. Unknown extra keys are
// tolerated at any level.
const documentSchema = `{
  "type": "object",
  "properties": {
    "junction": {
      "type": "object",
      "properties": {
        "junction_width": {"type": "number"},
        "junction_height": {"type": "number"},
        "junction_offset": {"type": "number"}
      },
      "required": ["junction_width", "junction_height", "junction_offset"]
    },
    "wire": {
      "type": "object",
      "properties": {
        "wire_width": {"type": "number"},
        "wire_height": {"type": "number"}
      },
      "required": ["wire_width", "wire_height"]
    },
    "connection": {
      "type": "object",
      "properties": {
        "connection_radius": {"type": "number"}
      },
      "required": ["connection_radius"]
    },
    "layers": {
      "type": "object",
      "properties": {
        "junction_layer": {"type": "number"},
        "connection_layer": {"type": "number"},
        "wire_layer": {"type": "number"}
      },
      "required": ["junction_layer", "connection_layer", "wire_layer"]
    }
  },
  "required": ["junction", "wire", "connection", "layers"]
}`

var compiledSchema = jsonschema.MustCompileString("qubit-design.schema.json", documentSchema)

// document is the wire form of a design: parameters grouped by component.
// Layer numbers travel as JSON numbers, so they decode through float64.
type document struct {
	Junction   junctionGroup   `json:"junction"`
	Wire       wireGroup       `json:"wire"`
	Connection connectionGroup `json:"connection"`
	Layers     layerGroup      `json:"layers"`
}

type junctionGroup struct {
	JunctionWidth  float64 `json:"junction_width"`
	JunctionHeight float64 `json:"junction_height"`
	JunctionOffset float64 `json:"junction_offset"`
}

type wireGroup struct {
	WireWidth  float64 `json:"wire_width"`
	WireHeight float64 `json:"wire_height"`
}

type connectionGroup struct {
	ConnectionRadius float64 `json:"connection_radius"`
}

type layerGroup struct {
	JunctionLayer   float64 `json:"junction_layer"`
	WireLayer       float64 `json:"wire_layer"`
	ConnectionLayer float64 `json:"connection_layer"`
}

func newDocument(p Params) document {
	return document{
		Junction: junctionGroup{
			JunctionWidth:  p.JunctionWidth,
			JunctionHeight: p.JunctionHeight,
			JunctionOffset: p.JunctionOffset,
		},
		Wire: wireGroup{
			WireWidth:  p.WireWidth,
			WireHeight: p.WireHeight,
		},
		Connection: connectionGroup{
			ConnectionRadius: p.ConnectionRadius,
		},
		Layers: layerGroup{
			JunctionLayer:   float64(p.JunctionLayer),
			WireLayer:       float64(p.WireLayer),
			ConnectionLayer: float64(p.ConnectionLayer),
		},
	}
}

func (d document) params() Params {
	return Params{
		ConnectionRadius: d.Connection.ConnectionRadius,
		JunctionWidth:    d.Junction.JunctionWidth,
		JunctionHeight:   d.Junction.JunctionHeight,
		JunctionOffset:   d.Junction.JunctionOffset,
		WireWidth:        d.Wire.WireWidth,
		WireHeight:       d.Wire.WireHeight,
		WireLayer:        int(d.Layers.WireLayer),
		JunctionLayer:    int(d.Layers.JunctionLayer),
		ConnectionLayer:  int(d.Layers.ConnectionLayer),
	}
}

// Serialize renders the descriptor as a design document. A non-empty
// filename additionally writes the document to that file.
func (q *Qubit) Serialize(filename string) (string, error) {
	data, err := json.Marshal(newDocument(q.params))
	if err != nil {
		return "", fmt.Errorf("encoding design document: %w", err)
	}
	if filename != "" {
		if err := os.WriteFile(filename, data, 0o644); err != nil {
			return "", fmt.Errorf("writing design file %s: %w", filename, err)
		}
	}
	return string(data), nil
}

// FromJSON validates raw document bytes against the schema and builds a
// descriptor. A document that fails validation yields a nil descriptor;
// callers must check before use.
func FromJSON(data []byte) (*Qubit, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing design document: %w", err)
	}
	if err := compiledSchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("design document does not match schema: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding design document: %w", err)
	}
	return New(doc.params()), nil
}

// FromJSONString is FromJSON for a string document.
func FromJSONString(jsonString string) (*Qubit, error) {
	return FromJSON([]byte(jsonString))
}

// FromJSONFile reads and deserializes a design document file. Unreadable
// files yield a nil descriptor, same as invalid documents.
func FromJSONFile(filename string) (*Qubit, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading design file %s: %w", filename, err)
	}
	return FromJSON(data)
}
