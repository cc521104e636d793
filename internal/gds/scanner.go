package gds

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/qubitmask/backend/internal/geometry"
)

// Library is the decoded summary of a stream: enough structure to inspect
// and verify an exported file.
type Library struct {
	Name       string
	Version    int16
	UserUnit   float64 // meters per user unit
	DBUnit     float64 // meters per database unit
	Structures []Structure
}

// Structure is one named cell of the stream.
type Structure struct {
	Name       string
	Boundaries []Boundary
	Placements []Placement
}

// Boundary is a polygon element. Points are converted back to user units
// and the closing vertex is dropped.
type Boundary struct {
	Layer    int
	Datatype int
	Points   []geometry.Point
}

// Placement is an SREF element.
type Placement struct {
	CellName string
	Origin   geometry.Point
	Rotation float64
}

// Structure looks up a decoded structure by name.
func (l *Library) Structure(name string) (*Structure, bool) {
	for i := range l.Structures {
		if l.Structures[i].Name == name {
			return &l.Structures[i], true
		}
	}
	return nil, false
}

// Layers returns the sorted distinct layer numbers across all boundaries.
func (l *Library) Layers() []int {
	seen := make(map[int]struct{})
	for _, s := range l.Structures {
		for _, b := range s.Boundaries {
			seen[b.Layer] = struct{}{}
		}
	}
	layers := make([]int, 0, len(seen))
	for layer := range seen {
		layers = append(layers, layer)
	}
	sort.Ints(layers)
	return layers
}

// Decoder reads a GDSII stream back into a Library summary.
type Decoder struct {
	reader io.Reader
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{reader: r}
}

// Decode consumes the stream through ENDLIB.
func (dec *Decoder) Decode() (*Library, error) {
	first, err := readRecord(dec.reader)
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if first.Type != recHeader || len(first.Payload) < 2 {
		return nil, fmt.Errorf("not a GDSII stream: first record %#02x", first.Type)
	}

	lib := &Library{Version: int16(binary.BigEndian.Uint16(first.Payload))}

	var (
		current    *Structure
		boundary   *Boundary
		placement  *Placement
		unitsPerDB float64 // user units per database unit
	)

	for {
		rec, err := readRecord(dec.reader)
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("stream ends before ENDLIB")
			}
			return nil, err
		}

		switch rec.Type {
		case recBgnLib, recBgnStr:
			// Timestamps carry no state we keep.
		case recLibName:
			lib.Name = asciiValue(rec.Payload)
		case recUnits:
			if len(rec.Payload) < 16 {
				return nil, fmt.Errorf("short UNITS record: %d bytes", len(rec.Payload))
			}
			dbInUser := decodeReal8(binary.BigEndian.Uint64(rec.Payload[:8]))
			dbInMeters := decodeReal8(binary.BigEndian.Uint64(rec.Payload[8:16]))
			lib.DBUnit = dbInMeters
			if dbInUser != 0 {
				lib.UserUnit = dbInMeters / dbInUser
			}
			unitsPerDB = dbInUser
		case recStrName:
			lib.Structures = append(lib.Structures, Structure{Name: asciiValue(rec.Payload)})
			current = &lib.Structures[len(lib.Structures)-1]
		case recBoundary:
			boundary = &Boundary{}
		case recSRef:
			placement = &Placement{}
		case recLayer:
			if boundary != nil && len(rec.Payload) >= 2 {
				boundary.Layer = int(int16(binary.BigEndian.Uint16(rec.Payload)))
			}
		case recDatatype:
			if boundary != nil && len(rec.Payload) >= 2 {
				boundary.Datatype = int(int16(binary.BigEndian.Uint16(rec.Payload)))
			}
		case recSName:
			if placement != nil {
				placement.CellName = asciiValue(rec.Payload)
			}
		case recSTrans:
			// The writer never sets mirror or magnification bits.
		case recAngle:
			if placement != nil && len(rec.Payload) >= 8 {
				placement.Rotation = decodeReal8(binary.BigEndian.Uint64(rec.Payload[:8]))
			}
		case recXY:
			pts, err := decodeXY(rec.Payload, unitsPerDB)
			if err != nil {
				return nil, err
			}
			switch {
			case boundary != nil:
				boundary.Points = trimClosingVertex(pts)
			case placement != nil && len(pts) > 0:
				placement.Origin = pts[0]
			}
		case recEndEl:
			switch {
			case boundary != nil && current != nil:
				current.Boundaries = append(current.Boundaries, *boundary)
			case placement != nil && current != nil:
				current.Placements = append(current.Placements, *placement)
			}
			boundary, placement = nil, nil
		case recEndStr:
			current = nil
		case recEndLib:
			return lib, nil
		default:
			// Records this scanner does not model (paths, text, properties)
			// are skipped; their payloads were already consumed.
		}
	}
}

func decodeXY(payload []byte, unitsPerDB float64) ([]geometry.Point, error) {
	if len(payload)%8 != 0 {
		return nil, fmt.Errorf("XY payload is not int32 pairs: %d bytes", len(payload))
	}
	if unitsPerDB == 0 {
		unitsPerDB = 1
	}
	pts := make([]geometry.Point, len(payload)/8)
	for i := range pts {
		x := int32(binary.BigEndian.Uint32(payload[8*i:]))
		y := int32(binary.BigEndian.Uint32(payload[8*i+4:]))
		pts[i] = geometry.Point{X: float64(x) * unitsPerDB, Y: float64(y) * unitsPerDB}
	}
	return pts, nil
}

func trimClosingVertex(pts []geometry.Point) []geometry.Point {
	if n := len(pts); n > 1 && pts[0] == pts[n-1] {
		return pts[:n-1]
	}
	return pts
}

// ScanFile decodes the stream at path.
func ScanFile(path string) (*Library, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return NewDecoder(file).Decode()
}

// DetectFormat checks whether a file begins with a GDSII HEADER record.
func DetectFormat(filePath string) (bool, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return false, err
	}
	defer file.Close()

	var header [6]byte
	if _, err := io.ReadFull(file, header[:]); err != nil {
		return false, err
	}
	length := binary.BigEndian.Uint16(header[:2])
	return length == 6 && header[2] == recHeader && header[3] == dataInt16, nil
}
