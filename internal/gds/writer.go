package gds

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/qubitmask/backend/internal/geometry"
)

// Encoder writes a geometry library as a GDSII stream.
type Encoder struct {
	writer io.Writer
	now    time.Time
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{writer: w, now: time.Now()}
}

// EncodeLibrary writes the complete stream for lib. Cell placements are
// preserved as SREF records, not flattened, so the hierarchy survives a
// round trip through other tools.
func (enc *Encoder) EncodeLibrary(lib *geometry.Library) error {
	// Database units per user unit; 1000 for micron/nanometer libraries.
	scale := lib.Unit / lib.Precision

	if err := writeRecord(enc.writer, recHeader, dataInt16, int16Payload(FormatVersion)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := writeRecord(enc.writer, recBgnLib, dataInt16, enc.timestamps()); err != nil {
		return fmt.Errorf("writing library begin: %w", err)
	}
	if err := writeRecord(enc.writer, recLibName, dataASCII, asciiPayload(lib.Name)); err != nil {
		return fmt.Errorf("writing library name: %w", err)
	}
	// UNITS carries the database unit twice: in user units, then in meters.
	if err := writeRecord(enc.writer, recUnits, dataReal8, real8Payload(lib.Precision/lib.Unit, lib.Precision)); err != nil {
		return fmt.Errorf("writing units: %w", err)
	}

	for _, cell := range lib.Cells() {
		if err := enc.encodeCell(cell, scale); err != nil {
			return fmt.Errorf("encoding cell %s: %w", cell.Name, err)
		}
	}

	if err := writeRecord(enc.writer, recEndLib, dataNone, nil); err != nil {
		return fmt.Errorf("writing library end: %w", err)
	}
	return nil
}

func (enc *Encoder) encodeCell(cell *geometry.Cell, scale float64) error {
	if err := writeRecord(enc.writer, recBgnStr, dataInt16, enc.timestamps()); err != nil {
		return err
	}
	if err := writeRecord(enc.writer, recStrName, dataASCII, asciiPayload(cell.Name)); err != nil {
		return err
	}
	for _, p := range cell.Shapes {
		if err := enc.encodeBoundary(p, scale); err != nil {
			return err
		}
	}
	for _, ref := range cell.Refs {
		if err := enc.encodeReference(ref, scale); err != nil {
			return err
		}
	}
	return writeRecord(enc.writer, recEndStr, dataNone, nil)
}

func (enc *Encoder) encodeBoundary(p *geometry.Polygon, scale float64) error {
	if err := writeRecord(enc.writer, recBoundary, dataNone, nil); err != nil {
		return err
	}
	if err := writeRecord(enc.writer, recLayer, dataInt16, int16Payload(int16(p.Layer))); err != nil {
		return err
	}
	if err := writeRecord(enc.writer, recDatatype, dataInt16, int16Payload(int16(p.Datatype))); err != nil {
		return err
	}

	// Closed outline: the first vertex repeats at the end.
	coords := make([]int32, 0, 2*(len(p.Points)+1))
	for _, pt := range p.Points {
		coords = append(coords, dbUnits(pt.X, scale), dbUnits(pt.Y, scale))
	}
	if len(p.Points) > 0 {
		coords = append(coords, dbUnits(p.Points[0].X, scale), dbUnits(p.Points[0].Y, scale))
	}
	if err := writeRecord(enc.writer, recXY, dataInt32, int32Payload(coords...)); err != nil {
		return err
	}
	return writeRecord(enc.writer, recEndEl, dataNone, nil)
}

func (enc *Encoder) encodeReference(ref *geometry.Reference, scale float64) error {
	if err := writeRecord(enc.writer, recSRef, dataNone, nil); err != nil {
		return err
	}
	if err := writeRecord(enc.writer, recSName, dataASCII, asciiPayload(ref.Cell.Name)); err != nil {
		return err
	}
	if ref.Rotation != 0 {
		// STRANS must precede ANGLE; no mirroring or magnification here.
		if err := writeRecord(enc.writer, recSTrans, dataBitArr, int16Payload(0)); err != nil {
			return err
		}
		if err := writeRecord(enc.writer, recAngle, dataReal8, real8Payload(ref.Rotation)); err != nil {
			return err
		}
	}
	origin := int32Payload(dbUnits(ref.Origin.X, scale), dbUnits(ref.Origin.Y, scale))
	if err := writeRecord(enc.writer, recXY, dataInt32, origin); err != nil {
		return err
	}
	return writeRecord(enc.writer, recEndEl, dataNone, nil)
}

// timestamps yields the 12 int16 fields BGNLIB and BGNSTR expect:
// modification and access time, both set to the encoder's creation time.
func (enc *Encoder) timestamps() []byte {
	t := enc.now
	fields := []int16{
		int16(t.Year()), int16(t.Month()), int16(t.Day()),
		int16(t.Hour()), int16(t.Minute()), int16(t.Second()),
	}
	return int16Payload(append(fields, fields...)...)
}

// dbUnits converts a user-unit coordinate to integer database units.
func dbUnits(v, scale float64) int32 {
	return int32(math.Round(v * scale))
}

// WriteFile encodes lib into a new file at path, overwriting any existing
// file.
func WriteFile(path string, lib *geometry.Library) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := NewEncoder(file).EncodeLibrary(lib); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
