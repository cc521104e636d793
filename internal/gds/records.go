/*
Package gds reads and writes GDSII stream format, the binary interchange
format photomask tooling consumes.

A GDSII file is a flat sequence of records:

	[Record Header] - 4 bytes: uint16 total length, uint8 record type, uint8 data type
	[Payload]       - length-4 bytes, big-endian

Library layout:

	HEADER BGNLIB LIBNAME UNITS
	  { BGNSTR STRNAME { element } ENDSTR }*
	ENDLIB

where element is either a polygon:

	BOUNDARY LAYER DATATYPE XY ENDEL

or a cell placement:

	SREF SNAME [STRANS ANGLE] XY ENDEL

Coordinates are int32 database units; UNITS carries the database unit size
in user units and in meters as excess-64 base-16 reals. BOUNDARY XY repeats
the first vertex to close the polygon.
*/
package gds

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Record types.
const (
	recHeader   byte = 0x00
	recBgnLib   byte = 0x01
	recLibName  byte = 0x02
	recUnits    byte = 0x03
	recEndLib   byte = 0x04
	recBgnStr   byte = 0x05
	recStrName  byte = 0x06
	recEndStr   byte = 0x07
	recBoundary byte = 0x08
	recSRef     byte = 0x0A
	recLayer    byte = 0x0D
	recDatatype byte = 0x0E
	recXY       byte = 0x10
	recEndEl    byte = 0x11
	recSName    byte = 0x12
	recSTrans   byte = 0x1A
	recAngle    byte = 0x1C
)

// Data types.
const (
	dataNone   byte = 0x00
	dataBitArr byte = 0x01
	dataInt16  byte = 0x02
	dataInt32  byte = 0x03
	dataReal8  byte = 0x05
	dataASCII  byte = 0x06
)

// FormatVersion is the stream version written into HEADER records.
const FormatVersion int16 = 600

// Record headers carry the total length in a uint16, so one record holds at
// most this much payload.
const maxRecordPayload = math.MaxUint16 - 4

// record is one header-plus-payload unit of the stream.
type record struct {
	Type    byte
	Data    byte
	Payload []byte
}

// writeRecord frames and writes a single record.
func writeRecord(w io.Writer, recType, dataType byte, payload []byte) error {
	if len(payload) > maxRecordPayload {
		return fmt.Errorf("record %#02x payload too large: %d bytes", recType, len(payload))
	}
	header := [4]byte{}
	binary.BigEndian.PutUint16(header[:2], uint16(len(payload)+4))
	header[2] = recType
	header[3] = dataType
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

// readRecord reads the next record. io.EOF surfaces only on a clean record
// boundary; a short header or payload is an unexpected EOF.
func readRecord(r io.Reader) (*record, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("truncated record header: %w", err)
		}
		return nil, err
	}
	length := binary.BigEndian.Uint16(header[:2])
	if length < 4 {
		return nil, fmt.Errorf("invalid record length %d", length)
	}
	rec := &record{Type: header[2], Data: header[3]}
	if length > 4 {
		rec.Payload = make([]byte, length-4)
		if _, err := io.ReadFull(r, rec.Payload); err != nil {
			return nil, fmt.Errorf("truncated record %#02x payload: %w", rec.Type, err)
		}
	}
	return rec, nil
}

// int16Payload packs values big-endian.
func int16Payload(values ...int16) []byte {
	buf := make([]byte, 2*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(buf[2*i:], uint16(v))
	}
	return buf
}

// int32Payload packs values big-endian.
func int32Payload(values ...int32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint32(buf[4*i:], uint32(v))
	}
	return buf
}

// asciiPayload pads the string with a trailing NUL to an even length, as
// the format requires.
func asciiPayload(s string) []byte {
	if len(s)%2 == 0 {
		return []byte(s)
	}
	return append([]byte(s), 0)
}

// asciiValue strips the even-length padding back off.
func asciiValue(payload []byte) string {
	if n := len(payload); n > 0 && payload[n-1] == 0 {
		payload = payload[:n-1]
	}
	return string(payload)
}

// encodeReal8 converts a float64 to the excess-64 base-16 representation:
// sign bit, 7-bit exponent, 56-bit mantissa normalized to [1/16, 1).
func encodeReal8(v float64) uint64 {
	if v == 0 {
		return 0
	}
	var sign uint64
	if v < 0 {
		sign = 1 << 63
		v = -v
	}
	exp := 64
	for v >= 1 {
		v /= 16
		exp++
	}
	for v < 1.0/16 {
		v *= 16
		exp--
	}
	if exp < 0 || exp > 127 {
		// Out of representable range; saturate rather than wrap.
		if exp < 0 {
			return sign
		}
		exp = 127
	}
	mantissa := uint64(v * (1 << 56))
	return sign | uint64(exp)<<56 | mantissa
}

// decodeReal8 is the inverse of encodeReal8.
func decodeReal8(bits uint64) float64 {
	if bits == 0 {
		return 0
	}
	sign := 1.0
	if bits&(1<<63) != 0 {
		sign = -1
	}
	exp := int(bits>>56) & 0x7F
	mantissa := float64(bits&(1<<56-1)) / (1 << 56)
	return sign * mantissa * math.Pow(16, float64(exp-64))
}

// real8Payload packs values as consecutive 8-byte reals.
func real8Payload(values ...float64) []byte {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint64(buf[8*i:], encodeReal8(v))
	}
	return buf
}
