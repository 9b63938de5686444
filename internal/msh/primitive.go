package msh

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"movies-msh/internal/scene"
)

const nameSize = 32

// DefaultCharmap is the single-byte code page used for names.
var DefaultCharmap = charmap.Windows1252

// reader is a little-endian cursor. The first short read sets err and every later read returns zero.
type reader struct {
	data  []byte
	off   int
	err   error
	names *charmap.Charmap
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.off+n > len(r.data) {
		r.truncate()
		return false
	}
	return true
}

func (r *reader) truncate() {
	if r.err == nil {
		r.err = ErrTruncated
		r.off = len(r.data)
	}
}

// fits reports whether count records of size bytes can remain in the stream.
func (r *reader) fits(count uint32, size int) bool {
	return uint64(count)*uint64(size) <= uint64(len(r.data)-r.off)
}

func (r *reader) skip(n int) {
	if r.need(n) {
		r.off += n
	}
}

func (r *reader) readU8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

func (r *reader) readI8() int8 {
	return int8(r.readU8())
}

func (r *reader) readBool() bool {
	return r.readU8() != 0
}

func (r *reader) readU16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *reader) readU32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *reader) readI32() int32 {
	return int32(r.readU32())
}

func (r *reader) readF32() float32 {
	return math.Float32frombits(r.readU32())
}

func (r *reader) readVec3() [3]float32 {
	return [3]float32{r.readF32(), r.readF32(), r.readF32()}
}

func (r *reader) readMatrix() scene.Matrix {
	var m scene.Matrix
	for i := range m {
		m[i] = r.readVec3()
	}
	return m
}

// readName reads a 32-byte NUL-padded name.
func (r *reader) readName() string {
	if !r.need(nameSize) {
		return ""
	}
	b := r.data[r.off : r.off+nameSize]
	r.off += nameSize
	for i, c := range b {
		if c == 0 {
			b = b[:i]
			break
		}
	}
	out, _, err := transform.Bytes(r.names.NewDecoder(), b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

func (r *reader) readControlMesh() scene.ControlMesh {
	vcount := r.readU32()
	fcount := r.readU32()
	var cm scene.ControlMesh
	if !r.fits(vcount, 12) || !r.fits(fcount, 6) {
		r.truncate()
		return cm
	}
	cm.Positions = make([][3]float32, vcount)
	for i := range cm.Positions {
		cm.Positions[i] = r.readVec3()
	}
	cm.Faces = make([][3]uint16, fcount)
	for i := range cm.Faces {
		cm.Faces[i] = [3]uint16{r.readU16(), r.readU16(), r.readU16()}
	}
	if fcount%2 == 1 {
		r.skip(2)
	}
	return cm
}

// writer accumulates the stream in memory so counts can be patched once known.
type writer struct {
	buf   []byte
	names *charmap.Charmap
}

func (w *writer) writeU8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) writeI8(v int8) {
	w.buf = append(w.buf, byte(v))
}

func (w *writer) writeBool(v bool) {
	if v {
		w.writeU8(1)
	} else {
		w.writeU8(0)
	}
}

func (w *writer) writeU16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *writer) writeU32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *writer) writeI32(v int32) {
	w.writeU32(uint32(v))
}

func (w *writer) writeF32(v float32) {
	w.writeU32(math.Float32bits(v))
}

func (w *writer) writeVec3(v [3]float32) {
	for _, c := range v {
		w.writeF32(c)
	}
}

func (w *writer) writeMatrix(m scene.Matrix) {
	for _, row := range m {
		w.writeVec3(row)
	}
}

func (w *writer) pad(n int) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
}

// reserveU32 writes a zero placeholder and returns its offset.
func (w *writer) reserveU32() int {
	off := len(w.buf)
	w.writeU32(0)
	return off
}

func (w *writer) patchU32(off int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[off:], v)
}

// encodeName converts s to the name charset and checks it fits a 32-byte field.
func encodeName(cm *charmap.Charmap, s string) ([]byte, error) {
	b, _, err := transform.Bytes(cm.NewEncoder(), []byte(s))
	if err != nil {
		return nil, errors.Wrapf(ErrNameCharset, "%q", s)
	}
	if len(b) > nameSize-1 {
		return nil, errors.Wrapf(ErrNameTooLong, "%q has %d bytes", s, len(b))
	}
	return b, nil
}

func (w *writer) writeName(s string) error {
	b, err := encodeName(w.names, s)
	if err != nil {
		return err
	}
	w.buf = append(w.buf, b...)
	w.pad(nameSize - len(b))
	return nil
}

func (w *writer) writeControlMesh(cm *scene.ControlMesh) error {
	for i, f := range cm.Faces {
		for _, v := range f {
			if int(v) >= len(cm.Positions) {
				return errors.Wrapf(ErrIndexRange, "face %d vertex %d of %d", i, v, len(cm.Positions))
			}
		}
	}
	w.writeU32(uint32(len(cm.Positions)))
	w.writeU32(uint32(len(cm.Faces)))
	for _, p := range cm.Positions {
		w.writeVec3(p)
	}
	for _, f := range cm.Faces {
		for _, v := range f {
			w.writeU16(v)
		}
	}
	if len(cm.Faces)%2 == 1 {
		w.pad(2)
	}
	return nil
}
