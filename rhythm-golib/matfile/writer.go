package matfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"sort"

	"github.com/rhythmlab/rhythmlab/rhythm-golib/errors"
)

const headerText = "MATLAB 5.0 MAT-file, created by rhythmlab"

// WriteFile writes the named matrices to path as a MAT 5 container.
func WriteFile(path string, vars map[string]Matrix) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer errors.Defer(&err, f.Close)

	w := bufio.NewWriter(f)
	if err := Write(w, vars); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, "flushing %s", path)
	}
	return nil
}

// Write writes the named matrices to w. Variables are emitted in sorted name
// order so identical inputs produce identical bytes.
func Write(w io.Writer, vars map[string]Matrix) error {
	if err := writeHeader(w); err != nil {
		return err
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := writeMatrix(w, name, vars[name]); err != nil {
			return errors.Wrapf(err, "writing variable %q", name)
		}
	}
	return nil
}

func writeHeader(w io.Writer) error {
	var hdr [headerLen]byte
	for i := range hdr[:116] {
		hdr[i] = ' '
	}
	copy(hdr[:116], headerText)
	// bytes 116..123 stay zero: no subsystem-specific data
	binary.LittleEndian.PutUint16(hdr[124:126], 0x0100)
	hdr[126] = 'I'
	hdr[127] = 'M'
	_, err := w.Write(hdr[:])
	return err
}

// writeMatrix emits one miMATRIX element: array flags, dimensions, name and
// the real part as doubles in column-major order.
func writeMatrix(w io.Writer, name string, m Matrix) error {
	if len(m.Data) != m.Rows*m.Cols {
		return errors.Errorf("matrix of %dx%d has %d values", m.Rows, m.Cols, len(m.Data))
	}

	var body bytes.Buffer

	// array flags
	writeTag(&body, miUint32, 8)
	binary.Write(&body, binary.LittleEndian, uint32(mxDoubleClass))
	binary.Write(&body, binary.LittleEndian, uint32(0))

	// dimensions
	writeTag(&body, miInt32, 8)
	binary.Write(&body, binary.LittleEndian, int32(m.Rows))
	binary.Write(&body, binary.LittleEndian, int32(m.Cols))

	// array name
	writeTag(&body, miInt8, uint32(len(name)))
	body.WriteString(name)
	pad(&body, len(name))

	// real part, column-major
	writeTag(&body, miDouble, uint32(8*m.NumEl()))
	for j := 0; j < m.Cols; j++ {
		for i := 0; i < m.Rows; i++ {
			binary.Write(&body, binary.LittleEndian, m.Data[i*m.Cols+j])
		}
	}

	if err := writeTag(w, miMatrix, uint32(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

func writeTag(w io.Writer, dataType, nbytes uint32) error {
	if err := binary.Write(w, binary.LittleEndian, dataType); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, nbytes)
}

// pad advances the buffer to the next 8-byte boundary after n data bytes.
func pad(b *bytes.Buffer, n int) {
	for i := 0; i < (8-n%8)%8; i++ {
		b.WriteByte(0)
	}
}
