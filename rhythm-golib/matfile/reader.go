package matfile

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"io/ioutil"
	"math"
	"os"

	"github.com/rhythmlab/rhythmlab/rhythm-golib/errors"
)

// ReadFile reads all matrices from the MAT 5 container at path.
func ReadFile(path string) (map[string]Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	vars, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return vars, nil
}

// Read parses a MAT 5 stream and returns its matrices keyed by variable
// name. Only little-endian files are supported.
func Read(r io.Reader) (map[string]Matrix, error) {
	hdr := make([]byte, headerLen)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, errors.Wrapf(err, "reading header")
	}
	if hdr[126] == 'M' && hdr[127] == 'I' {
		return nil, errors.Errorf("big-endian MAT files are not supported")
	}
	if hdr[126] != 'I' || hdr[127] != 'M' {
		return nil, errors.Errorf("not a MAT 5 file (bad endian indicator %q)", string(hdr[126:128]))
	}

	vars := make(map[string]Matrix)
	for {
		dataType, data, err := readElement(r)
		if err == io.EOF {
			return vars, nil
		}
		if err != nil {
			return nil, err
		}

		if dataType == miCompressed {
			zr, err := zlib.NewReader(bytes.NewReader(data))
			if err != nil {
				return nil, errors.Wrapf(err, "opening compressed element")
			}
			raw, err := ioutil.ReadAll(zr)
			zr.Close()
			if err != nil {
				return nil, errors.Wrapf(err, "decompressing element")
			}
			dataType, data, err = readElement(bytes.NewReader(raw))
			if err != nil {
				return nil, errors.Wrapf(err, "parsing compressed element")
			}
		}

		if dataType != miMatrix {
			// non-matrix top-level elements are skipped
			continue
		}

		name, m, err := parseMatrix(data)
		if err != nil {
			return nil, err
		}
		vars[name] = m
	}
}

// readElement reads one full top-level element (tag plus data). Top-level
// elements are not written in the small data element format.
func readElement(r io.Reader) (uint32, []byte, error) {
	var tag [8]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return 0, nil, errors.Errorf("truncated element tag")
		}
		return 0, nil, err
	}
	dataType := binary.LittleEndian.Uint32(tag[:4])
	nbytes := binary.LittleEndian.Uint32(tag[4:])

	data := make([]byte, nbytes)
	if _, err := io.ReadFull(r, data); err != nil {
		return 0, nil, errors.Wrapf(err, "reading element body (%d bytes)", nbytes)
	}
	return dataType, data, nil
}

// cursor walks the sub-elements of a matrix body, handling both regular and
// small data element tags and their 8-byte alignment padding.
type cursor struct {
	buf []byte
	off int
}

func (c *cursor) done() bool {
	return c.off >= len(c.buf)
}

func (c *cursor) next() (uint32, []byte, error) {
	if c.off+8 > len(c.buf) {
		return 0, nil, errors.Errorf("truncated sub-element at offset %d", c.off)
	}
	first := binary.LittleEndian.Uint32(c.buf[c.off:])
	if first>>16 != 0 {
		// small data element: type and length packed into the first word
		dataType := first & 0xFFFF
		nbytes := int(first >> 16)
		if nbytes > 4 {
			return 0, nil, errors.Errorf("small sub-element claims %d bytes", nbytes)
		}
		data := c.buf[c.off+4 : c.off+4+nbytes]
		c.off += 8
		return dataType, data, nil
	}

	dataType := first
	nbytes := int(binary.LittleEndian.Uint32(c.buf[c.off+4:]))
	start := c.off + 8
	if start+nbytes > len(c.buf) {
		return 0, nil, errors.Errorf("sub-element of %d bytes overruns matrix body", nbytes)
	}
	c.off = start + nbytes + (8-nbytes%8)%8
	return dataType, c.buf[start : start+nbytes], nil
}

func parseMatrix(body []byte) (string, Matrix, error) {
	c := &cursor{buf: body}

	// array flags
	dataType, flags, err := c.next()
	if err != nil {
		return "", Matrix{}, err
	}
	if dataType != miUint32 || len(flags) < 8 {
		return "", Matrix{}, errors.Errorf("malformed array flags sub-element")
	}
	class := binary.LittleEndian.Uint32(flags) & 0xFF
	if class < mxDoubleClass || class > mxUint64Class {
		return "", Matrix{}, errors.Errorf("unsupported array class %d (only real numeric arrays)", class)
	}

	// dimensions
	dataType, dims, err := c.next()
	if err != nil {
		return "", Matrix{}, err
	}
	if dataType != miInt32 {
		return "", Matrix{}, errors.Errorf("malformed dimensions sub-element")
	}
	if len(dims) != 8 {
		return "", Matrix{}, errors.Errorf("%d-dimensional arrays are not supported", len(dims)/4)
	}
	rows := int(int32(binary.LittleEndian.Uint32(dims)))
	cols := int(int32(binary.LittleEndian.Uint32(dims[4:])))

	// array name
	dataType, nameBytes, err := c.next()
	if err != nil {
		return "", Matrix{}, err
	}
	if dataType != miInt8 {
		return "", Matrix{}, errors.Errorf("malformed array name sub-element")
	}
	name := string(nameBytes)

	// real part
	dataType, real, err := c.next()
	if err != nil {
		return "", Matrix{}, err
	}
	colMajor, err := parseNumeric(dataType, real)
	if err != nil {
		return "", Matrix{}, errors.Wrapf(err, "variable %q", name)
	}
	if len(colMajor) != rows*cols {
		return "", Matrix{}, errors.Errorf("variable %q: %dx%d dims but %d values", name, rows, cols, len(colMajor))
	}
	if !c.done() {
		return "", Matrix{}, errors.Errorf("variable %q: complex matrices are not supported", name)
	}

	data := make([]float64, rows*cols)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			data[i*cols+j] = colMajor[j*rows+i]
		}
	}
	return name, Matrix{Rows: rows, Cols: cols, Data: data}, nil
}

// parseNumeric converts an on-disk numeric sub-element to float64s. The
// element type may be narrower than the array class; values are widened.
func parseNumeric(dataType uint32, data []byte) ([]float64, error) {
	le := binary.LittleEndian
	switch dataType {
	case miDouble:
		out := make([]float64, len(data)/8)
		for i := range out {
			out[i] = math.Float64frombits(le.Uint64(data[8*i:]))
		}
		return out, nil
	case miSingle:
		out := make([]float64, len(data)/4)
		for i := range out {
			out[i] = float64(math.Float32frombits(le.Uint32(data[4*i:])))
		}
		return out, nil
	case miInt8:
		out := make([]float64, len(data))
		for i := range out {
			out[i] = float64(int8(data[i]))
		}
		return out, nil
	case miUint8:
		out := make([]float64, len(data))
		for i := range out {
			out[i] = float64(data[i])
		}
		return out, nil
	case miInt16:
		out := make([]float64, len(data)/2)
		for i := range out {
			out[i] = float64(int16(le.Uint16(data[2*i:])))
		}
		return out, nil
	case miUint16:
		out := make([]float64, len(data)/2)
		for i := range out {
			out[i] = float64(le.Uint16(data[2*i:]))
		}
		return out, nil
	case miInt32:
		out := make([]float64, len(data)/4)
		for i := range out {
			out[i] = float64(int32(le.Uint32(data[4*i:])))
		}
		return out, nil
	case miUint32:
		out := make([]float64, len(data)/4)
		for i := range out {
			out[i] = float64(le.Uint32(data[4*i:]))
		}
		return out, nil
	case miInt64:
		out := make([]float64, len(data)/8)
		for i := range out {
			out[i] = float64(int64(le.Uint64(data[8*i:])))
		}
		return out, nil
	case miUint64:
		out := make([]float64, len(data)/8)
		for i := range out {
			out[i] = float64(le.Uint64(data[8*i:]))
		}
		return out, nil
	default:
		return nil, errors.Errorf("unsupported numeric element type %d", dataType)
	}
}
