// Package matfile reads and writes Level 5 MAT-file containers holding named
// numeric matrices. It covers the subset of the format the corpus pipeline
// persists: little-endian files of real 2-D numeric arrays, one element per
// variable, with zlib-compressed elements supported on read.
package matfile

import (
	"math"

	"github.com/rhythmlab/rhythmlab/rhythm-golib/errors"
)

// MAT-file data types (mi*) and array classes (mx*).
const (
	miInt8       = 1
	miUint8      = 2
	miInt16      = 3
	miUint16     = 4
	miInt32      = 5
	miUint32     = 6
	miSingle     = 7
	miDouble     = 9
	miInt64      = 12
	miUint64     = 13
	miMatrix     = 14
	miCompressed = 15

	mxDoubleClass = 6
	mxSingleClass = 7
	mxInt8Class   = 8
	mxUint8Class  = 9
	mxInt16Class  = 10
	mxUint16Class = 11
	mxInt32Class  = 12
	mxUint32Class = 13
	mxInt64Class  = 14
	mxUint64Class = 15
)

const headerLen = 128

// Matrix is a real 2-D numeric array. Data is stored row-major; the on-disk
// representation is column-major and the codec converts between the two.
type Matrix struct {
	Rows, Cols int
	Data       []float64
}

// New builds a Matrix from row-major data.
func New(rows, cols int, data []float64) (Matrix, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return Matrix{}, errors.Errorf("matrix of %dx%d needs %d values, got %d", rows, cols, rows*cols, len(data))
	}
	return Matrix{Rows: rows, Cols: cols, Data: data}, nil
}

// FromRows builds a Matrix from a slice of equally-sized rows.
func FromRows(rows [][]float64) (Matrix, error) {
	if len(rows) == 0 {
		return Matrix{}, nil
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return Matrix{}, errors.Errorf("row %d has %d values, expected %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return Matrix{Rows: len(rows), Cols: cols, Data: data}, nil
}

// FromVector builds a 1xN row vector, matching how NumPy 1-D arrays are
// persisted by default.
func FromVector(v []float64) Matrix {
	data := make([]float64, len(v))
	copy(data, v)
	return Matrix{Rows: 1, Cols: len(v), Data: data}
}

// FromInts builds a 1xN row vector from integer values.
func FromInts(v []int) Matrix {
	data := make([]float64, len(v))
	for i, x := range v {
		data[i] = float64(x)
	}
	return Matrix{Rows: 1, Cols: len(v), Data: data}
}

// NumEl returns the number of elements.
func (m Matrix) NumEl() int {
	return m.Rows * m.Cols
}

// At returns the element at row i, column j.
func (m Matrix) At(i, j int) float64 {
	return m.Data[i*m.Cols+j]
}

// ToRows returns the matrix as a slice of rows. The rows share no storage
// with the matrix.
func (m Matrix) ToRows() [][]float64 {
	rows := make([][]float64, m.Rows)
	for i := range rows {
		rows[i] = make([]float64, m.Cols)
		copy(rows[i], m.Data[i*m.Cols:(i+1)*m.Cols])
	}
	return rows
}

// Vector returns the elements flattened in row-major order. Useful for 1xN
// and Nx1 matrices.
func (m Matrix) Vector() []float64 {
	out := make([]float64, len(m.Data))
	copy(out, m.Data)
	return out
}

// T returns the transpose.
func (m Matrix) T() Matrix {
	data := make([]float64, m.NumEl())
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			data[j*m.Rows+i] = m.At(i, j)
		}
	}
	return Matrix{Rows: m.Cols, Cols: m.Rows, Data: data}
}

// Ints returns the elements rounded to the nearest integer, flattened in
// row-major order.
func (m Matrix) Ints() []int {
	out := make([]int, len(m.Data))
	for i, v := range m.Data {
		out[i] = int(math.Round(v))
	}
	return out
}
