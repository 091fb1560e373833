// Package connector provides transition costs between adjacent words.
package connector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// InvalidCost is returned for pairs outside the matrix.
const InvalidCost = 30000

// Connector returns the cost of a word with right id rid followed by a word
// with left id lid.
type Connector interface {
	TransitionCost(rid, lid uint16) int
}

// Matrix is a dense rid x lid cost table.
type Matrix struct {
	size  int
	costs []int16
}

// NewMatrix returns a size x size matrix filled with cost.
func NewMatrix(size, cost int) *Matrix {
	m := &Matrix{size: size, costs: make([]int16, size*size)}
	for i := range m.costs {
		m.costs[i] = clamp(cost)
	}
	return m
}

func clamp(cost int) int16 {
	if cost > math.MaxInt16 {
		return math.MaxInt16
	}
	if cost < math.MinInt16 {
		return math.MinInt16
	}
	return int16(cost)
}

// Size is the number of ids on each side.
func (m *Matrix) Size() int {
	return m.size
}

// Set stores the cost of rid followed by lid.
func (m *Matrix) Set(rid, lid uint16, cost int) {
	if int(rid) >= m.size || int(lid) >= m.size {
		return
	}
	m.costs[int(rid)*m.size+int(lid)] = clamp(cost)
}

func (m *Matrix) TransitionCost(rid, lid uint16) int {
	if int(rid) >= m.size || int(lid) >= m.size {
		return InvalidCost
	}
	return int(m.costs[int(rid)*m.size+int(lid)])
}

// Estimate derives costs -500*log(P(lid|rid)) from bigram counts indexed
// [rid][lid], with add-one smoothing. Pairs never seen get the smoothed
// floor, so every pair stays connectable.
func Estimate(size int, bigram map[[2]uint16]int) *Matrix {
	left := make([]int, size)
	for k, c := range bigram {
		if int(k[0]) < size && int(k[1]) < size {
			left[k[0]] += c
		}
	}
	m := NewMatrix(size, 0)
	for rid := 0; rid < size; rid++ {
		total := float64(left[rid] + size)
		for lid := 0; lid < size; lid++ {
			c := bigram[[2]uint16{uint16(rid), uint16(lid)}]
			p := float64(c+1) / total
			cost := int(-500 * math.Log(p))
			if cost >= InvalidCost {
				cost = InvalidCost - 1
			}
			m.Set(uint16(rid), uint16(lid), cost)
		}
	}
	return m
}

var matrixMagic = [4]byte{'H', 'C', 'O', 'N'}

// WriteTo writes the matrix in little endian.
func (m *Matrix) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(matrixMagic[:]); err != nil {
		return 0, err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(m.size)); err != nil {
		return 0, err
	}
	if err := binary.Write(bw, binary.LittleEndian, m.costs); err != nil {
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return int64(8 + 2*len(m.costs)), nil
}

// ReadMatrix reads a matrix written by WriteTo.
func ReadMatrix(r io.Reader) (*Matrix, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("read connector header: %w", err)
	}
	if magic != matrixMagic {
		return nil, errors.New("not a connector matrix")
	}
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, fmt.Errorf("read connector size: %w", err)
	}
	m := &Matrix{size: int(size), costs: make([]int16, int(size)*int(size))}
	if err := binary.Read(r, binary.LittleEndian, m.costs); err != nil {
		return nil, fmt.Errorf("read connector costs: %w", err)
	}
	return m, nil
}

// FromBytes decodes a matrix from the image section produced by WriteTo
// without going through a reader.
func FromBytes(b []byte) (*Matrix, error) {
	if len(b) < 8 || [4]byte(b[:4]) != matrixMagic {
		return nil, errors.New("not a connector matrix")
	}
	size := int(binary.LittleEndian.Uint32(b[4:8]))
	if len(b) < 8+2*size*size {
		return nil, fmt.Errorf("connector section truncated: %d bytes for size %d", len(b), size)
	}
	m := &Matrix{size: size, costs: make([]int16, size*size)}
	for i := range m.costs {
		m.costs[i] = int16(binary.LittleEndian.Uint16(b[8+2*i:]))
	}
	return m, nil
}
