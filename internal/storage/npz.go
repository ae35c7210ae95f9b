package storage

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var ErrBadArray = errors.New("storage: malformed npy array")

// Array is a row-major float64 array of rank 1 or 2.
type Array struct {
	Shape []int
	Data  []float64
}

func (a Array) Rows() int {
	if len(a.Shape) == 0 {
		return 0
	}
	return a.Shape[0]
}

func (a Array) Cols() int {
	if len(a.Shape) < 2 {
		return 1
	}
	return a.Shape[1]
}

// Row returns row i of a 2-D array as a slice of Data.
func (a Array) Row(i int) []float64 {
	c := a.Cols()
	return a.Data[i*c : (i+1)*c]
}

func Vector(v []float64) Array {
	return Array{Shape: []int{len(v)}, Data: v}
}

// Matrix flattens rows, which must all share one length.
func Matrix(rows [][]float64) Array {
	if len(rows) == 0 {
		return Array{Shape: []int{0, 0}}
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for _, r := range rows {
		data = append(data, r...)
	}
	return Array{Shape: []int{len(rows), cols}, Data: data}
}

var npyMagic = []byte("\x93NUMPY")

func encodeNpy(a Array) []byte {
	dims := make([]string, len(a.Shape))
	for i, d := range a.Shape {
		dims[i] = strconv.Itoa(d)
	}
	shape := strings.Join(dims, ", ")
	if len(a.Shape) == 1 {
		shape += ","
	}
	header := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': (%s), }", shape)
	// Magic, version and length take 10 bytes; pad the header so the data
	// starts on a 64-byte boundary.
	pad := 64 - (10+len(header)+1)%64
	if pad == 64 {
		pad = 0
	}
	header += strings.Repeat(" ", pad) + "\n"

	var buf bytes.Buffer
	buf.Write(npyMagic)
	buf.Write([]byte{1, 0})
	binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	for _, v := range a.Data {
		binary.Write(&buf, binary.LittleEndian, math.Float64bits(v))
	}
	return buf.Bytes()
}

var shapeRe = regexp.MustCompile(`'shape':\s*\(([^)]*)\)`)

func decodeNpy(r io.Reader) (Array, error) {
	prefix := make([]byte, 10)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return Array{}, err
	}
	if !bytes.Equal(prefix[:6], npyMagic) || prefix[6] != 1 {
		return Array{}, fmt.Errorf("%w: unsupported header", ErrBadArray)
	}
	hlen := binary.LittleEndian.Uint16(prefix[8:10])
	header := make([]byte, hlen)
	if _, err := io.ReadFull(r, header); err != nil {
		return Array{}, err
	}
	h := string(header)
	if !strings.Contains(h, "'<f8'") || strings.Contains(h, "'fortran_order': True") {
		return Array{}, fmt.Errorf("%w: only little-endian C-order float64 is supported", ErrBadArray)
	}
	m := shapeRe.FindStringSubmatch(h)
	if m == nil {
		return Array{}, fmt.Errorf("%w: missing shape", ErrBadArray)
	}

	var shape []int
	total := 1
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil || d < 0 {
			return Array{}, fmt.Errorf("%w: shape %q", ErrBadArray, m[1])
		}
		shape = append(shape, d)
		total *= d
	}

	data := make([]float64, total)
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return Array{}, fmt.Errorf("%w: %v", ErrBadArray, err)
	}
	return Array{Shape: shape, Data: data}, nil
}

// WriteNpz writes arrays as a deflate-compressed .npz archive, one
// <name>.npy member per key, in the order given by names. The archive is
// built under a temporary name and renamed into place, so path never
// holds a partial bundle.
func WriteNpz(path string, names []string, arrays map[string]Array) error {
	tmp := path + ".tmp"
	if err := writeZip(tmp, names, arrays); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeZip(path string, names []string, arrays map[string]Array) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, name := range names {
		a, ok := arrays[name]
		if !ok {
			return fmt.Errorf("storage: no array named %q", name)
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name + ".npy", Method: zip.Deflate})
		if err != nil {
			return err
		}
		if _, err := w.Write(encodeNpy(a)); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return f.Close()
}

func ReadNpz(path string) (map[string]Array, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out := make(map[string]Array, len(zr.File))
	for _, file := range zr.File {
		name := strings.TrimSuffix(file.Name, ".npy")
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		a, err := decodeNpy(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file.Name, err)
		}
		out[name] = a
	}
	return out, nil
}
