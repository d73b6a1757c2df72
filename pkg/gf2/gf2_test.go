package gf2

import (
	"bytes"
	"testing"
)

// splitmixHash is a small, deterministic, non-cryptographic stand-in
// for the Salsa20-based HashFunc pkg/rang uses: good enough entropy to
// make the matrices in these tests non-singular in practice, with no
// dependency on any other package.
func splitmixHash(row []byte, index uint32) {
	x := uint64(index) + 1

	for i := range row {
		x += 0x9e3779b97f4a7c15
		z := x
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z = z ^ (z >> 31)
		row[i] ^= byte(z >> uint(8*(i%8)))
	}
}

func TestUnhashSolvesForExactTarget(t *testing.T) {
	const length = 2
	const width = 8 * length
	const paddingBitsCount = 8

	indexes := make([]uint32, width+paddingBitsCount)
	for i := range indexes {
		indexes[i] = uint32(10 + i)
	}

	target := []byte{0xab, 0xcd}

	vector := make([]byte, length+1)
	copy(vector, target)
	vector[length] = 0x55 // arbitrary fixed padding-bit choices

	matrix := make([][]byte, width+paddingBitsCount)
	for i := range matrix {
		matrix[i] = make([]byte, length)
	}

	paddingCount := paddingBitsCount
	if !Unhash(length, &paddingCount, vector, true, matrix, splitmixHash, indexes) {
		t.Fatal("Unhash reported a singular matrix for a well-conditioned random system")
	}

	acc := make([]byte, length)

	for i := 0; i < width; i++ {
		if vector[i/8]>>uint(i%8)&1 == 1 {
			splitmixHash(acc, indexes[i])
		}
	}

	for i := 0; i < paddingCount; i++ {
		if vector[length+i/8]>>uint(i%8)&1 == 1 {
			splitmixHash(acc, indexes[width+i])
		}
	}

	if !bytes.Equal(acc, target) {
		t.Fatalf("solved bit set hashes to %x, want %x", acc, target)
	}
}

func TestDecomposeIdentityRank(t *testing.T) {
	const length = 1
	const width = 8

	matrix := make([][]byte, width)
	indexes := make([]uint32, width)

	for i := 0; i < width; i++ {
		matrix[i] = []byte{1 << uint(i)}
		indexes[i] = uint32(i)
	}

	rank := Decompose(length, width, matrix, indexes, 0)
	if rank != width {
		t.Fatalf("rank = %d, want %d for an already-diagonal matrix", rank, width)
	}
}

func TestDecomposeDetectsSingular(t *testing.T) {
	const length = 1
	const width = 8

	matrix := make([][]byte, width)
	indexes := make([]uint32, width)

	for i := 0; i < width; i++ {
		// Row 1 duplicates row 0: the matrix is singular, rank < width.
		if i == 1 {
			matrix[i] = []byte{1}
		} else {
			matrix[i] = []byte{1 << uint(i)}
		}
		indexes[i] = uint32(i)
	}

	rank := Decompose(length, width, matrix, indexes, 0)
	if rank == width {
		t.Fatalf("rank = %d, want < %d for a singular matrix", rank, width)
	}
}

func TestDivideVectorSolvesDiagonalSystem(t *testing.T) {
	const length = 1
	const width = 8

	matrix := make([][]byte, width)
	for i := 0; i < width; i++ {
		matrix[i] = []byte{1 << uint(i)}
	}

	vector := []byte{0x5a}
	want := vector[0]

	DivideVector(length, vector, matrix)

	if vector[0] != want {
		t.Fatalf("solving the identity system changed the vector: got %x, want %x", vector[0], want)
	}
}
