// Package gf2 implements the bit-packed GF(2) linear algebra used to
// find a reverse hash: LUP decomposition of a matrix of row vectors
// over GF(2), in-place forward/backward substitution, and the
// iterative row-substitution search for a non-singular basis.
//
// Every matrix is a slice of rows, each row a byte slice of the same
// length holding 8*length bits, least significant bit first. This
// mirrors the bit-packed layout the rest of the repository uses for
// coefficient flags.
package gf2

// HashFunc computes the pseudorandom row for a given modifiable-bit
// index and stores it (XORed into any existing content) in row.
type HashFunc func(row []byte, index uint32)

// Decompose performs in-place LUP decomposition of matrix[start:] against
// the first `height` rows, pivoting on columns start..8*length-1. It
// returns the number of rows successfully reduced to row-echelon form,
// which equals 8*length on full success, or a smaller value if the
// matrix turned out to be singular given the rows available so far.
//
// matrix, indexes are permuted together: a swap of two rows swaps the
// corresponding entries of indexes.
func Decompose(length, height int, matrix [][]byte, indexes []uint32, start int) int {
	width := 8 * length

	i := start

	for ; i < width; i++ {
		index := i / 8
		shift := uint(i % 8)

		var pivot []byte

		j := i

		for ; j < height; j++ {
			if matrix[j][index]>>shift&1 == 1 {
				pivot = matrix[j]
				matrix[j], matrix[i] = matrix[i], matrix[j]
				indexes[j], indexes[i] = indexes[i], indexes[j]

				break
			}
		}

		if j == height {
			break
		}

		for j++; j < height; j++ {
			row := matrix[j]

			if row[index]>>shift&1 == 1 {
				row[index] ^= pivot[index] & (0xfe << shift)

				for k := index + 1; k < length; k++ {
					row[k] ^= pivot[k]
				}
			}
		}
	}

	return i
}

// AdaptRow reduces matrix[i] against the already-decomposed rows
// 0..i-1 and reports whether the result still has a set bit at column
// i, i.e. whether it can serve as the pivot row for that column.
func AdaptRow(length int, matrix [][]byte, i int) bool {
	row := matrix[i]

	for j := 0; j < i; j++ {
		index := j / 8
		shift := uint(j % 8)

		if row[index]>>shift&1 == 1 {
			pivot := matrix[j]

			row[index] ^= pivot[index] & (0xfe << shift)

			for k := index + 1; k < length; k++ {
				row[k] ^= pivot[k]
			}
		}
	}

	return row[i/8]>>uint(i%8)&1 == 1
}

// DivideVector solves the decomposed system in place: vector is
// reduced by forward substitution against matrix, then solved by
// backward substitution, leaving the solution in vector.
func DivideVector(length int, vector []byte, matrix [][]byte) {
	width := 8 * length

	for i := 0; i < width; i++ {
		index := i / 8
		shift := uint(i % 8)

		if vector[index]>>shift&1 == 1 {
			row := matrix[i]

			vector[index] ^= row[index] & (0xfe << shift)

			for j := index + 1; j < length; j++ {
				vector[j] ^= row[j]
			}
		}
	}

	for i := width; i > 0; {
		i--

		index := i / 8
		shift := uint(i % 8)

		if vector[index]>>shift&1 == 1 {
			row := matrix[i]

			for j := 0; j < index; j++ {
				vector[j] ^= row[j]
			}

			vector[index] ^= row[index] & (0xff >> (8 - shift))
		}
	}
}

// Unhash finds a set of `8*length` modifiable bits (plus up to
// paddingBitsCount extra padding bits if needed) whose combined hash
// rows form a non-singular GF(2) matrix, and solves for which of those
// bits must be flipped to steer the hash of the payload to the value
// carried in vector.
//
// matrix must have at least 8*length+*paddingBitsCount rows of length
// bytes each, and indexes must list that many candidate bit indexes,
// the first 8*length of which are the mandatory positions and the
// rest are spare padding positions. On success, indexes is reordered
// so that vector's bit i corresponds to indexes[i], and
// *paddingBitsCount holds the count of padding rows actually used
// (unless fullPadding is set, in which case all of them are used and
// the count is left untouched).
//
// Returns false if no non-singular combination could be found within
// the available padding budget.
func Unhash(
	length int,
	paddingBitsCount *int,
	vector []byte,
	fullPadding bool,
	matrix [][]byte,
	hash HashFunc,
	indexes []uint32,
) bool {
	width := 8 * length

	for i := 0; i < width; i++ {
		for k := range matrix[i] {
			matrix[i][k] = 0
		}

		hash(matrix[i], indexes[i])
	}

	decomposedHeight := Decompose(length, width, matrix, indexes, 0)
	addedCount := 0

	for decomposedHeight != width {
		found := false

		for ; addedCount < *paddingBitsCount && !found; addedCount++ {
			temp := matrix[decomposedHeight]

			for k := range matrix[width+addedCount] {
				matrix[width+addedCount][k] = 0
			}
			hash(matrix[width+addedCount], indexes[width+addedCount])

			matrix[decomposedHeight] = matrix[width+addedCount]
			matrix[width+addedCount] = temp

			found = AdaptRow(length, matrix, decomposedHeight)

			if found {
				indexes[decomposedHeight], indexes[width+addedCount] = indexes[width+addedCount], indexes[decomposedHeight]
			} else {
				matrix[width+addedCount] = matrix[decomposedHeight]
				matrix[decomposedHeight] = temp
			}
		}

		if !found {
			return false
		}

		decomposedHeight = Decompose(length, width+addedCount, matrix, indexes, decomposedHeight)
	}

	if !fullPadding {
		*paddingBitsCount = addedCount
	}

	for i := 0; i < *paddingBitsCount; i++ {
		if vector[length+i/8]>>uint(i%8)&1 == 1 {
			hash(vector[:length], indexes[width+i])
		}
	}

	DivideVector(length, vector, matrix)

	return true
}
