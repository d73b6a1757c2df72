// Package eph5 implements the Eph5 steganographic engine: a keyed
// permutation and ARCFOUR keystream drive an F5-style matrix encoding
// (with LSB replacement as the k=1 special case) over the usable,
// non-zero DCT coefficients of a JPEG's first color component.
package eph5

import (
	"crypto/rc4"
	"fmt"

	"github.com/thvl3/cover/internal/jpegcodec"
	"github.com/thvl3/cover/pkg/container"
	"github.com/thvl3/cover/pkg/permute"
)

// MaximumK is the largest matrix-encoding parameter supported; k
// ranges from 1 (plain LSB replacement) to MaximumK.
const MaximumK = 7

// Context holds the decoded usability/payload bitmaps, the keyed
// permutation and keystream, and the pending embed plan for one
// container.
type Context struct {
	image *container.Container

	bitArrayLength int

	payload []byte
	usable  []byte
	one     []byte
	changes []byte

	permutation []uint32
	keystream   []byte

	UsableCount int
	OneCount    int

	// GuaranteedCapacity, MaximumCapacity and ExtractableLength are
	// indexed by k-1, in bytes. ExpectedCapacity is an estimate
	// between the guaranteed and maximum bounds (see analyze, and
	// DESIGN.md for why it is an approximation rather than the
	// reference implementation's tabulated series).
	GuaranteedCapacity [MaximumK]int
	MaximumCapacity    [MaximumK]int
	ExpectedCapacity   [MaximumK]float64
	ExtractableLength  [MaximumK]int
}

func bitArraySize(n int) int {
	if n == 0 {
		return 1
	}
	return n
}

// Initialize decodes c's coefficients, computes capacity estimates
// for every k, and derives the coefficient permutation and keystream
// from key (KeyLength bytes, see ExpandPassword). writable must be set
// to later call Embed/Apply.
func Initialize(c *container.Container, key []byte, writable bool) (*Context, error) {
	ctx := &Context{image: c}

	ctx.bitArrayLength = c.CoefficientsCount / 8

	n := bitArraySize(ctx.bitArrayLength)
	ctx.payload = make([]byte, n)
	ctx.usable = make([]byte, n)
	ctx.one = make([]byte, n)

	if writable {
		ctx.changes = make([]byte, n)
	}

	ctx.decodeCoefficients()
	ctx.analyze()

	cipher, err := rc4.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("eph5: %w", err)
	}

	ctx.permutation = permute.Generate(cipher, c.CoefficientsCount)
	ctx.keystream = permute.Keystream(cipher, ctx.UsableCount/8)

	return ctx, nil
}

// decodeCoefficients scans every block of the tracked component in
// frequency-ascending order, skipping the DC coefficient, classifying
// each AC coefficient as usable (non-zero) and/or at the +-1 boundary,
// and recording its LSB-style payload bit.
func (ctx *Context) decodeCoefficients() {
	var usableCount, oneCount int

	i := 0

	for y := 0; y < ctx.image.HeightInBlocks; y++ {
		row := ctx.image.Row(y)

		for x := 0; x < ctx.image.WidthInBlocks; x++ {
			block := &row[x]
			i++

			for c := 1; c < container.BlockLength; c++ {
				coefficient := block[jpegcodec.Unzig(c)]

				payloadBit := (coefficient%2 != 0) == (coefficient >= 0)
				isUsable := coefficient != 0
				isOne := coefficient == -1 || coefficient == 1

				if isUsable {
					usableCount++
				}
				if isOne {
					oneCount++
				}

				if payloadBit {
					ctx.payload[i/8] |= 1 << uint(i%8)
				}
				if isUsable {
					ctx.usable[i/8] |= 1 << uint(i%8)
				}
				if isOne {
					ctx.one[i/8] |= 1 << uint(i%8)
				}

				i++
			}
		}
	}

	ctx.UsableCount = usableCount
	ctx.OneCount = oneCount
}

// analyze computes the guaranteed (worst-case), maximum (best-case)
// and an estimated expected capacity for every k from 1 to MaximumK,
// following the reference implementation's guaranteed/maximum
// formulas exactly. The expected-capacity estimate is a linear
// interpolation rather than the reference's tabulated asymptotic
// series (see DESIGN.md).
func (ctx *Context) analyze() {
	ctx.GuaranteedCapacity[0] = (ctx.UsableCount - ctx.OneCount) / 8
	ctx.MaximumCapacity[0] = ctx.UsableCount / 8
	ctx.ExpectedCapacity[0] = float64(ctx.UsableCount-ctx.OneCount/2) / 8
	ctx.ExtractableLength[0] = ctx.MaximumCapacity[0]

	for i := 1; i < MaximumK; i++ {
		k := i + 1
		n := (1 << uint(k)) - 1

		guaranteed := (ctx.UsableCount - ctx.OneCount) / n * k / 8
		maximum := ctx.UsableCount / n * k / 8

		expected := float64(guaranteed)

		if ctx.UsableCount > 0 {
			ratio := float64(ctx.OneCount) / float64(ctx.UsableCount)

			if ratio != 1 {
				expected = float64(guaranteed) + (1-ratio)*(float64(maximum)-float64(guaranteed))
			} else {
				expected = 0
			}
		}

		if expected < float64(guaranteed) {
			expected = float64(guaranteed)
		}
		if expected > float64(maximum) {
			expected = float64(maximum)
		}

		ctx.GuaranteedCapacity[i] = guaranteed
		ctx.MaximumCapacity[i] = maximum
		ctx.ExpectedCapacity[i] = expected
		ctx.ExtractableLength[i] = maximum
	}
}

// Apply commits the changes planned by the most recent Embed call to
// the underlying container's coefficients, nudging each flagged
// coefficient by one step toward zero. It returns the number of
// coefficients changed and, of those, the number that became zero.
func (ctx *Context) Apply() (changedCount, zeroedCount int) {
	i := 0

	for y := 0; y < ctx.image.HeightInBlocks; y++ {
		row := ctx.image.Row(y)

		for x := 0; x < ctx.image.WidthInBlocks; x++ {
			block := &row[x]
			i++

			for c := 1; c < container.BlockLength; c++ {
				if ctx.changes[i/8]>>uint(i%8)&1 == 1 {
					coef := &block[jpegcodec.Unzig(c)]

					if *coef > 0 {
						*coef--
					} else {
						*coef++
					}

					if *coef == 0 {
						zeroedCount++
					}

					changedCount++
				}

				i++
			}
		}
	}

	return changedCount, zeroedCount
}

// Extract recovers the data hidden for every k value at once, ignoring
// any pending Embed changes. data[k-1] must have length
// ExtractableLength[k-1].
func (ctx *Context) Extract(data [MaximumK][]byte) {
	extractedLength := 0
	byteVal := 0
	bitPosition := 0

	var extractedLengths [MaximumK - 1]int
	var bytes [MaximumK - 1]int
	var bitPositions [MaximumK - 1]int
	var bits [MaximumK - 1]int
	var bitMasks [MaximumK - 1]int

	for i := 0; i < ctx.image.CoefficientsCount; i++ {
		index := ctx.permutation[i]

		if ctx.usable[index/8]>>uint(index%8)&1 == 0 {
			continue
		}

		payloadBit := int(ctx.payload[index/8] >> uint(index%8) & 1)

		byteVal |= payloadBit << uint(bitPosition)
		bitPosition++

		if bitPosition == 8 {
			data[0][extractedLength] = byte(byteVal) ^ ctx.keystream[extractedLength]
			byteVal = 0
			bitPosition = 0
			extractedLength++
		}

		for j := 0; j < MaximumK-1; j++ {
			bitMasks[j]++

			if payloadBit == 1 {
				bits[j] ^= bitMasks[j]
			}

			if bitMasks[j] == (4<<uint(j))-1 {
				bytes[j] |= bits[j] << uint(bitPositions[j])
				bitPositions[j] += j + 2

				if bitPositions[j] >= 8 {
					data[j+1][extractedLengths[j]] = byte(bytes[j]) ^ ctx.keystream[extractedLengths[j]]
					bytes[j] >>= 8
					bitPositions[j] -= 8
					extractedLengths[j]++
				}

				bits[j] = 0
				bitMasks[j] = 0
			}
		}
	}
}

// Embed plans the coefficient changes needed to hide data using
// matrix parameter k (1 for plain LSB replacement, up to MaximumK for
// F5-style matrix encoding), resetting any previously planned changes.
// It returns the number of bytes actually embedded, which is less than
// len(data) if the container's capacity is insufficient.
func (ctx *Context) Embed(data []byte, k int) int {
	for i := range ctx.changes {
		ctx.changes[i] = 0
	}

	embeddedLength := 0
	coefficientIndex := 0
	length := len(data)

	if k == 1 {
		if length > len(ctx.keystream) {
			length = len(ctx.keystream)
		}

	lsbLoop:
		for embeddedLength < length {
			byteVal := data[embeddedLength] ^ ctx.keystream[embeddedLength]

			for bitPos := 0; bitPos < 8; bitPos++ {
				bit := (byteVal >> uint(bitPos)) & 1

				keep := true

				for keep {
					if coefficientIndex == ctx.image.CoefficientsCount {
						break lsbLoop
					}

					index := ctx.permutation[coefficientIndex]
					coefficientIndex++

					if ctx.usable[index/8]>>uint(index%8)&1 == 1 {
						keep = false

						if ctx.payload[index/8]>>uint(index%8)&1 != bit {
							ctx.changes[index/8] |= 1 << uint(index%8)
							keep = ctx.one[index/8]>>uint(index%8)&1 == 1
						}
					}
				}
			}

			embeddedLength++
		}

		return embeddedLength
	}

	n := (1 << uint(k)) - 1

	dataIndex := 0
	byteVal := 0
	l := 0
	e := 0

	indexes := make([]int, (1<<uint(MaximumK))-1)
	payloadBits := make([]bool, (1<<uint(MaximumK))-1)

matrixLoop:
	for embeddedLength < length {
		if l < k {
			byteVal |= int(data[dataIndex]^ctx.keystream[dataIndex]) << uint(l)
			dataIndex++

			if dataIndex == length {
				l += 7 + k
			} else {
				l += 8
			}
		}

		bits := byteVal & n

		blockLength := 0

		for {
			for ; blockLength < n; blockLength++ {
				var index uint32

				for {
					if coefficientIndex == ctx.image.CoefficientsCount {
						break matrixLoop
					}

					index = ctx.permutation[coefficientIndex]
					coefficientIndex++

					if ctx.usable[index/8]>>uint(index%8)&1 == 1 {
						break
					}
				}

				indexes[blockLength] = int(index)
				payloadBits[blockLength] = ctx.payload[index/8]>>uint(index%8)&1 == 1

				if payloadBits[blockLength] {
					bits ^= blockLength + 1
				}
			}

			if bits == 0 {
				break
			}

			index := indexes[bits-1]
			ctx.changes[index/8] |= 1 << uint(index%8)

			if ctx.one[index/8]>>uint(index%8)&1 == 1 {
				i := bits

				if payloadBits[bits-1] {
					bits = 0
				}

				for ; i < blockLength; i++ {
					if payloadBits[i] {
						bits ^= i ^ (i + 1)
					}

					indexes[i-1] = indexes[i]
					payloadBits[i-1] = payloadBits[i]
				}

				blockLength--
			} else {
				break
			}
		}

		byteVal >>= uint(k)
		l -= k
		e += k

		if e >= 8 {
			embeddedLength++
			e -= 8
		}
	}

	return embeddedLength
}
