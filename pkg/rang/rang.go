package rang

import (
	"errors"

	"github.com/thvl3/cover/internal/salsa20"
	"github.com/thvl3/cover/pkg/container"
	"github.com/thvl3/cover/pkg/gf2"
)

// EntropyLength is the key length Initialize expects for its
// randomization entropy, matching Salsa20's 256-bit key size.
const EntropyLength = salsa20.KeySize

// DefaultPaddingBitsCount is the number of spare sample positions
// Embed draws beyond the strict width of the data being hidden, used
// to resolve a singular reverse-hash matrix without failing the embed.
const DefaultPaddingBitsCount = 24

var (
	// ErrCapacityExceeded is returned when a container has fewer
	// usable (clear/modified difference) coefficients than an embed
	// needs, including its padding bits.
	ErrCapacityExceeded = errors.New("rang: usable coefficient capacity exceeded")
	// ErrMatrixSingular is returned when the reverse-hash matrix
	// remains singular even after exhausting every padding bit.
	ErrMatrixSingular = errors.New("rang: reverse-hash matrix is singular")
)

// Context holds the clear/modified difference set, the payload bitmap
// read from the clear image, and the keyed PRNGs used to hash and
// sample coefficients for one container pair.
type Context struct {
	clear    *container.Container
	modified *container.Container

	strings       *salsa20.Cipher
	randomization *salsa20.Cipher

	bitArrayLength int

	payload   []byte
	usable    []uint32
	direction []byte
	changes   []byte

	SetCount    int
	UsableCount int
}

// Initialize decodes clear's (and, if non-nil, the clear/modified
// difference of) coefficients. modified and entropy are required for
// Embed; Extract only needs clear. entropy must be EntropyLength bytes.
func Initialize(clear, modified *container.Container, entropy []byte) (*Context, error) {
	ctx := &Context{clear: clear, modified: modified}

	ctx.strings = newStringsCipher()

	ctx.bitArrayLength = clear.CoefficientsCount / 8
	if ctx.bitArrayLength == 0 {
		ctx.bitArrayLength = 1
	}

	ctx.payload = make([]byte, ctx.bitArrayLength)

	if modified != nil {
		if len(entropy) != EntropyLength {
			return nil, errors.New("rang: entropy must be EntropyLength bytes")
		}

		ctx.randomization = newRandomizationCipher(entropy)
		ctx.usable = make([]uint32, clear.CoefficientsCount)
		ctx.direction = make([]byte, ctx.bitArrayLength)
		ctx.changes = make([]byte, ctx.bitArrayLength)
	}

	ctx.decodeCoefficients()

	return ctx, nil
}

// decodeCoefficients scans every coefficient of the tracked component
// in natural (not zig-zag) block order, recording its payload bit and,
// when a modified image was supplied, whether clear and modified
// differ at that position (and in which direction) — the set of
// coefficients a blur pass was free to nudge without visibly damaging
// the image.
func (ctx *Context) decodeCoefficients() {
	compare := ctx.modified != nil

	var setCount, usableCount int

	i := 0

	for y := 0; y < ctx.clear.HeightInBlocks; y++ {
		row := ctx.clear.Row(y)
		modRow := row

		if compare {
			modRow = ctx.modified.Row(y)
		}

		for x := 0; x < ctx.clear.WidthInBlocks; x++ {
			block := &row[x]

			for c := 0; c < container.BlockLength; c++ {
				coefficient := block[c]

				if coefficient%2 != 0 {
					setCount++
					ctx.payload[i/8] |= 1 << uint(i%8)
				}

				if compare {
					modCoefficient := modRow[x][c]

					if modCoefficient != coefficient {
						ctx.usable[usableCount] = uint32(i)
						usableCount++
					}

					if modCoefficient > coefficient {
						ctx.direction[i/8] |= 1 << uint(i%8)
					}
				}

				i++
			}
		}
	}

	ctx.SetCount = setCount
	ctx.UsableCount = usableCount
}

// Apply commits the changes planned by the most recent Embed call to
// the clear container's coefficients, nudging each flagged coefficient
// by one step in its recorded direction.
func (ctx *Context) Apply() (changedCount int) {
	i := 0

	for y := 0; y < ctx.clear.HeightInBlocks; y++ {
		row := ctx.clear.Row(y)

		for x := 0; x < ctx.clear.WidthInBlocks; x++ {
			block := &row[x]

			for c := 0; c < container.BlockLength; c++ {
				if ctx.changes[i/8]>>uint(i%8)&1 == 1 {
					coef := &block[c]

					if ctx.direction[i/8]>>uint(i%8)&1 == 1 {
						*coef++
					} else {
						*coef--
					}

					changedCount++
				}

				i++
			}
		}
	}

	return changedCount
}

// Extract recovers the payload hidden in the whole of clear's
// coefficient parity bitmap, hashed with the public strings cipher.
// The hash is len(data) bytes long; a shorter buffer receives a prefix
// of the hash a longer one would, so data need only be as long as the
// payload being recovered.
func (ctx *Context) Extract(data []byte) {
	for i := range data {
		data[i] = 0
	}

	hashBits(len(data), data, ctx.strings, 0, ctx.clear.CoefficientsCount, ctx.payload)
}

// Embed plans the coefficient changes needed so that extracting from
// the result yields data, drawing its sample of usable coefficients
// from the clear/modified difference set and resolving the resulting
// linear system over GF(2) with up to paddingBitsCount spare rows.
// It returns the number of padding bits actually used.
func (ctx *Context) Embed(data []byte, paddingBitsCount int) (int, error) {
	if ctx.modified == nil {
		return 0, errors.New("rang: Embed requires a modified container")
	}

	length := len(data)
	width := 8 * length

	if ctx.UsableCount < width+paddingBitsCount {
		return 0, ErrCapacityExceeded
	}

	vector := make([]byte, length+paddingBlockBytes(paddingBitsCount))
	copy(vector, data)
	hashBits(length, vector, ctx.strings, 0, ctx.clear.CoefficientsCount, ctx.payload)

	padding := vector[length:]
	zero := make([]byte, len(padding))
	ctx.randomization.XORKeyStream(padding, zero)

	sampleCount := width + paddingBitsCount
	generateSample(ctx.randomization, sampleCount, ctx.UsableCount, ctx.usable)

	matrix := make([][]byte, sampleCount)
	for i := range matrix {
		matrix[i] = make([]byte, length)
	}

	usedPadding := paddingBitsCount

	ok := gf2.Unhash(length, &usedPadding, vector, true, matrix, stringsHashFunc(ctx.strings), ctx.usable[:sampleCount])
	if !ok {
		return 0, ErrMatrixSingular
	}

	for i := range ctx.changes {
		ctx.changes[i] = 0
	}

	for i := 0; i < width+usedPadding; i++ {
		index := ctx.usable[i]

		if vector[i/8]>>uint(i%8)&1 == 1 {
			ctx.changes[index/8] |= 1 << uint(index%8)
		}
	}

	return usedPadding, nil
}

// paddingBlockBytes returns the number of keystream-filled bytes
// needed to hold paddingBitsCount padding candidate bits, rounded up
// to whole Salsa20 blocks the way the reference allocator does. With
// paddingBitsCount == 0 it returns 0, so a zero-padding embed never
// advances the randomization cipher for padding it doesn't use.
func paddingBlockBytes(paddingBitsCount int) int {
	if paddingBitsCount == 0 {
		return 0
	}

	bits := 8 * salsa20.BlockSize
	blocks := (paddingBitsCount + bits - 1) / bits

	return blocks * salsa20.BlockSize
}

// generateSample performs a partial Fisher-Yates shuffle of
// sample[0:count], using the randomization cipher's running keystream
// so that the first neededCount entries become a uniformly random,
// order-independent draw without replacement.
func generateSample(cipher *salsa20.Cipher, neededCount, count int, sample []uint32) {
	buffer := make([]byte, salsa20.BlockSize)
	zero := make([]byte, salsa20.BlockSize)

	unusedCount := count
	j := salsa20.BlockSize

	for i := 0; i < neededCount; i++ {
		if j == salsa20.BlockSize {
			cipher.XORKeyStream(buffer, zero)
			j = 0
		}

		var draw uint64
		for b := 0; b < 8; b++ {
			draw |= uint64(buffer[j+b]) << uint(8*b)
		}
		j += 8

		index := uint64(i) + draw%uint64(unusedCount)
		unusedCount--

		sample[index], sample[i] = sample[i], sample[index]
	}
}
