// Package jpegcodec is a coefficient-level JPEG codec: it exposes the
// raw, still-quantized DCT coefficients of a baseline JPEG file for
// direct inspection and modification, and re-encodes them back into a
// JPEG using the source image's own quantization tables, the way
// libjpeg's jpeg_read_coefficients/jpeg_write_coefficients pair does
// for lossless coefficient-domain transcoding.
//
// Only baseline (sequential DCT) JPEGs are supported; progressive
// source files are rejected with ErrUnsupported rather than silently
// mishandled.
package jpegcodec

import "errors"

// BlockSize is the number of coefficients in one 8x8 DCT block.
const BlockSize = 64

// Block holds one block's coefficients in natural (row-major, not
// zig-zag) order, exactly as libjpeg's virtual coefficient arrays do.
type Block [BlockSize]int32

// unzig maps a zig-zag scan position to its natural-order index. It is
// the standard JPEG coefficient scan order and is also, not
// coincidentally, the table the Eph5 engine indexes coefficients with:
// reading coefficient c of a block in scan order means reading
// block[unzig[c]]. The Rang engine reads blocks in natural order and
// does not use it.
var unzig = [BlockSize]int{
	0, 1, 8, 16, 9, 2, 3, 10, 17, 24, 32, 25, 18, 11, 4, 5, 12, 19, 26, 33, 40,
	48, 41, 34, 27, 20, 13, 6, 7, 14, 21, 28, 35, 42, 49, 56, 57, 50, 43, 36, 29,
	22, 15, 23, 30, 37, 44, 51, 58, 59, 52, 45, 38, 31, 39, 46, 53, 60, 61, 54, 47,
	55, 62, 63,
}

// Unzig exposes the zig-zag-to-natural index mapping: Unzig(c) is the
// natural-order offset of the c'th coefficient in frequency-ascending
// scan order.
func Unzig(c int) int { return unzig[c] }

var (
	// ErrUnsupported is returned for JPEG features this codec does not
	// implement: progressive scans, arithmetic coding, 12-bit samples.
	ErrUnsupported = errors.New("jpegcodec: unsupported JPEG feature")
	// ErrInvalidFormat is returned for malformed or truncated JPEG data.
	ErrInvalidFormat = errors.New("jpegcodec: invalid JPEG data")
)

// Component describes one color component's sampling geometry and
// block-grid dimensions, already padded up to a whole number of MCUs
// the way Cover_container_read pads libjpeg's reported dimensions.
type Component struct {
	ID              byte
	HSamp, VSamp    int
	QuantTableIndex int

	WidthInBlocks  int
	HeightInBlocks int
	Blocks         []Block // row-major, length WidthInBlocks*HeightInBlocks
}

// Block returns a pointer to the block at (x, y) for in-place
// modification.
func (c *Component) Block(x, y int) *Block {
	return &c.Blocks[y*c.WidthInBlocks+x]
}

// NewImage assembles an Image from pixel dimensions and already-
// populated components, deriving the MCU geometry Encode needs the
// same way Decode does from a SOF marker. Each component's
// WidthInBlocks/HeightInBlocks and Blocks must already be set
// consistently with its sampling factors.
func NewImage(width, height int, components []Component) *Image {
	maxH, maxV := 1, 1

	for _, c := range components {
		if c.HSamp > maxH {
			maxH = c.HSamp
		}
		if c.VSamp > maxV {
			maxV = c.VSamp
		}
	}

	return &Image{
		Width:      width,
		Height:     height,
		Components: components,
		maxHSamp:   maxH,
		maxVSamp:   maxV,
		mcusAcross: (width + 8*maxH - 1) / (8 * maxH),
		mcusDown:   (height + 8*maxV - 1) / (8 * maxV),
	}
}

// Image is a decoded JPEG's coefficient-domain representation: enough
// of the source file's structure to write back a new JPEG containing
// the same image with the same quantization and subsampling, possibly
// with some coefficients changed.
type Image struct {
	Width, Height int
	Progressive   bool
	RestartInterval int

	Components []Component

	QuantTables [4]*[BlockSize]byte // indexed by table id, zig-zag order as stored in the file

	maxHSamp, maxVSamp int
	mcusAcross, mcusDown int
}
