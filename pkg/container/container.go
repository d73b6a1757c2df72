// Package container reads and writes the DCT coefficients of the
// first color component of a JPEG image, the way libjpeg's
// jpeg_read_coefficients/jpeg_write_coefficients pair does for
// lossless coefficient-domain transcoding. Both the Eph5 and Rang
// engines embed and extract through this single abstraction, so
// neither needs to know anything about JPEG file structure.
package container

import (
	"errors"
	"fmt"

	"github.com/thvl3/cover/internal/jpegcodec"
)

// ComponentIndex is the color component this package reads and
// writes; all others are carried through to the output unchanged.
const ComponentIndex = 0

// BlockLength is the number of coefficients per 8x8 block.
const BlockLength = jpegcodec.BlockSize

var (
	// ErrInvalidColorSpace is returned for JPEGs that are neither
	// grayscale nor YCbCr.
	ErrInvalidColorSpace = errors.New("container: unsupported color space")
	// ErrInvalidBlockSize is returned if the DCT block size isn't 8x8.
	ErrInvalidBlockSize = errors.New("container: unsupported DCT block size")
	// ErrTooBigImage is returned when the coefficient count would
	// overflow a platform-width size calculation.
	ErrTooBigImage = errors.New("container: image too large")
	// ErrCodecError wraps an underlying JPEG decode/encode failure.
	ErrCodecError = errors.New("container: codec error")
)

// Container holds a decoded JPEG's coefficient-domain representation
// and the component-0 geometry the embedding engines operate over.
type Container struct {
	image *jpegcodec.Image

	WidthInBlocks     int
	HeightInBlocks    int
	CoefficientsCount int
}

// Read decodes data as a JPEG and exposes its first component's
// coefficients for inspection and modification.
func Read(data []byte) (*Container, error) {
	image, err := jpegcodec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodecError, err)
	}

	if len(image.Components) != 1 && len(image.Components) != 3 {
		return nil, ErrInvalidColorSpace
	}

	if jpegcodec.BlockSize != BlockLength {
		return nil, ErrInvalidBlockSize
	}

	comp := &image.Components[ComponentIndex]

	widthInBlocks := comp.WidthInBlocks
	heightInBlocks := comp.HeightInBlocks

	if heightInBlocks != 0 {
		maxProduct := int(^uint(0) >> 1)
		if maxProduct/widthInBlocks/heightInBlocks < BlockLength {
			return nil, ErrTooBigImage
		}
	}

	return &Container{
		image:             image,
		WidthInBlocks:     widthInBlocks,
		HeightInBlocks:    heightInBlocks,
		CoefficientsCount: widthInBlocks * heightInBlocks * BlockLength,
	}, nil
}

// Write re-encodes the container's image, including any coefficient
// edits made through Row, back into JPEG bytes.
func (c *Container) Write() ([]byte, error) {
	out, err := jpegcodec.Encode(c.image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodecError, err)
	}

	return out, nil
}

// Row returns the block row y of the tracked component for direct
// coefficient access or modification; it is a view, not a copy.
func (c *Container) Row(y int) []jpegcodec.Block {
	comp := &c.image.Components[ComponentIndex]

	start := y * comp.WidthInBlocks

	return comp.Blocks[start : start+comp.WidthInBlocks]
}

// Block returns the block at (x, y) of the tracked component.
func (c *Container) Block(x, y int) *jpegcodec.Block {
	return c.image.Components[ComponentIndex].Block(x, y)
}
