package jpegcodec

import (
	"math/rand"
	"testing"
)

// newTestImage builds a minimal single-component (grayscale) image
// with a given grid of blocks, ready to round-trip through
// Encode/Decode without needing a real source JPEG file.
func newTestImage(widthInBlocks, heightInBlocks int, fill func(b *Block)) *Image {
	blocks := make([]Block, widthInBlocks*heightInBlocks)
	for i := range blocks {
		fill(&blocks[i])
	}

	quant := [BlockSize]byte{}
	for i := range quant {
		quant[i] = 1
	}

	img := &Image{
		Width:  widthInBlocks * 8,
		Height: heightInBlocks * 8,
		Components: []Component{{
			ID:              1,
			HSamp:           1,
			VSamp:           1,
			QuantTableIndex: 0,
			WidthInBlocks:   widthInBlocks,
			HeightInBlocks:  heightInBlocks,
			Blocks:          blocks,
		}},
		maxHSamp:   1,
		maxVSamp:   1,
		mcusAcross: widthInBlocks,
		mcusDown:   heightInBlocks,
	}
	img.QuantTables[0] = &quant

	return img
}

func blocksEqual(a, b *Block) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestEncodeDecodeRoundTripZero(t *testing.T) {
	img := newTestImage(2, 2, func(b *Block) {})

	data, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if len(decoded.Components) != 1 {
		t.Fatalf("got %d components, want 1", len(decoded.Components))
	}

	comp := &decoded.Components[0]
	if comp.WidthInBlocks != 2 || comp.HeightInBlocks != 2 {
		t.Fatalf("got geometry %dx%d, want 2x2", comp.WidthInBlocks, comp.HeightInBlocks)
	}

	for i := range comp.Blocks {
		if !blocksEqual(&comp.Blocks[i], &img.Components[0].Blocks[i]) {
			t.Errorf("block %d: got %v, want %v", i, comp.Blocks[i], img.Components[0].Blocks[i])
		}
	}
}

func TestEncodeDecodeRoundTripRandomCoefficients(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	img := newTestImage(3, 2, func(b *Block) {
		b[0] = int32(rng.Intn(200) - 100)

		for zig := 1; zig < BlockSize; zig++ {
			if rng.Intn(3) == 0 {
				b[Unzig(zig)] = int32(rng.Intn(41) - 20)
			}
		}
	})

	data, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	comp := &decoded.Components[0]
	want := &img.Components[0]

	for i := range comp.Blocks {
		if !blocksEqual(&comp.Blocks[i], &want.Blocks[i]) {
			t.Errorf("block %d: got %v, want %v", i, comp.Blocks[i], want.Blocks[i])
		}
	}
}

func TestUnzigIsAPermutation(t *testing.T) {
	seen := make([]bool, BlockSize)

	for c := 0; c < BlockSize; c++ {
		n := Unzig(c)
		if n < 0 || n >= BlockSize {
			t.Fatalf("Unzig(%d) = %d out of range", c, n)
		}
		if seen[n] {
			t.Fatalf("Unzig(%d) = %d duplicates an earlier position", c, n)
		}
		seen[n] = true
	}
}
