package container

import (
	"testing"

	"github.com/thvl3/cover/internal/jpegcodec"
)

func encodeGrayscale(widthInBlocks, heightInBlocks int) []byte {
	blocks := make([]jpegcodec.Block, widthInBlocks*heightInBlocks)
	for i := range blocks {
		blocks[i][0] = int32(10 + i)
		blocks[i][jpegcodec.Unzig(1)] = 3
		blocks[i][jpegcodec.Unzig(2)] = -1
	}

	quant := [jpegcodec.BlockSize]byte{}
	for i := range quant {
		quant[i] = 1
	}

	img := jpegcodec.NewImage(widthInBlocks*8, heightInBlocks*8, []jpegcodec.Component{{
		ID:             1,
		HSamp:          1,
		VSamp:          1,
		WidthInBlocks:  widthInBlocks,
		HeightInBlocks: heightInBlocks,
		Blocks:         blocks,
	}})
	img.QuantTables[0] = &quant

	data, err := jpegcodec.Encode(img)
	if err != nil {
		panic(err)
	}

	return data
}

func TestReadReportsGeometry(t *testing.T) {
	data := encodeGrayscale(4, 3)

	c, err := Read(data)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if c.WidthInBlocks != 4 || c.HeightInBlocks != 3 {
		t.Fatalf("got %dx%d blocks, want 4x3", c.WidthInBlocks, c.HeightInBlocks)
	}

	if c.CoefficientsCount != 4*3*BlockLength {
		t.Fatalf("CoefficientsCount = %d, want %d", c.CoefficientsCount, 4*3*BlockLength)
	}
}

func TestRowAndWriteRoundTrip(t *testing.T) {
	data := encodeGrayscale(2, 2)

	c, err := Read(data)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	row := c.Row(0)
	row[0][jpegcodec.Unzig(5)] = 42

	out, err := c.Write()
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	c2, err := Read(out)
	if err != nil {
		t.Fatalf("re-Read: %v", err)
	}

	if got := c2.Row(0)[0][jpegcodec.Unzig(5)]; got != 42 {
		t.Fatalf("edited coefficient did not survive a write/read round trip: got %d, want 42", got)
	}
}

func TestReadRejectsUnsupportedComponentCount(t *testing.T) {
	blocks := make([]jpegcodec.Block, 1)
	quant := [jpegcodec.BlockSize]byte{}
	for i := range quant {
		quant[i] = 1
	}

	img := jpegcodec.NewImage(8, 8, []jpegcodec.Component{
		{ID: 1, HSamp: 1, VSamp: 1, WidthInBlocks: 1, HeightInBlocks: 1, Blocks: blocks},
		{ID: 2, HSamp: 1, VSamp: 1, WidthInBlocks: 1, HeightInBlocks: 1, Blocks: blocks},
	})
	img.QuantTables[0] = &quant

	data, err := jpegcodec.Encode(img)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Read(data); err != ErrInvalidColorSpace {
		t.Fatalf("Read with 2 components: got err %v, want ErrInvalidColorSpace", err)
	}
}
