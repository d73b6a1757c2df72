package rang

import (
	"bytes"
	"testing"

	"github.com/thvl3/cover/internal/jpegcodec"
	"github.com/thvl3/cover/pkg/container"
)

func buildContainer(t *testing.T, widthInBlocks, heightInBlocks int, fill func(i int) int32) *container.Container {
	t.Helper()

	blocks := make([]jpegcodec.Block, widthInBlocks*heightInBlocks)
	for i := range blocks {
		for c := 0; c < jpegcodec.BlockSize; c++ {
			// rang reads coefficients in natural (not zig-zag) order, so
			// fill blocks directly by natural index.
			blocks[i][c] = fill(i*jpegcodec.BlockSize + c)
		}
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
		t.Fatalf("Encode: %v", err)
	}

	c, err := container.Read(data)
	if err != nil {
		t.Fatalf("container.Read: %v", err)
	}

	return c
}

func testEntropy() []byte {
	e := make([]byte, EntropyLength)
	for i := range e {
		e[i] = byte(i*37 + 11)
	}
	return e
}

// TestDecodeCoefficientsCountsDifferences checks SetCount (odd-parity
// coefficients) and UsableCount (clear/modified differences) against a
// single block of hand-chosen values.
func TestDecodeCoefficientsCountsDifferences(t *testing.T) {
	clearValues := func(i int) int32 {
		// Alternate even/odd across the block's 64 coefficients.
		return int32(i % 2)
	}

	clear := buildContainer(t, 1, 1, clearValues)

	modified := buildContainer(t, 1, 1, func(i int) int32 {
		v := clearValues(i)
		if i%4 == 0 {
			return v + 2 // differs, direction "up"
		}
		return v
	})

	ctx, err := Initialize(clear, modified, testEntropy())
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	wantSet := 0
	wantUsable := 0
	for i := 0; i < container.BlockLength; i++ {
		if clearValues(i)%2 != 0 {
			wantSet++
		}
		if i%4 == 0 {
			wantUsable++
		}
	}

	if ctx.SetCount != wantSet {
		t.Fatalf("SetCount = %d, want %d", ctx.SetCount, wantSet)
	}
	if ctx.UsableCount != wantUsable {
		t.Fatalf("UsableCount = %d, want %d", ctx.UsableCount, wantUsable)
	}

	for i := 0; i < wantUsable; i++ {
		index := ctx.usable[i]
		if ctx.direction[index/8]>>uint(index%8)&1 != 1 {
			t.Fatalf("position %d: expected an upward direction bit", index)
		}
	}
}

// TestExtractMatchesHashDefinition confirms Extract computes the XOR,
// over every coefficient whose payload bit is set, of that
// coefficient's public hash — the Rang-JPEG extraction rule.
func TestExtractMatchesHashDefinition(t *testing.T) {
	clear := buildContainer(t, 1, 1, func(i int) int32 { return int32(i % 3) })

	ctx, err := Initialize(clear, nil, nil)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	got := make([]byte, ctx.bitArrayLength)
	ctx.Extract(got)

	want := make([]byte, ctx.bitArrayLength)
	strings := newStringsCipher()
	hashBits(len(want), want, strings, 0, ctx.clear.CoefficientsCount, ctx.payload)

	if !bytes.Equal(got, want) {
		t.Fatalf("Extract = %x, want %x", got, want)
	}
}

// TestEmbedApplyExtractRoundTrip embeds a short payload into a
// clear/modified container pair, commits the plan, re-reads the
// resulting JPEG, and confirms extraction recovers the payload.
func TestEmbedApplyExtractRoundTrip(t *testing.T) {
	clearValues := func(i int) int32 {
		return int32((i*13+7)%11 - 5)
	}

	clear := buildContainer(t, 4, 4, clearValues)
	modified := buildContainer(t, 4, 4, func(i int) int32 {
		v := clearValues(i)
		if i%3 == 0 {
			if i%6 < 3 {
				return v + 1
			}
			return v - 1
		}
		return v
	})

	ctx, err := Initialize(clear, modified, testEntropy())
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	data := []byte{0xaa, 0x55, 0x3c}

	usedPadding, err := ctx.Embed(data, DefaultPaddingBitsCount)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if usedPadding > DefaultPaddingBitsCount {
		t.Fatalf("Embed used %d padding bits, more than the %d offered", usedPadding, DefaultPaddingBitsCount)
	}

	ctx.Apply()

	out, err := clear.Write()
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	c2, err := container.Read(out)
	if err != nil {
		t.Fatalf("re-Read: %v", err)
	}

	ctx2, err := Initialize(c2, nil, nil)
	if err != nil {
		t.Fatalf("Initialize (extract side): %v", err)
	}

	extracted := make([]byte, len(data))
	ctx2.Extract(extracted)

	if !bytes.Equal(extracted, data) {
		t.Fatalf("extracted %x, want %x", extracted, data)
	}
}

func TestModifyImageIdentityOnUniformPixel(t *testing.T) {
	data := []uint32{0xff646464} // (100, 100, 100) packed 0xAABBGGRR

	ModifyImage(1, 1, data)

	if data[0] != 0xff646464 {
		t.Fatalf("ModifyImage(1x1, uniform pixel) = %#08x, want %#08x", data[0], 0xff646464)
	}
}

func TestModifyImageZeroSizeIsNoop(t *testing.T) {
	var data []uint32
	ModifyImage(0, 0, data) // must not panic or index out of range
}
