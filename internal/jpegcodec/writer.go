package jpegcodec

import (
	"bytes"
)

type encoder struct {
	buf     bytes.Buffer
	bits    uint32
	nBits   uint32
}

func (e *encoder) emit(bits, nBits uint32) {
	nBits += e.nBits
	bits <<= 32 - nBits
	bits |= e.bits

	for nBits >= 8 {
		b := byte(bits >> 24)
		e.buf.WriteByte(b)

		if b == 0xff {
			e.buf.WriteByte(0x00)
		}

		bits <<= 8
		nBits -= 8
	}

	e.bits, e.nBits = bits, nBits
}

func (e *encoder) emitHuff(lut huffmanEncodeLUT, value int32) {
	x := lut[value]
	e.emit(x&(1<<24-1), x>>24)
}

func (e *encoder) emitHuffRLE(lut huffmanEncodeLUT, runLength, value int32) {
	a, b := value, value
	if a < 0 {
		a, b = -value, value-1
	}

	var nBits uint32
	if a < 0x4000 {
		nBits = uint32(bitCount[a])
	} else {
		nBits = 14 + uint32(bitCount[a>>14])
	}

	e.emitHuff(lut, runLength<<4|int32(nBits))

	if nBits > 0 {
		e.emit(uint32(b)&(1<<nBits-1), nBits)
	}
}

func (e *encoder) flushBits() {
	if e.nBits > 0 {
		pad := 8 - e.nBits
		e.emit(1<<pad-1, pad)
	}
}

func writeMarkerHeader(e *encoder, marker byte, length int) {
	e.buf.Write([]byte{0xff, marker, byte(length >> 8), byte(length)})
}

func writeUint16(e *encoder, v int) {
	e.buf.Write([]byte{byte(v >> 8), byte(v)})
}

// Encode writes img back out as a baseline JPEG, re-deriving optimal
// Huffman tables for the actual coefficient statistics the way
// libjpeg's optimize_coding option does, while reusing img's own
// quantization tables and subsampling unchanged.
func Encode(img *Image) ([]byte, error) {
	e := &encoder{}

	e.buf.Write([]byte{0xff, markerSOI})

	writeDQT(e, img)
	writeSOF(e, img)

	dcLUTs := make([]huffmanEncodeLUT, len(img.Components))
	acLUTs := make([]huffmanEncodeLUT, len(img.Components))
	dcSpecs := make([]huffmanSpec, len(img.Components))
	acSpecs := make([]huffmanSpec, len(img.Components))

	for i, comp := range img.Components {
		dcFreq, acFreq := gatherStatistics(&comp)
		dcSpecs[i] = buildOptimalSpec(dcFreq)
		acSpecs[i] = buildOptimalSpec(acFreq)
		dcLUTs[i] = newHuffmanEncodeLUT(dcSpecs[i])
		acLUTs[i] = newHuffmanEncodeLUT(acSpecs[i])
	}

	writeDHT(e, dcSpecs, acSpecs)
	writeSOS(e, img)

	dcPred := make([]int32, len(img.Components))

	for my := 0; my < img.mcusDown; my++ {
		for mx := 0; mx < img.mcusAcross; mx++ {
			for ci := range img.Components {
				comp := &img.Components[ci]

				for v := 0; v < comp.VSamp; v++ {
					for h := 0; h < comp.HSamp; h++ {
						bx := mx*comp.HSamp + h
						by := my*comp.VSamp + v

						block := comp.Block(bx, by)
						writeBlock(e, block, dcLUTs[ci], acLUTs[ci], &dcPred[ci])
					}
				}
			}
		}
	}

	e.flushBits()

	e.buf.Write([]byte{0xff, markerEOI})

	return e.buf.Bytes(), nil
}

func writeBlock(e *encoder, b *Block, dcLUT, acLUT huffmanEncodeLUT, prevDC *int32) {
	dc := b[0]
	e.emitHuffRLE(dcLUT, 0, dc-*prevDC)
	*prevDC = dc

	runLength := int32(0)

	for zig := 1; zig < BlockSize; zig++ {
		ac := b[unzig[zig]]

		if ac == 0 {
			runLength++
			continue
		}

		for runLength > 15 {
			e.emitHuff(acLUT, 0xf0)
			runLength -= 16
		}

		e.emitHuffRLE(acLUT, runLength, ac)
		runLength = 0
	}

	if runLength > 0 {
		e.emitHuff(acLUT, 0x00)
	}
}

func writeDQT(e *encoder, img *Image) {
	var present []int
	for i, t := range img.QuantTables {
		if t != nil {
			present = append(present, i)
		}
	}

	length := 2
	for range present {
		length += 1 + BlockSize
	}

	writeMarkerHeader(e, markerDQT, length)

	for _, i := range present {
		e.buf.WriteByte(byte(i))
		e.buf.Write(img.QuantTables[i][:])
	}
}

func writeSOF(e *encoder, img *Image) {
	n := len(img.Components)
	length := 8 + 3*n

	writeMarkerHeader(e, markerSOF0, length)
	e.buf.WriteByte(8)
	writeUint16(e, img.Height)
	writeUint16(e, img.Width)
	e.buf.WriteByte(byte(n))

	for _, c := range img.Components {
		e.buf.WriteByte(c.ID)
		e.buf.WriteByte(byte(c.HSamp<<4 | c.VSamp))
		e.buf.WriteByte(byte(c.QuantTableIndex))
	}
}

func writeDHT(e *encoder, dcSpecs, acSpecs []huffmanSpec) {
	length := 2

	for i := range dcSpecs {
		length += 1 + 16 + len(dcSpecs[i].values)
		length += 1 + 16 + len(acSpecs[i].values)
	}

	writeMarkerHeader(e, markerDHT, length)

	for i := range dcSpecs {
		e.buf.WriteByte(byte(i))
		e.buf.Write(dcSpecs[i].bits[:])
		e.buf.Write(dcSpecs[i].values)

		e.buf.WriteByte(byte(0x10 | i))
		e.buf.Write(acSpecs[i].bits[:])
		e.buf.Write(acSpecs[i].values)
	}
}

func writeSOS(e *encoder, img *Image) {
	n := len(img.Components)
	length := 6 + 2*n

	writeMarkerHeader(e, markerSOS, length)
	e.buf.WriteByte(byte(n))

	for i, c := range img.Components {
		e.buf.WriteByte(c.ID)
		e.buf.WriteByte(byte(i<<4 | i))
	}

	e.buf.Write([]byte{0, 63, 0})
}

// gatherStatistics counts DC-size and AC-run/size symbol frequencies
// across every block of comp, the input to the optimal Huffman table
// builder. Blocks are visited in the same MCU order Encode emits them,
// so the DC differences counted are the ones actually written.
func gatherStatistics(comp *Component) (dcFreq, acFreq [257]int32) {
	dcPred := int32(0)

	perMCU := comp.HSamp * comp.VSamp
	mcusAcross := comp.WidthInBlocks / comp.HSamp

	for i := range comp.Blocks {
		mcu, within := i/perMCU, i%perMCU
		x := mcu%mcusAcross*comp.HSamp + within%comp.HSamp
		y := mcu/mcusAcross*comp.VSamp + within/comp.HSamp
		b := comp.Block(x, y)

		diff := b[0] - dcPred
		dcPred = b[0]

		dcFreq[huffSize(diff)]++

		runLength := 0

		for zig := 1; zig < BlockSize; zig++ {
			ac := b[unzig[zig]]

			if ac == 0 {
				runLength++
				continue
			}

			for runLength > 15 {
				acFreq[0xf0]++
				runLength -= 16
			}

			acFreq[runLength<<4|int(huffSize(ac))]++
			runLength = 0
		}

		if runLength > 0 {
			acFreq[0x00]++
		}
	}

	return dcFreq, acFreq
}

func huffSize(v int32) int32 {
	a := v
	if a < 0 {
		a = -v
	}

	if a < 0x4000 {
		return int32(bitCount[a])
	}

	return 14 + int32(bitCount[a>>14])
}

// buildOptimalSpec derives a canonical, length-limited-to-16 Huffman
// code from symbol frequencies, following the classic two-pass
// algorithm JPEG encoders use for optimize_coding (IJG's
// jpeg_gen_optimal_table): repeatedly merge the two least frequent
// symbols, track per-symbol code length via a "sibling chain", then
// fold any codes longer than 16 bits back into the tree.
func buildOptimalSpec(freq [257]int32) huffmanSpec {
	freq[256] = 1 // guarantee at least two active symbols

	var codeSize [257]int32
	var others [257]int
	for i := range others {
		others[i] = -1
	}

	for {
		c1 := leastFrequent(freq, -1)
		if c1 < 0 {
			break
		}

		c2 := leastFrequent(freq, c1)
		if c2 < 0 {
			break
		}

		freq[c1] += freq[c2]
		freq[c2] = 0

		codeSize[c1]++
		for others[c1] >= 0 {
			c1 = others[c1]
			codeSize[c1]++
		}
		others[c1] = c2

		codeSize[c2]++
		for others[c2] >= 0 {
			c2 = others[c2]
			codeSize[c2]++
		}
	}

	var bitsCount [33]int32
	for i := 0; i <= 256; i++ {
		if codeSize[i] != 0 {
			bitsCount[codeSize[i]]++
		}
	}

	for i := 32; i > 16; i-- {
		for bitsCount[i] > 0 {
			j := i - 2
			for bitsCount[j] == 0 {
				j--
			}

			bitsCount[i] -= 2
			bitsCount[i-1]++
			bitsCount[j+1] += 2
			bitsCount[j]--
		}
	}

	i := 16
	for bitsCount[i] == 0 {
		i--
	}
	bitsCount[i]--

	var spec huffmanSpec
	for l := 1; l <= 16; l++ {
		spec.bits[l-1] = byte(bitsCount[l])
	}

	for size := int32(1); size <= 32; size++ {
		for sym := 0; sym <= 255; sym++ {
			if codeSize[sym] == size {
				spec.values = append(spec.values, byte(sym))
			}
		}
	}

	return spec
}

func leastFrequent(freq [257]int32, exclude int) int {
	best := -1
	bestFreq := int32(1<<31 - 1)

	for i := 0; i <= 256; i++ {
		if i == exclude || freq[i] == 0 {
			continue
		}

		if freq[i] <= bestFreq {
			bestFreq = freq[i]
			best = i
		}
	}

	return best
}
