package jpegcodec

// huffmanSpec is the length-count/value-list representation a DHT
// segment carries on the wire: bits[i] is the count of codes of
// length i+1, and values lists the symbols in code order.
type huffmanSpec struct {
	bits   [16]byte
	values []byte
}

// huffmanDecodeTable is a compiled representation of a huffmanSpec
// suitable for bit-at-a-time decoding: for each code length, the
// smallest code of that length, the count of codes of shorter length,
// and the symbols sorted in code order.
type huffmanDecodeTable struct {
	// minCode[l], maxCode[l], valPtr[l] describe the canonical Huffman
	// codes of length l, for l in 1..16; index 0 is unused (standard
	// JPEG Annex C decoder tables).
	minCode [17]int32
	maxCode [17]int32
	valPtr  [17]int32
	values  []byte
}

func newHuffmanDecodeTable(spec huffmanSpec) *huffmanDecodeTable {
	t := &huffmanDecodeTable{values: spec.values}

	code := int32(0)
	k := int32(0)

	for l := 1; l <= 16; l++ {
		count := int32(spec.bits[l-1])
		if count == 0 {
			t.maxCode[l] = -1
		} else {
			t.valPtr[l] = k
			t.minCode[l] = code
			code += count
			k += count
			t.maxCode[l] = code - 1
		}
		code <<= 1
	}

	return t
}

// huffmanEncodeLUT is a compiled representation of a huffmanSpec for
// encoding: value -> (code, length) packed as length<<24|code.
type huffmanEncodeLUT []uint32

func newHuffmanEncodeLUT(spec huffmanSpec) huffmanEncodeLUT {
	maxValue := 0
	for _, v := range spec.values {
		if int(v) > maxValue {
			maxValue = int(v)
		}
	}

	lut := make(huffmanEncodeLUT, maxValue+1)

	code, k := uint32(0), 0

	for length := 0; length < 16; length++ {
		nBits := uint32(length+1) << 24

		for j := byte(0); j < spec.bits[length]; j++ {
			lut[spec.values[k]] = nBits | code
			code++
			k++
		}

		code <<= 1
	}

	return lut
}

// bitCount[i] is the number of bits needed to represent |i|, used when
// emitting a signed DC/AC magnitude.
var bitCount = func() [32768]byte {
	var t [32768]byte
	for i := range t {
		n := byte(0)
		for v := i; v != 0; v >>= 1 {
			n++
		}
		t[i] = n
	}
	return t
}()
