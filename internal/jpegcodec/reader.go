package jpegcodec

import (
	"errors"
	"fmt"
)

const (
	markerSOI  = 0xd8
	markerEOI  = 0xd9
	markerSOF0 = 0xc0
	markerSOF1 = 0xc1
	markerSOF2 = 0xc2
	markerDHT  = 0xc4
	markerDQT  = 0xdb
	markerDRI  = 0xdd
	markerSOS  = 0xda
	markerRST0 = 0xd0
	markerRST7 = 0xd7
)

type scanComponent struct {
	compIndex int
	dcTable   int
	acTable   int
}

type reader struct {
	data []byte
	pos  int

	bitBuf   uint32
	bitCount int

	huffDC [4]*huffmanDecodeTable
	huffAC [4]*huffmanDecodeTable
}

var errMarkerInStream = errors.New("jpegcodec: marker encountered in entropy-coded segment")

func (r *reader) nextBit() (int, error) {
	if r.bitCount == 0 {
		if r.pos >= len(r.data) {
			return 0, fmt.Errorf("%w: truncated entropy-coded segment", ErrInvalidFormat)
		}

		b := r.data[r.pos]
		r.pos++

		if b == 0xff {
			if r.pos < len(r.data) && r.data[r.pos] == 0x00 {
				r.pos++
			} else {
				r.pos--
				return 0, errMarkerInStream
			}
		}

		r.bitBuf = uint32(b)
		r.bitCount = 8
	}

	bit := int(r.bitBuf>>uint(r.bitCount-1)) & 1
	r.bitCount--

	return bit, nil
}

func (r *reader) receive(n int) (int32, error) {
	var v int32

	for i := 0; i < n; i++ {
		bit, err := r.nextBit()
		if err != nil {
			return 0, err
		}

		v = v<<1 | int32(bit)
	}

	return v, nil
}

func (r *reader) receiveExtend(n int) (int32, error) {
	if n == 0 {
		return 0, nil
	}

	v, err := r.receive(n)
	if err != nil {
		return 0, err
	}

	if v < 1<<(n-1) {
		v += -1<<uint(n) + 1
	}

	return v, nil
}

func (r *reader) decodeHuffman(t *huffmanDecodeTable) (byte, error) {
	code := int32(0)

	for l := 1; l <= 16; l++ {
		bit, err := r.nextBit()
		if err != nil {
			return 0, err
		}

		code = code<<1 | int32(bit)

		if t.maxCode[l] >= 0 && code <= t.maxCode[l] {
			return t.values[t.valPtr[l]+(code-t.minCode[l])], nil
		}
	}

	return 0, fmt.Errorf("%w: bad Huffman code", ErrInvalidFormat)
}

func (r *reader) alignToByte() {
	r.bitCount = 0
}

// Decode parses a baseline JPEG file's markers and entropy-coded scan
// data into an Image holding every component's raw quantized
// coefficients in natural order.
func Decode(data []byte) (*Image, error) {
	if len(data) < 4 || data[0] != 0xff || data[1] != markerSOI {
		return nil, fmt.Errorf("%w: missing SOI marker", ErrInvalidFormat)
	}

	img := &Image{}
	r := &reader{data: data, pos: 2}

	var comps []rawComponent

	for {
		marker, err := readMarker(r)
		if err != nil {
			return nil, err
		}

		if marker == markerEOI {
			break
		}

		switch {
		case marker == markerDQT:
			if err := readDQT(r, img); err != nil {
				return nil, err
			}
		case marker == markerDHT:
			if err := readDHT(r); err != nil {
				return nil, err
			}
		case marker == markerDRI:
			length := readUint16(r)
			_ = length
			img.RestartInterval = int(readUint16At(r.data, r.pos))
			r.pos += 2
		case marker == markerSOF0 || marker == markerSOF1:
			if err := readSOF(r, img, &comps); err != nil {
				return nil, err
			}
		case marker == markerSOF2:
			return nil, fmt.Errorf("%w: progressive JPEG", ErrUnsupported)
		case marker >= 0xc0 && marker <= 0xcf && marker != markerDHT:
			return nil, fmt.Errorf("%w: unsupported SOF variant 0x%02x", ErrUnsupported, marker)
		case marker == markerSOS:
			if err := readSOSAndScan(r, img); err != nil {
				return nil, err
			}
		default:
			// APPn, COM, and any other marker segment we don't care about.
			length := readUint16At(r.data, r.pos)
			r.pos += int(length)
		}
	}

	return img, nil
}

func readMarker(r *reader) (byte, error) {
	for {
		if r.pos+1 >= len(r.data) {
			return 0, fmt.Errorf("%w: truncated marker", ErrInvalidFormat)
		}

		if r.data[r.pos] != 0xff {
			return 0, fmt.Errorf("%w: expected marker at offset %d", ErrInvalidFormat, r.pos)
		}

		marker := r.data[r.pos+1]
		r.pos += 2

		if marker == 0xff {
			// Fill byte.
			r.pos--
			continue
		}

		return marker, nil
	}
}

func readUint16At(data []byte, pos int) uint16 {
	if pos+1 >= len(data) {
		return 0
	}

	return uint16(data[pos])<<8 | uint16(data[pos+1])
}

func readUint16(r *reader) uint16 {
	v := readUint16At(r.data, r.pos)
	r.pos += 2

	return v
}

func readDQT(r *reader, img *Image) error {
	length := int(readUint16(r))
	end := r.pos + length - 2

	for r.pos < end {
		pq_tq := r.data[r.pos]
		r.pos++

		if pq_tq>>4 != 0 {
			return fmt.Errorf("%w: 16-bit quantization tables unsupported", ErrUnsupported)
		}

		tq := pq_tq & 0x0f

		var table [BlockSize]byte
		copy(table[:], r.data[r.pos:r.pos+BlockSize])
		r.pos += BlockSize

		img.QuantTables[tq] = &table
	}

	return nil
}

func readDHT(r *reader) error {
	length := int(readUint16(r))
	end := r.pos + length - 2

	for r.pos < end {
		tc_th := r.data[r.pos]
		r.pos++

		class := tc_th >> 4
		id := tc_th & 0x0f

		var spec huffmanSpec
		copy(spec.bits[:], r.data[r.pos:r.pos+16])
		r.pos += 16

		count := 0
		for _, b := range spec.bits {
			count += int(b)
		}

		spec.values = make([]byte, count)
		copy(spec.values, r.data[r.pos:r.pos+count])
		r.pos += count

		table := newHuffmanDecodeTable(spec)

		if class == 0 {
			r.huffDC[id] = table
		} else {
			r.huffAC[id] = table
		}
	}

	return nil
}

type rawComponent struct {
	id         byte
	h, v       int
	quantTable int
}

func readSOF(r *reader, img *Image, comps *[]rawComponent) error {
	length := int(readUint16(r))
	_ = length

	precision := r.data[r.pos]
	r.pos++

	if precision != 8 {
		return fmt.Errorf("%w: only 8-bit samples supported", ErrUnsupported)
	}

	img.Height = int(readUint16At(r.data, r.pos))
	r.pos += 2
	img.Width = int(readUint16At(r.data, r.pos))
	r.pos += 2

	n := int(r.data[r.pos])
	r.pos++

	img.Components = make([]Component, n)
	*comps = make([]rawComponent, n)

	maxH, maxV := 1, 1

	for i := 0; i < n; i++ {
		id := r.data[r.pos]
		hv := r.data[r.pos+1]
		tq := r.data[r.pos+2]
		r.pos += 3

		h, v := int(hv>>4), int(hv&0x0f)

		(*comps)[i] = rawComponent{id, h, v, int(tq)}

		if h > maxH {
			maxH = h
		}
		if v > maxV {
			maxV = v
		}
	}

	img.maxHSamp, img.maxVSamp = maxH, maxV
	img.mcusAcross = (img.Width + 8*maxH - 1) / (8 * maxH)
	img.mcusDown = (img.Height + 8*maxV - 1) / (8 * maxV)

	for i, c := range *comps {
		widthInBlocks := img.mcusAcross * c.h
		heightInBlocks := img.mcusDown * c.v

		img.Components[i] = Component{
			ID:              c.id,
			HSamp:           c.h,
			VSamp:           c.v,
			QuantTableIndex: c.quantTable,
			WidthInBlocks:   widthInBlocks,
			HeightInBlocks:  heightInBlocks,
			Blocks:          make([]Block, widthInBlocks*heightInBlocks),
		}
	}

	return nil
}

func readSOSAndScan(r *reader, img *Image) error {
	length := int(readUint16(r))
	_ = length

	ns := int(r.data[r.pos])
	r.pos++

	scan := make([]scanComponent, ns)

	for i := 0; i < ns; i++ {
		cs := r.data[r.pos]
		td_ta := r.data[r.pos+1]
		r.pos += 2

		compIndex := -1
		for ci, c := range img.Components {
			if c.ID == cs {
				compIndex = ci
				break
			}
		}
		if compIndex == -1 {
			return fmt.Errorf("%w: unknown scan component selector", ErrInvalidFormat)
		}

		scan[i] = scanComponent{compIndex: compIndex, dcTable: int(td_ta >> 4), acTable: int(td_ta & 0x0f)}
	}

	// Ss, Se, AhAl: 3 bytes, fixed at 0,63,0 for baseline.
	r.pos += 3

	dcPred := make([]int32, len(img.Components))

	mcuCount := img.mcusAcross * img.mcusDown
	restartInterval := img.RestartInterval
	restartCount := 0
	expectedRST := 0

	for mcu := 0; mcu < mcuCount; mcu++ {
		mx := mcu % img.mcusAcross
		my := mcu / img.mcusAcross

		for _, sc := range scan {
			comp := &img.Components[sc.compIndex]

			for v := 0; v < comp.VSamp; v++ {
				for h := 0; h < comp.HSamp; h++ {
					bx := mx*comp.HSamp + h
					by := my*comp.VSamp + v

					block := comp.Block(bx, by)

					if err := decodeBlock(r, block, r.huffDC[sc.dcTable], r.huffAC[sc.acTable], &dcPred[sc.compIndex]); err != nil {
						return err
					}
				}
			}
		}

		restartCount++

		if restartInterval > 0 && restartCount == restartInterval && mcu != mcuCount-1 {
			r.alignToByte()

			if r.pos+1 >= len(r.data) || r.data[r.pos] != 0xff || r.data[r.pos+1] != byte(markerRST0+expectedRST%8) {
				return fmt.Errorf("%w: expected restart marker", ErrInvalidFormat)
			}
			r.pos += 2

			expectedRST++
			restartCount = 0

			for i := range dcPred {
				dcPred[i] = 0
			}
		}
	}

	r.alignToByte()

	return nil
}

func decodeBlock(r *reader, block *Block, dcTable, acTable *huffmanDecodeTable, dcPred *int32) error {
	for i := range block {
		block[i] = 0
	}

	t, err := r.decodeHuffman(dcTable)
	if err != nil {
		return err
	}

	diff, err := r.receiveExtend(int(t))
	if err != nil {
		return err
	}

	*dcPred += diff
	block[0] = *dcPred

	k := 1
	for k < BlockSize {
		rs, err := r.decodeHuffman(acTable)
		if err != nil {
			return err
		}

		run, size := int(rs>>4), int(rs&0x0f)

		if size == 0 {
			if run == 15 {
				k += 16
				continue
			}
			break
		}

		k += run
		if k >= BlockSize {
			return fmt.Errorf("%w: AC coefficient index out of range", ErrInvalidFormat)
		}

		v, err := r.receiveExtend(size)
		if err != nil {
			return err
		}

		block[unzig[k]] = v
		k++
	}

	return nil
}
