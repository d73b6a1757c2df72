// Package salsa20 implements the Salsa20 and reduced-round Salsa20/12
// stream ciphers as a reseekable keystream generator.
//
// The stateless golang.org/x/crypto/salsa20 API cannot express the
// clone-with-new-nonce, reset-counter-to-zero pattern the Rang hashing
// scheme relies on, so this package is modeled on the block-cipher-as-
// stream Cipher idiom instead (generate a 64-byte block, hand out its
// bytes, regenerate on exhaustion, and let the counter be rewound via
// SetNonce).
package salsa20

import "encoding/binary"

// BlockSize is the size in bytes of one Salsa20 keystream block.
const BlockSize = 64

// KeySize is the size in bytes of a Salsa20-256 key.
const KeySize = 32

// NonceSize is the size in bytes of a Salsa20 nonce.
const NonceSize = 8

const (
	sigma0 = 0x61707865
	sigma1 = 0x3320646e
	sigma2 = 0x79622d32
	sigma3 = 0x6b206574
)

// Cipher is an instance of the Salsa20 stream cipher, keeping the
// 16-word state machine word for word as specified, with the 64-bit
// block counter held in words 8 and 9.
type Cipher struct {
	state  [16]uint32
	output [BlockSize]byte
	pos    int
	rounds int
}

// New returns a Salsa20 cipher with the given 32-byte key and round
// count (20 for standard Salsa20, 12 for Salsa20/12). The nonce and
// counter start at zero; call SetNonce to pick a stream.
func New(key []byte, rounds int) *Cipher {
	if len(key) != KeySize {
		panic("salsa20: bad key length")
	}

	c := &Cipher{rounds: rounds}

	c.state[0] = sigma0
	c.state[1] = binary.LittleEndian.Uint32(key[0:4])
	c.state[2] = binary.LittleEndian.Uint32(key[4:8])
	c.state[3] = binary.LittleEndian.Uint32(key[8:12])
	c.state[4] = binary.LittleEndian.Uint32(key[12:16])
	c.state[5] = sigma1
	c.state[10] = sigma2
	c.state[11] = binary.LittleEndian.Uint32(key[16:20])
	c.state[12] = binary.LittleEndian.Uint32(key[20:24])
	c.state[13] = binary.LittleEndian.Uint32(key[24:28])
	c.state[14] = binary.LittleEndian.Uint32(key[28:32])
	c.state[15] = sigma3

	c.pos = BlockSize

	return c
}

// Clone returns an independent copy of c sharing no state.
func (c *Cipher) Clone() *Cipher {
	cp := *c
	return &cp
}

// SetNonce sets the 8-byte nonce and resets the block counter to zero,
// discarding any buffered keystream.
func (c *Cipher) SetNonce(nonce []byte) {
	if len(nonce) != NonceSize {
		panic("salsa20: bad nonce length")
	}

	c.state[6] = binary.LittleEndian.Uint32(nonce[0:4])
	c.state[7] = binary.LittleEndian.Uint32(nonce[4:8])
	c.state[8] = 0
	c.state[9] = 0
	c.pos = BlockSize
}

func rotl(x uint32, n uint) uint32 {
	return x<<n | x>>(32-n)
}

func (c *Cipher) generate() {
	var x [16]uint32
	copy(x[:], c.state[:])

	for i := c.rounds; i > 0; i -= 2 {
		x[4] ^= rotl(x[0]+x[12], 7)
		x[8] ^= rotl(x[4]+x[0], 9)
		x[12] ^= rotl(x[8]+x[4], 13)
		x[0] ^= rotl(x[12]+x[8], 18)

		x[9] ^= rotl(x[5]+x[1], 7)
		x[13] ^= rotl(x[9]+x[5], 9)
		x[1] ^= rotl(x[13]+x[9], 13)
		x[5] ^= rotl(x[1]+x[13], 18)

		x[14] ^= rotl(x[10]+x[6], 7)
		x[2] ^= rotl(x[14]+x[10], 9)
		x[6] ^= rotl(x[2]+x[14], 13)
		x[10] ^= rotl(x[6]+x[2], 18)

		x[3] ^= rotl(x[15]+x[11], 7)
		x[7] ^= rotl(x[3]+x[15], 9)
		x[11] ^= rotl(x[7]+x[3], 13)
		x[15] ^= rotl(x[11]+x[7], 18)

		x[1] ^= rotl(x[0]+x[3], 7)
		x[2] ^= rotl(x[1]+x[0], 9)
		x[3] ^= rotl(x[2]+x[1], 13)
		x[0] ^= rotl(x[3]+x[2], 18)

		x[6] ^= rotl(x[5]+x[4], 7)
		x[7] ^= rotl(x[6]+x[5], 9)
		x[4] ^= rotl(x[7]+x[6], 13)
		x[5] ^= rotl(x[4]+x[7], 18)

		x[11] ^= rotl(x[10]+x[9], 7)
		x[8] ^= rotl(x[11]+x[10], 9)
		x[9] ^= rotl(x[8]+x[11], 13)
		x[10] ^= rotl(x[9]+x[8], 18)

		x[12] ^= rotl(x[15]+x[14], 7)
		x[13] ^= rotl(x[12]+x[15], 9)
		x[14] ^= rotl(x[13]+x[12], 13)
		x[15] ^= rotl(x[14]+x[13], 18)
	}

	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(c.output[4*i:], x[i]+c.state[i])
	}

	ctr := uint64(c.state[8]) | uint64(c.state[9])<<32
	ctr++
	c.state[8] = uint32(ctr)
	c.state[9] = uint32(ctr >> 32)

	c.pos = 0
}

// XORKeyStream XORs each byte of src with the next keystream byte and
// writes the result to dst. dst and src may be the same slice.
func (c *Cipher) XORKeyStream(dst, src []byte) {
	for i := 0; i < len(src); i++ {
		if c.pos == BlockSize {
			c.generate()
		}

		dst[i] = src[i] ^ c.output[c.pos]
		c.pos++
	}
}
