// Package rang implements the Rang-JPEG steganographic engine: a
// difference image between a clear and a lightly blurred "modified"
// copy identifies coefficients safe to flip, and a GF(2) reverse-hash
// (see package gf2) picks which of them to flip so that a keyed hash
// of the result equals the payload.
package rang

import (
	"github.com/thvl3/cover/internal/salsa20"
	"github.com/thvl3/cover/pkg/gf2"
)

// stringsRounds is the Salsa20/12 reduced-round variant used for the
// public per-bit hash strings: it needs no secrecy (the seed is
// fixed and public, see newStringsCipher), only fast, well-mixed
// pseudorandomness.
const stringsRounds = 12

// randomizationRounds is the standard 20-round Salsa20 used to derive
// the private sample-shuffle and padding-bits keystream from the
// caller's secret entropy.
const randomizationRounds = 20

// newStringsCipher returns the public, key-less (all-zero key) Salsa20/12
// generator that seeds every per-bit hash string. Its output is
// public and reproducible by any party who knows the coefficient
// indexes involved; the secrecy of an embed comes entirely from which
// coefficients the randomization PRNG selects, not from this cipher.
func newStringsCipher() *salsa20.Cipher {
	var zeroKey [salsa20.KeySize]byte
	return salsa20.New(zeroKey[:], stringsRounds)
}

// newRandomizationCipher returns the private Salsa20 generator seeded
// from entropy, with its nonce fixed at zero; the whole keystream is
// consumed sequentially across one embed operation, never reseeked.
func newRandomizationCipher(entropy []byte) *salsa20.Cipher {
	c := salsa20.New(entropy, randomizationRounds)

	var zeroNonce [salsa20.NonceSize]byte
	c.SetNonce(zeroNonce[:])

	return c
}

// xorString XORs the Salsa20/12 keystream for the given bit index,
// generated from a fresh nonce derived from index with the counter
// reset to zero, into hash.
func xorString(length int, hash []byte, strings *salsa20.Cipher, index uint32) {
	nonce := [salsa20.NonceSize]byte{
		byte(index), byte(index >> 8), byte(index >> 16), byte(index >> 24),
	}

	c := strings.Clone()
	c.SetNonce(nonce[:])
	c.XORKeyStream(hash[:length], hash[:length])
}

// hashBits XORs into hash the per-bit string of every set bit in
// bits[start:start+count).
func hashBits(length int, hash []byte, strings *salsa20.Cipher, start uint32, count int, bits []byte) {
	for i := 0; i < count; i++ {
		index := start + uint32(i)

		if bits[index/8]>>uint(index%8)&1 == 1 {
			xorString(length, hash, strings, index)
		}
	}
}

// stringsHashFunc adapts xorString to gf2.HashFunc for a fixed
// strings cipher.
func stringsHashFunc(strings *salsa20.Cipher) gf2.HashFunc {
	return func(row []byte, index uint32) {
		xorString(len(row), row, strings, index)
	}
}
