// Package permute derives the keyed coefficient permutation and
// keystream shared by the Eph5 engine from a single ARCFOUR stream:
// the permutation consumes the front of the cipher's output, and the
// keystream continues drawing from the same, now-advanced, cipher.
package permute

import "crypto/rc4"

// bufferLength is the number of permutation-generation bytes drawn
// from the cipher per batch; chosen to keep the scratch buffer small
// while still amortizing the crypto/rc4 call overhead.
const bufferLength = 8192

// Generate returns a pseudorandom permutation of {0, ..., count-1}
// derived from cipher, advancing cipher's internal state by
// 4*count bytes worth of keystream. It implements a buffered
// Fisher-Yates shuffle seeded by 32-bit big-endian draws from the
// cipher, reducing each draw modulo the shrinking remaining range with
// a sign-folding trick that keeps the distribution close to uniform
// without requiring rejection sampling.
func Generate(cipher *rc4.Cipher, count int) []uint32 {
	permutation := make([]uint32, count)
	for i := range permutation {
		permutation[i] = uint32(i)
	}

	zero := make([]byte, bufferLength)
	buffer := make([]byte, bufferLength)

	lastIndex := count

	for i := 0; i < count; i += bufferLength / 4 {
		length := bufferLength
		if count-i < bufferLength/4 {
			length = (count - i) * 4
		}

		cipher.XORKeyStream(buffer[:length], zero[:length])

		for j := 0; j < length; j += 4 {
			index := uint32(buffer[j])<<24 | uint32(buffer[j+1])<<16 | uint32(buffer[j+2])<<8 | uint32(buffer[j+3])

			if index>>31&1 == 1 {
				index ^= 0xffffffff
				index %= uint32(lastIndex)
				index = uint32(lastIndex) - 1 - index
			} else {
				index %= uint32(lastIndex)
			}

			lastIndex--

			permutation[index], permutation[lastIndex] = permutation[lastIndex], permutation[index]
		}
	}

	return permutation
}

// Keystream draws length bytes of ARCFOUR output from cipher,
// continuing from its current internal state.
func Keystream(cipher *rc4.Cipher, length int) []byte {
	out := make([]byte, length)
	zero := make([]byte, length)
	cipher.XORKeyStream(out, zero)

	return out
}
