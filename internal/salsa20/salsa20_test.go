package salsa20

import (
	"bytes"
	"testing"
)

func key(b byte) []byte {
	k := make([]byte, KeySize)
	for i := range k {
		k[i] = b
	}
	return k
}

func nonce(b byte) []byte {
	n := make([]byte, NonceSize)
	for i := range n {
		n[i] = b
	}
	return n
}

func TestXORKeyStreamIsInvolution(t *testing.T) {
	c := New(key(0x42), 20)
	c.SetNonce(nonce(0x01))

	plaintext := make([]byte, 300)
	for i := range plaintext {
		plaintext[i] = byte(i * 7)
	}

	ciphertext := make([]byte, len(plaintext))
	c.XORKeyStream(ciphertext, plaintext)

	c2 := New(key(0x42), 20)
	c2.SetNonce(nonce(0x01))

	recovered := make([]byte, len(ciphertext))
	c2.XORKeyStream(recovered, ciphertext)

	if !bytes.Equal(recovered, plaintext) {
		t.Fatalf("decrypting the ciphertext did not recover the plaintext")
	}
}

func TestCloneProducesIdenticalStream(t *testing.T) {
	c := New(key(0x11), 12)
	c.SetNonce(nonce(0x02))

	// Advance the cipher partway through a block so Clone must copy
	// in-flight position state too, not just the key schedule.
	discard := make([]byte, 17)
	c.XORKeyStream(discard, discard)

	clone := c.Clone()

	a := make([]byte, 100)
	b := make([]byte, 100)

	zero := make([]byte, 100)
	c.XORKeyStream(a, zero)
	clone.XORKeyStream(b, zero)

	if !bytes.Equal(a, b) {
		t.Fatalf("clone diverged from the original cipher's keystream")
	}
}

func TestSetNonceResetsCounter(t *testing.T) {
	c := New(key(0x33), 20)

	n := nonce(0x04)
	c.SetNonce(n)

	zero := make([]byte, 128)
	first := make([]byte, 128)
	c.XORKeyStream(first, zero)

	c.SetNonce(n)

	second := make([]byte, 128)
	c.XORKeyStream(second, zero)

	if !bytes.Equal(first, second) {
		t.Fatalf("re-setting the same nonce did not reproduce the same keystream")
	}
}

func TestDifferentNoncesDiffer(t *testing.T) {
	zero := make([]byte, 64)

	c1 := New(key(0x55), 20)
	c1.SetNonce(nonce(0x00))
	out1 := make([]byte, 64)
	c1.XORKeyStream(out1, zero)

	c2 := New(key(0x55), 20)
	c2.SetNonce(nonce(0x01))
	out2 := make([]byte, 64)
	c2.XORKeyStream(out2, zero)

	if bytes.Equal(out1, out2) {
		t.Fatalf("different nonces produced identical keystreams")
	}
}

func TestRoundCountAffectsStream(t *testing.T) {
	zero := make([]byte, 64)

	full := New(key(0x77), 20)
	full.SetNonce(nonce(0x00))
	out20 := make([]byte, 64)
	full.XORKeyStream(out20, zero)

	reduced := New(key(0x77), 12)
	reduced.SetNonce(nonce(0x00))
	out12 := make([]byte, 64)
	reduced.XORKeyStream(out12, zero)

	if bytes.Equal(out20, out12) {
		t.Fatalf("Salsa20 and Salsa20/12 produced identical output for the same key and nonce")
	}
}
