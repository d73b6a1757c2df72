package permute

import (
	"crypto/rc4"
	"testing"
)

func testKey(b byte) []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = b
	}
	return k
}

func TestGenerateIsAPermutation(t *testing.T) {
	cipher, err := rc4.NewCipher(testKey(0x7a))
	if err != nil {
		t.Fatal(err)
	}

	const n = 500
	perm := Generate(cipher, n)

	if len(perm) != n {
		t.Fatalf("len(perm) = %d, want %d", len(perm), n)
	}

	seen := make([]bool, n)
	for _, v := range perm {
		if v >= n {
			t.Fatalf("permutation value %d out of range [0, %d)", v, n)
		}
		if seen[v] {
			t.Fatalf("value %d appears more than once in the permutation", v)
		}
		seen[v] = true
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	const n = 200

	c1, _ := rc4.NewCipher(testKey(0x11))
	c2, _ := rc4.NewCipher(testKey(0x11))

	p1 := Generate(c1, n)
	p2 := Generate(c2, n)

	for i := range p1 {
		if p1[i] != p2[i] {
			t.Fatalf("two ciphers with the same key produced different permutations at index %d", i)
		}
	}
}

func TestGenerateDiffersAcrossKeys(t *testing.T) {
	const n = 200

	c1, _ := rc4.NewCipher(testKey(0x11))
	c2, _ := rc4.NewCipher(testKey(0x22))

	p1 := Generate(c1, n)
	p2 := Generate(c2, n)

	differences := 0
	for i := range p1 {
		if p1[i] != p2[i] {
			differences++
		}
	}

	if differences < n/2 {
		t.Fatalf("only %d/%d positions differed between two distinct keys", differences, n)
	}
}

func TestKeystreamContinuesSameCipherState(t *testing.T) {
	const n = 64

	c1, _ := rc4.NewCipher(testKey(0x33))
	_ = Generate(c1, n)
	ks1 := Keystream(c1, 16)

	c2, _ := rc4.NewCipher(testKey(0x33))
	_ = Generate(c2, n)
	ks2 := Keystream(c2, 16)

	for i := range ks1 {
		if ks1[i] != ks2[i] {
			t.Fatalf("keystream differed at byte %d for identical prior cipher usage", i)
		}
	}
}
