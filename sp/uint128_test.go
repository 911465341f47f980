//
// uint128_test.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package sp

import (
	"crypto/rand"
	"math/big"
	"testing"
)

var mod128 = new(big.Int).Lsh(big.NewInt(1), 128)

func toBig(v Uint128) *big.Int {
	result := new(big.Int).SetUint64(v.Hi)
	result.Lsh(result, 64)
	return result.Or(result, new(big.Int).SetUint64(v.Lo))
}

func randomUint128(t *testing.T) Uint128 {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		t.Fatal(err)
	}
	return Uint128FromBytes(buf[:])
}

func TestUint128Arithmetic(t *testing.T) {
	for round := 0; round < 100; round++ {
		a := randomUint128(t)
		b := randomUint128(t)

		sum := new(big.Int).Add(toBig(a), toBig(b))
		sum.Mod(sum, mod128)
		if toBig(a.Add(b)).Cmp(sum) != 0 {
			t.Fatalf("Add(%v, %v): got %v", a, b, a.Add(b))
		}

		diff := new(big.Int).Sub(toBig(a), toBig(b))
		diff.Mod(diff, mod128)
		if toBig(a.Sub(b)).Cmp(diff) != 0 {
			t.Fatalf("Sub(%v, %v): got %v", a, b, a.Sub(b))
		}

		prod := new(big.Int).Mul(toBig(a), toBig(b))
		prod.Mod(prod, mod128)
		if toBig(a.Mul(b)).Cmp(prod) != 0 {
			t.Fatalf("Mul(%v, %v): got %v", a, b, a.Mul(b))
		}
	}
}

func TestUint128Lsh(t *testing.T) {
	a := randomUint128(t)
	for n := uint(0); n < 130; n++ {
		expected := new(big.Int).Lsh(toBig(a), n)
		expected.Mod(expected, mod128)
		if toBig(a.Lsh(n)).Cmp(expected) != 0 {
			t.Fatalf("Lsh(%v, %d): got %v", a, n, a.Lsh(n))
		}
	}
}

func TestUint128Bit(t *testing.T) {
	a := randomUint128(t)
	ref := toBig(a)
	for n := uint(0); n < 128; n++ {
		if a.Bit(n) != (ref.Bit(int(n)) == 1) {
			t.Fatalf("Bit(%v, %d): got %v", a, n, a.Bit(n))
		}
	}
}

func TestUint128Bytes(t *testing.T) {
	a := randomUint128(t)
	var buf [16]byte
	a.PutBytes(buf[:])
	if Uint128FromBytes(buf[:]) != a {
		t.Fatalf("byte round trip: got %v, expected %v",
			Uint128FromBytes(buf[:]), a)
	}
}
