//
// sp.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package sp generates square pairs: additive shares of (a, a·a)
// over the machine-integer widths 8, 16, 32, 64, and 128 bits. The
// pairs are precomputed in a two-phase setup driven by pairwise
// oblivious transfers and consumed by the online multiplication
// protocols.
package sp

import (
	"crypto/rand"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/chacha20"

	"github.com/markkurossi/mpcore/cond"
)

var (
	// ErrNotReady signals that pairs were requested before Setup
	// completed.
	ErrNotReady = errors.New("sp: pairs not ready")

	// ErrInvalidWidth signals an unsupported integer width.
	ErrInvalidWidth = errors.New("sp: invalid width")
)

// Widths lists the supported integer widths in their protocol order.
// The order is a protocol invariant: all parties must register and
// parse OT batches in this width order or sender and receiver
// handles will not match up.
var Widths = []int{8, 16, 32, 64, 128}

// Vector holds this party's additive shares of square pairs: for
// every index, the shares of a and of a·a held by all parties sum to
// A and A·A modulo 2^width.
type Vector[T any] struct {
	A []T
	C []T
}

// Pairs aggregates the square-pair vectors of all widths.
type Pairs struct {
	K8   Vector[uint8]
	K16  Vector[uint16]
	K32  Vector[uint32]
	K64  Vector[uint64]
	K128 Vector[Uint128]
}

// Provider precomputes square pairs.
type Provider interface {
	// RequestSps requests count additional square pairs of the
	// width. It may only be called during the circuit-build phase,
	// before PreSetup.
	RequestSps(bits, count int) error

	// NumSps returns the number of requested pairs of the width.
	NumSps(bits int) int

	// NeedSps reports whether any pairs were requested.
	NeedSps() bool

	// PreSetup registers the OTs backing the requested pairs.
	PreSetup() error

	// Setup drives the OTs to completion and derives the pair
	// shares. On success the finished condition is signalled.
	Setup() error

	// FinishedCond returns the completion condition. It becomes
	// true when Setup has completed successfully.
	FinishedCond() *cond.Condition
}

func widthIndex(bits int) (int, error) {
	for idx, w := range Widths {
		if w == bits {
			return idx, nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidWidth, "%d bits", bits)
}

// ops defines the arithmetic of one pair width. The table makes the
// register and parse paths generic over the width, including the
// 128-bit width that has no native machine type.
type ops[T any] struct {
	bits     int
	random   func(prg *chacha20.Cipher, count int) []T
	square   func(a T) T
	shl      func(a T, n uint) T
	bit      func(a T, n uint) bool
	subTwice func(c, m T) T
	addTwice func(c, m T) T
	put      func(buf []byte, a T)
	get      func(buf []byte) T
}

type native interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

func nativeOps[T native](bits int) ops[T] {
	byteLen := bits / 8
	get := func(buf []byte) T {
		var v T
		for i := 0; i < byteLen; i++ {
			v |= T(buf[i]) << (8 * i)
		}
		return v
	}
	return ops[T]{
		bits: bits,
		random: func(prg *chacha20.Cipher, count int) []T {
			buf := make([]byte, count*byteLen)
			prg.XORKeyStream(buf, buf)
			vals := make([]T, count)
			for i := range vals {
				vals[i] = get(buf[i*byteLen:])
			}
			return vals
		},
		square: func(a T) T {
			return a * a
		},
		shl: func(a T, n uint) T {
			return a << n
		},
		bit: func(a T, n uint) bool {
			return a>>n&1 == 1
		},
		subTwice: func(c, m T) T {
			return c - 2*m
		},
		addTwice: func(c, m T) T {
			return c + 2*m
		},
		put: func(buf []byte, a T) {
			for i := 0; i < byteLen; i++ {
				buf[i] = byte(a >> (8 * i))
			}
		},
		get: get,
	}
}

func ops128() ops[Uint128] {
	two := Uint128{Lo: 2}
	return ops[Uint128]{
		bits: 128,
		random: func(prg *chacha20.Cipher, count int) []Uint128 {
			buf := make([]byte, count*16)
			prg.XORKeyStream(buf, buf)
			vals := make([]Uint128, count)
			for i := range vals {
				vals[i] = Uint128FromBytes(buf[i*16:])
			}
			return vals
		},
		square: func(a Uint128) Uint128 {
			return a.Mul(a)
		},
		shl: func(a Uint128, n uint) Uint128 {
			return a.Lsh(n)
		},
		bit: func(a Uint128, n uint) bool {
			return a.Bit(n)
		},
		subTwice: func(c, m Uint128) Uint128 {
			return c.Sub(two.Mul(m))
		},
		addTwice: func(c, m Uint128) Uint128 {
			return c.Add(two.Mul(m))
		},
		put: func(buf []byte, a Uint128) {
			a.PutBytes(buf)
		},
		get: Uint128FromBytes,
	}
}

// newPrg creates a randomly keyed ChaCha20 keystream generator.
func newPrg() (*chacha20.Cipher, error) {
	var key [chacha20.KeySize]byte
	var nonce [chacha20.NonceSize]byte

	if _, err := rand.Read(key[:]); err != nil {
		return nil, errors.Wrap(err, "sp: prg")
	}
	prg, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		return nil, errors.Wrap(err, "sp: prg")
	}
	return prg, nil
}

// generatePairs samples count random values a and initializes c to
// a·a.
func generatePairs[T any](o ops[T], prg *chacha20.Cipher, count int) Vector[T] {
	if count == 0 {
		return Vector[T]{}
	}
	v := Vector[T]{
		A: o.random(prg, count),
		C: make([]T, count),
	}
	for i, a := range v.A {
		v.C[i] = o.square(a)
	}
	return v
}
