//
// provider.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//
// Additively correlated OT built on the Chou Orlandi protocol - The
// Simplest Protocol for Oblivious Transfer.
//  - https://eprint.iacr.org/2015/267.pdf

package ot

import (
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"math/big"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/hkdf"

	"github.com/markkurossi/mpcore/p2p"
)

// Provider registers OT vectors against one peer connection. All
// vectors registered as sender on one side must be registered as
// receiver on the other side in the same order; the transfers run in
// that order over the shared connection.
type Provider struct {
	conn  *p2p.Conn
	rand  io.Reader
	curve elliptic.Curve
}

// NewProvider creates an OT provider for the peer connection. If
// random is nil, crypto/rand is used.
func NewProvider(conn *p2p.Conn, random io.Reader) *Provider {
	if random == nil {
		random = rand.Reader
	}
	return &Provider{
		conn:  conn,
		rand:  random,
		curve: elliptic.P256(),
	}
}

func (p *Provider) checkRegister(bits, count int, proto Protocol) error {
	if proto != AcOt {
		return errors.Newf("ot: unsupported protocol %d", proto)
	}
	if bits <= 0 || bits%8 != 0 {
		return errors.Newf("ot: invalid vector length %d", bits)
	}
	if count <= 0 {
		return errors.Newf("ot: invalid message count %d", count)
	}
	return nil
}

// RegisterSend registers a sender vector of count messages, each bits
// wide. No I/O is performed until SendMessages.
func (p *Provider) RegisterSend(bits, count int, proto Protocol) (
	*VectorSender, error) {

	if err := p.checkRegister(bits, count, proto); err != nil {
		return nil, err
	}
	return &VectorSender{
		prov:  p,
		bits:  bits,
		count: count,
	}, nil
}

// RegisterReceive registers a receiver vector of count choices for
// messages bits wide. No I/O is performed until SendCorrections.
func (p *Provider) RegisterReceive(bits, count int, proto Protocol) (
	*VectorReceiver, error) {

	if err := p.checkRegister(bits, count, proto); err != nil {
		return nil, err
	}
	return &VectorReceiver{
		prov:  p,
		bits:  bits,
		count: count,
	}, nil
}

// VectorSender is the sender handle of one registered OT vector.
type VectorSender struct {
	prov    *Provider
	bits    int
	count   int
	inputs  [][]byte
	outputs [][]byte
}

// SetInputs sets the additive correlations, one bits-wide
// little-endian string per position.
func (s *VectorSender) SetInputs(inputs [][]byte) error {
	if len(inputs) != s.count {
		return errors.Wrapf(ErrProtocolViolation,
			"ot: %d inputs, expected %d", len(inputs), s.count)
	}
	for idx, input := range inputs {
		if len(input) != s.bits/8 {
			return errors.Wrapf(ErrProtocolViolation,
				"ot: input %d is %d bytes, expected %d",
				idx, len(input), s.bits/8)
		}
	}
	s.inputs = inputs
	return nil
}

// SendMessages runs the sender side of the transfer. The sender
// learns count random masks m_j; the receiver learns m_j plus its
// chosen correlation.
func (s *VectorSender) SendMessages() error {
	if s.inputs == nil {
		return errors.Wrap(ErrProtocolViolation, "ot: inputs not set")
	}
	if s.outputs != nil {
		return errors.Wrap(ErrProtocolViolation, "ot: already sent")
	}

	conn := s.prov.conn
	curve := s.prov.curve
	params := curve.Params()
	byteLen := s.bits / 8

	// a <- Zp, A = G^a, shared for the whole vector.
	a, err := rand.Int(s.prov.rand, params.N)
	if err != nil {
		return errors.Wrap(err, "ot: send")
	}
	Ax, Ay := curve.ScalarBaseMult(a.Bytes())

	// AaInv = (A^a)^-1 for deriving the one-key.
	AaX, AaY := curve.ScalarMult(Ax, Ay, a.Bytes())
	AaInvX := new(big.Int).Set(AaX)
	AaInvY := new(big.Int).Sub(params.P, AaY)

	if err := conn.SendData(elliptic.Marshal(curve, Ax, Ay)); err != nil {
		return err
	}
	if err := conn.Flush(); err != nil {
		return err
	}

	// Drain all B points before writing any ciphertexts: the
	// receiver writes its whole point batch before it starts
	// reading, so interleaving would stall both directions on large
	// batches.
	pad0s := make([][]byte, s.count)
	pad1s := make([][]byte, s.count)
	for j := 0; j < s.count; j++ {
		data, err := conn.ReceiveData()
		if err != nil {
			return err
		}
		Bx, By := elliptic.Unmarshal(curve, data)
		if Bx == nil {
			return errors.Wrapf(ErrProtocolViolation,
				"ot: position %d: invalid curve point", j)
		}

		// Zero-key from B^a, one-key from B^a * (A^a)^-1.
		aBx, aBy := curve.ScalarMult(Bx, By, a.Bytes())
		pad0s[j] = kdf(curve, aBx, aBy, j, byteLen)

		cx, cy := curve.Add(aBx, aBy, AaInvX, AaInvY)
		pad1s[j] = kdf(curve, cx, cy, j, byteLen)
	}

	outputs := make([][]byte, s.count)
	for j := 0; j < s.count; j++ {
		mask := make([]byte, byteLen)
		if _, err := io.ReadFull(s.prov.rand, mask); err != nil {
			return errors.Wrap(err, "ot: send")
		}
		outputs[j] = mask

		xorBytes(pad0s[j], mask)
		if err := conn.SendData(pad0s[j]); err != nil {
			return err
		}
		xorBytes(pad1s[j], addMod2k(mask, s.inputs[j]))
		if err := conn.SendData(pad1s[j]); err != nil {
			return err
		}
	}
	if err := conn.Flush(); err != nil {
		return err
	}

	s.outputs = outputs
	return nil
}

// Outputs returns the sender's random masks. SendMessages must have
// completed.
func (s *VectorSender) Outputs() ([][]byte, error) {
	if s.outputs == nil {
		return nil, errors.Wrap(ErrNotReady, "ot: sender outputs")
	}
	return s.outputs, nil
}

// VectorReceiver is the receiver handle of one registered OT vector.
type VectorReceiver struct {
	prov    *Provider
	bits    int
	count   int
	choices *BitVector
	outputs [][]byte
}

// SetChoices sets the receiver's choice bits.
func (r *VectorReceiver) SetChoices(choices *BitVector) error {
	if choices.Len() != r.count {
		return errors.Wrapf(ErrProtocolViolation,
			"ot: %d choices, expected %d", choices.Len(), r.count)
	}
	r.choices = choices
	return nil
}

// SendCorrections runs the receiver side of the transfer.
func (r *VectorReceiver) SendCorrections() error {
	if r.choices == nil {
		return errors.Wrap(ErrProtocolViolation, "ot: choices not set")
	}
	if r.outputs != nil {
		return errors.Wrap(ErrProtocolViolation, "ot: already received")
	}

	conn := r.prov.conn
	curve := r.prov.curve
	params := curve.Params()
	byteLen := r.bits / 8

	data, err := conn.ReceiveData()
	if err != nil {
		return err
	}
	Ax, Ay := elliptic.Unmarshal(curve, data)
	if Ax == nil {
		return errors.Wrap(ErrProtocolViolation, "ot: invalid curve point")
	}

	// B = G^x for choice 0, A * G^x for choice 1.
	scalars := make([]*big.Int, r.count)
	for j := 0; j < r.count; j++ {
		x, err := rand.Int(r.prov.rand, params.N)
		if err != nil {
			return errors.Wrap(err, "ot: receive")
		}
		scalars[j] = x

		Bx, By := curve.ScalarBaseMult(x.Bytes())
		if r.choices.Bit(j) {
			Bx, By = curve.Add(Bx, By, Ax, Ay)
		}
		if err := conn.SendData(elliptic.Marshal(curve, Bx, By)); err != nil {
			return err
		}
	}
	if err := conn.Flush(); err != nil {
		return err
	}

	outputs := make([][]byte, r.count)
	for j := 0; j < r.count; j++ {
		c0, err := conn.ReceiveData()
		if err != nil {
			return err
		}
		c1, err := conn.ReceiveData()
		if err != nil {
			return err
		}
		if len(c0) != byteLen || len(c1) != byteLen {
			return errors.Wrapf(ErrProtocolViolation,
				"ot: position %d: %d/%d byte messages, expected %d",
				j, len(c0), len(c1), byteLen)
		}

		// Key from A^x.
		kx, ky := curve.ScalarMult(Ax, Ay, scalars[j].Bytes())
		pad := kdf(curve, kx, ky, j, byteLen)

		if r.choices.Bit(j) {
			xorBytes(pad, c1)
		} else {
			xorBytes(pad, c0)
		}
		outputs[j] = pad
	}

	r.outputs = outputs
	return nil
}

// Outputs returns the receiver's transfer outputs. SendCorrections
// must have completed.
func (r *VectorReceiver) Outputs() ([][]byte, error) {
	if r.outputs == nil {
		return nil, errors.Wrap(ErrNotReady, "ot: receiver outputs")
	}
	return r.outputs, nil
}

// kdf derives a byteLen pad from the curve point, bound to the
// position within the vector.
func kdf(curve elliptic.Curve, x, y *big.Int, position, byteLen int) []byte {
	var info [4]byte
	binary.LittleEndian.PutUint32(info[:], uint32(position))

	h := hkdf.New(sha256.New, elliptic.Marshal(curve, x, y), nil, info[:])
	pad := make([]byte, byteLen)
	if _, err := io.ReadFull(h, pad); err != nil {
		// HKDF output is far below its length limit here.
		panic(err)
	}
	return pad
}

// xorBytes xors src into dst in place.
func xorBytes(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// addMod2k returns a+b mod 2^(8*len(a)) as a new little-endian
// string.
func addMod2k(a, b []byte) []byte {
	result := make([]byte, len(a))
	var carry uint16
	for i := range a {
		sum := uint16(a[i]) + uint16(b[i]) + carry
		result[i] = byte(sum)
		carry = sum >> 8
	}
	return result
}
