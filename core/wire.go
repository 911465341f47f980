//
// wire.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package core

import (
	"github.com/markkurossi/mpcore/ot"
)

// BooleanWire carries boolean GMW shares as packed SIMD bit values.
type BooleanWire struct {
	id     uint64
	values *ot.BitVector
}

// NewBooleanWire creates a boolean wire holding the argument shares
// and registers it with the Core.
func NewBooleanWire(c *Core, values *ot.BitVector) *BooleanWire {
	w := &BooleanWire{
		id:     c.NextWireID(),
		values: values,
	}
	c.RegisterNextWire(w)
	return w
}

// WireID implements Wire.WireID.
func (w *BooleanWire) WireID() uint64 {
	return w.id
}

// NumSIMD implements Wire.NumSIMD.
func (w *BooleanWire) NumSIMD() int {
	return w.values.Len()
}

// Values returns the wire's share bits.
func (w *BooleanWire) Values() *ot.BitVector {
	return w.values
}

// SetValues replaces the wire's share bits.
func (w *BooleanWire) SetValues(values *ot.BitVector) {
	w.values = values
}

// ArithmeticWire carries additive arithmetic shares as SIMD values.
type ArithmeticWire struct {
	id     uint64
	values []uint64
}

// NewArithmeticWire creates an arithmetic wire holding the argument
// shares and registers it with the Core.
func NewArithmeticWire(c *Core, values []uint64) *ArithmeticWire {
	w := &ArithmeticWire{
		id:     c.NextWireID(),
		values: values,
	}
	c.RegisterNextWire(w)
	return w
}

// WireID implements Wire.WireID.
func (w *ArithmeticWire) WireID() uint64 {
	return w.id
}

// NumSIMD implements Wire.NumSIMD.
func (w *ArithmeticWire) NumSIMD() int {
	return len(w.values)
}

// Values returns the wire's share values.
func (w *ArithmeticWire) Values() []uint64 {
	return w.values
}

// SetValues replaces the wire's share values.
func (w *ArithmeticWire) SetValues(values []uint64) {
	w.values = values
}
