//
// core.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package core implements the circuit registry shared by the protocol
// threads of one MPC session. The registry allocates gate, wire, and
// sharing identifiers, owns the gate and wire tables, delegates
// party-to-party messages, and schedules ready gates through the
// active-gate queue.
package core

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"go.dedis.ch/onet/v3/log"
)

var (
	// ErrSelfSend signals a message addressed to the local party.
	ErrSelfSend = errors.New("core: message to self")

	// ErrInvalidParty signals an unknown party ID.
	ErrInvalidParty = errors.New("core: invalid party ID")

	// ErrInvalidID signals a gate or wire lookup outside the table.
	ErrInvalidID = errors.New("core: invalid ID")

	// ErrInvalidCount signals a sharing-ID allocation with zero
	// parallel values.
	ErrInvalidCount = errors.New("core: invalid number of parallel values")
)

// Transport sends protocol messages to one remote party.
type Transport interface {
	SendMessage(msg []byte) error
}

// Core is the single point of truth for a running MPC session. The
// ID counters and the gate and wire tables are accessed only from the
// single-threaded circuit-build phase; the active-gate queue and the
// evaluated-gates counter are the only members touched concurrently.
type Core struct {
	myID int

	gateID       uint64
	wireID       uint64
	arithmeticID uint64
	booleanID    uint64

	evaluated atomic.Uint64

	gates      []Gate
	inputGates []uint64
	wires      []Wire

	transports []Transport

	queueMu     sync.Mutex
	activeGates []uint64
}

// NewCore creates a registry for the party.
func NewCore(myID int) *Core {
	return &Core{
		myID: myID,
	}
}

// MyID returns the local party's ID.
func (c *Core) MyID() int {
	return c.myID
}

// NextGateID allocates the next gate ID.
func (c *Core) NextGateID() uint64 {
	id := c.gateID
	c.gateID++
	return id
}

// NextWireID allocates the next wire ID.
func (c *Core) NextWireID() uint64 {
	id := c.wireID
	c.wireID++
	return id
}

// NextArithmeticSharingID allocates IDs for numParallelValues
// arithmetic sharings and returns the first ID of the range.
func (c *Core) NextArithmeticSharingID(numParallelValues int) (
	uint64, error) {

	if numParallelValues < 1 {
		return 0, errors.Wrapf(ErrInvalidCount, "%d", numParallelValues)
	}
	id := c.arithmeticID
	c.arithmeticID += uint64(numParallelValues)
	return id, nil
}

// NextBooleanGMWSharingID allocates IDs for numParallelValues boolean
// GMW sharings and returns the first ID of the range.
func (c *Core) NextBooleanGMWSharingID(numParallelValues int) (
	uint64, error) {

	if numParallelValues < 1 {
		return 0, errors.Wrapf(ErrInvalidCount, "%d", numParallelValues)
	}
	id := c.booleanID
	c.booleanID += uint64(numParallelValues)
	return id, nil
}

// RegisterNextGate appends the gate to the gate table and returns its
// slot ID.
func (c *Core) RegisterNextGate(gate Gate) uint64 {
	if gate == nil {
		panic("core: nil gate")
	}
	id := uint64(len(c.gates))
	c.gates = append(c.gates, gate)
	return id
}

// RegisterNextInputGate registers the gate and records it in the
// input-gate index.
func (c *Core) RegisterNextInputGate(gate Gate) uint64 {
	id := c.RegisterNextGate(gate)
	c.inputGates = append(c.inputGates, id)
	return id
}

// GetGate returns the gate in the slot. A tombstoned slot returns a
// nil gate without error.
func (c *Core) GetGate(gateID uint64) (Gate, error) {
	if gateID >= uint64(len(c.gates)) {
		return nil, errors.Wrapf(ErrInvalidID, "gate #%d", gateID)
	}
	return c.gates[gateID], nil
}

// InputGates returns the IDs of the registered input gates in
// registration order.
func (c *Core) InputGates() []uint64 {
	return c.inputGates
}

// UnregisterGate tombstones the gate slot. The slot remains
// indexable but holds no gate.
func (c *Core) UnregisterGate(gateID uint64) error {
	if gateID >= uint64(len(c.gates)) {
		return errors.Wrapf(ErrInvalidID, "gate #%d", gateID)
	}
	c.gates[gateID] = nil
	return nil
}

// RegisterNextWire appends the wire to the wire table and returns its
// slot ID.
func (c *Core) RegisterNextWire(wire Wire) uint64 {
	if wire == nil {
		panic("core: nil wire")
	}
	id := uint64(len(c.wires))
	c.wires = append(c.wires, wire)
	return id
}

// GetWire returns the wire in the slot. A tombstoned slot returns a
// nil wire without error.
func (c *Core) GetWire(wireID uint64) (Wire, error) {
	if wireID >= uint64(len(c.wires)) {
		return nil, errors.Wrapf(ErrInvalidID, "wire #%d", wireID)
	}
	return c.wires[wireID], nil
}

// UnregisterWire tombstones the wire slot. The wire table is not
// locked: unregistration is legal only during the single-threaded
// build phase.
func (c *Core) UnregisterWire(wireID uint64) error {
	if wireID >= uint64(len(c.wires)) {
		return errors.Wrapf(ErrInvalidID, "wire #%d", wireID)
	}
	c.wires[wireID] = nil
	return nil
}

// RegisterTransports installs the per-party transport handler table.
// The table must be installed before the first Send; its length
// defines the number of parties.
func (c *Core) RegisterTransports(handlers []Transport) {
	c.transports = handlers
}

// NumParties returns the number of parties in the session.
func (c *Core) NumParties() int {
	return len(c.transports)
}

// Send delegates the message to the transport handler of the party.
func (c *Core) Send(partyID int, msg []byte) error {
	if partyID == c.myID {
		return errors.Wrapf(ErrSelfSend, "party %d", partyID)
	}
	if partyID < 0 || partyID >= len(c.transports) {
		return errors.Wrapf(ErrInvalidParty, "party %d", partyID)
	}
	if err := c.transports[partyID].SendMessage(msg); err != nil {
		return errors.Wrapf(err, "core: send to party %d", partyID)
	}
	return nil
}

// AddToActiveQueue pushes the gate to the active-gate queue. The gate
// must be live: all of its input dependencies are satisfied.
func (c *Core) AddToActiveQueue(gateID uint64) {
	c.queueMu.Lock()
	c.activeGates = append(c.activeGates, gateID)
	c.queueMu.Unlock()
	log.Lvlf4("Added gate #%d to the active queue", gateID)
}

// PopActiveGate pops the next ready gate from the active-gate queue.
// It returns -1 if the queue is empty. The emptiness check runs under
// the queue lock so concurrent pushers and poppers never race a pop
// against an empty queue.
func (c *Core) PopActiveGate() int64 {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()

	if len(c.activeGates) == 0 {
		return -1
	}
	gateID := c.activeGates[0]
	c.activeGates = c.activeGates[1:]
	return int64(gateID)
}

// IncrementEvaluated increments the evaluated-gates counter.
func (c *Core) IncrementEvaluated() {
	c.evaluated.Add(1)
}

// EvaluatedGates returns the number of evaluated gates.
func (c *Core) EvaluatedGates() uint64 {
	return c.evaluated.Load()
}

// TotalGates returns the total number of allocated gate IDs. The
// value is stable once the single-threaded build phase has ended.
func (c *Core) TotalGates() uint64 {
	return c.gateID
}
