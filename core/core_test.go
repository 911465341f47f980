//
// core_test.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package core

import (
	"sync"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/markkurossi/mpcore/ot"
)

type testGate struct {
	id     uint64
	core   *Core
	online func() error
}

func (g *testGate) GateID() uint64 {
	return g.id
}

func (g *testGate) EvaluateSetup() error {
	return nil
}

func (g *testGate) EvaluateOnline() error {
	if g.online != nil {
		return g.online()
	}
	return nil
}

func newTestGate(c *Core) *testGate {
	return &testGate{
		id:   c.NextGateID(),
		core: c,
	}
}

type testTransport struct {
	mu       sync.Mutex
	messages [][]byte
}

func (t *testTransport) SendMessage(msg []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
	return nil
}

func (t *testTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

func TestIDAllocation(t *testing.T) {
	c := NewCore(0)

	for i := uint64(0); i < 3; i++ {
		if id := c.NextGateID(); id != i {
			t.Errorf("NextGateID: got %d, expected %d", id, i)
		}
	}
	for i := uint64(0); i < 3; i++ {
		if id := c.NextWireID(); id != i {
			t.Errorf("NextWireID: got %d, expected %d", id, i)
		}
	}

	starts := []struct {
		n        int
		expected uint64
	}{
		{4, 0},
		{1, 4},
		{3, 5},
	}
	for _, test := range starts {
		id, err := c.NextArithmeticSharingID(test.n)
		if err != nil {
			t.Fatalf("NextArithmeticSharingID(%d): %v", test.n, err)
		}
		if id != test.expected {
			t.Errorf("NextArithmeticSharingID(%d): got %d, expected %d",
				test.n, id, test.expected)
		}
	}

	id, err := c.NextBooleanGMWSharingID(2)
	if err != nil {
		t.Fatalf("NextBooleanGMWSharingID: %v", err)
	}
	if id != 0 {
		t.Errorf("NextBooleanGMWSharingID: got %d, expected 0", id)
	}

	if _, err := c.NextArithmeticSharingID(0); !errors.Is(err,
		ErrInvalidCount) {
		t.Errorf("zero allocation: got %v, expected ErrInvalidCount", err)
	}
}

func TestGateRegistry(t *testing.T) {
	c := NewCore(0)

	g0 := newTestGate(c)
	if slot := c.RegisterNextGate(g0); slot != 0 {
		t.Fatalf("RegisterNextGate: got slot %d, expected 0", slot)
	}
	g1 := newTestGate(c)
	if slot := c.RegisterNextInputGate(g1); slot != 1 {
		t.Fatalf("RegisterNextInputGate: got slot %d, expected 1", slot)
	}

	gate, err := c.GetGate(0)
	if err != nil {
		t.Fatalf("GetGate: %v", err)
	}
	if gate != Gate(g0) {
		t.Fatal("GetGate(0) is not g0")
	}

	inputs := c.InputGates()
	if len(inputs) != 1 || inputs[0] != 1 {
		t.Fatalf("InputGates: got %v, expected [1]", inputs)
	}

	if err := c.UnregisterGate(0); err != nil {
		t.Fatalf("UnregisterGate: %v", err)
	}
	gate, err = c.GetGate(0)
	if err != nil {
		t.Fatalf("GetGate after unregister: %v", err)
	}
	if gate != nil {
		t.Fatal("GetGate(0) did not observe the tombstone")
	}

	if _, err := c.GetGate(42); !errors.Is(err, ErrInvalidID) {
		t.Errorf("out-of-range GetGate: got %v, expected ErrInvalidID", err)
	}
}

func TestWireRegistry(t *testing.T) {
	c := NewCore(0)

	w := NewArithmeticWire(c, []uint64{1, 2, 3})
	if w.WireID() != 0 {
		t.Fatalf("WireID: got %d, expected 0", w.WireID())
	}
	if w.NumSIMD() != 3 {
		t.Fatalf("NumSIMD: got %d, expected 3", w.NumSIMD())
	}

	got, err := c.GetWire(0)
	if err != nil {
		t.Fatalf("GetWire: %v", err)
	}
	if got != Wire(w) {
		t.Fatal("GetWire(0) is not w")
	}

	if err := c.UnregisterWire(0); err != nil {
		t.Fatalf("UnregisterWire: %v", err)
	}
	got, err = c.GetWire(0)
	if err != nil {
		t.Fatalf("GetWire after unregister: %v", err)
	}
	if got != nil {
		t.Fatal("GetWire(0) did not observe the tombstone")
	}
}

func TestBooleanWire(t *testing.T) {
	c := NewCore(0)

	values := new(ot.BitVector)
	values.AppendBit(true)
	values.AppendBit(false)
	values.AppendBit(true)

	w := NewBooleanWire(c, values)
	if w.NumSIMD() != 3 {
		t.Fatalf("NumSIMD: got %d, expected 3", w.NumSIMD())
	}
	if !w.Values().Bit(0) || w.Values().Bit(1) || !w.Values().Bit(2) {
		t.Fatal("wire values mismatch")
	}

	got, err := c.GetWire(w.WireID())
	if err != nil {
		t.Fatalf("GetWire: %v", err)
	}
	if got != Wire(w) {
		t.Fatal("GetWire is not the boolean wire")
	}
}

func TestSend(t *testing.T) {
	c := NewCore(1)

	h0 := new(testTransport)
	h1 := new(testTransport)
	c.RegisterTransports([]Transport{h0, h1})

	if err := c.Send(1, []byte{1}); !errors.Is(err, ErrSelfSend) {
		t.Errorf("self-send: got %v, expected ErrSelfSend", err)
	}
	if h1.count() != 0 {
		t.Error("self-send performed I/O")
	}

	if err := c.Send(2, []byte{2}); !errors.Is(err, ErrInvalidParty) {
		t.Errorf("out-of-range send: got %v, expected ErrInvalidParty", err)
	}

	if err := c.Send(0, []byte{3}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if h0.count() != 1 {
		t.Fatalf("handler #0 received %d messages, expected 1", h0.count())
	}
}

func TestActiveQueue(t *testing.T) {
	c := NewCore(0)

	if id := c.PopActiveGate(); id != -1 {
		t.Fatalf("pop from empty queue: got %d, expected -1", id)
	}

	c.AddToActiveQueue(7)
	c.AddToActiveQueue(8)
	if id := c.PopActiveGate(); id != 7 {
		t.Fatalf("PopActiveGate: got %d, expected 7", id)
	}
	if id := c.PopActiveGate(); id != 8 {
		t.Fatalf("PopActiveGate: got %d, expected 8", id)
	}
	if id := c.PopActiveGate(); id != -1 {
		t.Fatalf("pop from drained queue: got %d, expected -1", id)
	}
}

func TestActiveQueueConcurrent(t *testing.T) {
	const numProducers = 2
	const numConsumers = 4
	const idsPerProducer = 5000

	c := NewCore(0)

	var producers sync.WaitGroup
	for p := 0; p < numProducers; p++ {
		producers.Add(1)
		go func(p int) {
			defer producers.Done()
			for i := 0; i < idsPerProducer; i++ {
				c.AddToActiveQueue(uint64(i*numProducers + p))
			}
		}(p)
	}

	var mu sync.Mutex
	seen := make(map[uint64]int)

	var consumers sync.WaitGroup
	quiescent := make(chan struct{})
	for w := 0; w < numConsumers; w++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for {
				id := c.PopActiveGate()
				if id < 0 {
					select {
					case <-quiescent:
						id = c.PopActiveGate()
						if id < 0 {
							return
						}
					default:
						continue
					}
				}
				mu.Lock()
				seen[uint64(id)]++
				mu.Unlock()
			}
		}()
	}

	producers.Wait()
	close(quiescent)
	consumers.Wait()

	total := numProducers * idsPerProducer
	if len(seen) != total {
		t.Fatalf("consumed %d distinct IDs, expected %d", len(seen), total)
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("gate #%d popped %d times", id, count)
		}
		if id >= uint64(total) {
			t.Fatalf("popped unpushed gate #%d", id)
		}
	}
}

func TestEvaluator(t *testing.T) {
	const numGates = 100

	c := NewCore(0)

	// Chain gates: each gate pushes its successor when evaluated.
	gates := make([]*testGate, numGates)
	for i := 0; i < numGates; i++ {
		gates[i] = newTestGate(c)
		c.RegisterNextGate(gates[i])
	}
	for i := 0; i < numGates; i++ {
		i := i
		gates[i].online = func() error {
			if i+1 < numGates {
				c.AddToActiveQueue(gates[i+1].GateID())
			}
			return nil
		}
	}

	c.AddToActiveQueue(gates[0].GateID())

	ev := NewEvaluator(c, 4)
	if err := ev.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.EvaluatedGates() != numGates {
		t.Fatalf("evaluated %d gates, expected %d",
			c.EvaluatedGates(), numGates)
	}
}

func TestEvaluatorError(t *testing.T) {
	c := NewCore(0)

	g := newTestGate(c)
	g.online = func() error {
		return errors.New("broken gate")
	}
	c.RegisterNextGate(g)
	c.AddToActiveQueue(g.GateID())

	ev := NewEvaluator(c, 2)
	if err := ev.Run(); err == nil {
		t.Fatal("Run did not report the gate error")
	}
}
