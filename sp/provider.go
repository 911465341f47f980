//
// provider.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package sp

import (
	"github.com/cockroachdb/errors"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/sync/errgroup"

	"github.com/markkurossi/mpcore/cond"
	"github.com/markkurossi/mpcore/ot"
	"github.com/markkurossi/mpcore/stats"
)

// FromOts generates square pairs from pairwise additively correlated
// OTs. For every peer pair the higher-ID party acts as the OT sender
// and the lower-ID party as the receiver; iterating the OT over all
// bit positions of the receiver's share reduces the cross products of
// a·a to one OT per bit position, registered in batches of at most
// maxBatch pairs per width.
type FromOts struct {
	myID     int
	maxBatch int

	counts [5]int
	pairs  Pairs

	ots       []*ot.Provider
	senders   [][]*ot.VectorSender
	receivers [][]*ot.VectorReceiver

	finished bool
	finCond  *cond.Condition

	runTimes *stats.RunTimeStats
}

var _ Provider = (*FromOts)(nil)

// NewFromOts creates a square-pair provider on top of the per-peer
// OT providers. The providers slice is indexed by party ID; the
// local party's slot is ignored. maxBatch is the maximum number of
// pairs folded into one OT batch and must be identical on all
// parties. runTimes may be nil.
func NewFromOts(ots []*ot.Provider, myID, maxBatch int,
	runTimes *stats.RunTimeStats) *FromOts {

	if runTimes == nil {
		runTimes = new(stats.RunTimeStats)
	}
	p := &FromOts{
		myID:      myID,
		maxBatch:  maxBatch,
		ots:       ots,
		senders:   make([][]*ot.VectorSender, len(ots)),
		receivers: make([][]*ot.VectorReceiver, len(ots)),
		runTimes:  runTimes,
	}
	p.finCond = cond.New(func() bool {
		return p.finished
	})
	return p
}

// RequestSps implements Provider.RequestSps.
func (p *FromOts) RequestSps(bits, count int) error {
	idx, err := widthIndex(bits)
	if err != nil {
		return err
	}
	if count < 0 {
		return errors.Newf("sp: invalid pair count %d", count)
	}
	p.counts[idx] += count
	return nil
}

// NumSps implements Provider.NumSps.
func (p *FromOts) NumSps(bits int) int {
	idx, err := widthIndex(bits)
	if err != nil {
		return 0
	}
	return p.counts[idx]
}

// NeedSps implements Provider.NeedSps.
func (p *FromOts) NeedSps() bool {
	for _, count := range p.counts {
		if count > 0 {
			return true
		}
	}
	return false
}

// FinishedCond implements Provider.FinishedCond.
func (p *FromOts) FinishedCond() *cond.Condition {
	return p.finCond
}

// PreSetup implements Provider.PreSetup: it samples the pair shares
// and registers the backing OTs with every peer.
func (p *FromOts) PreSetup() error {
	if !p.NeedSps() {
		return nil
	}

	log.Lvl2("Start computing presetup for SPs")
	p.runTimes.RecordStart(stats.SpPresetup)

	if err := p.registerOts(); err != nil {
		return err
	}

	p.runTimes.RecordEnd(stats.SpPresetup)
	log.Lvl2("Finished computing presetup for SPs")
	return nil
}

// Setup implements Provider.Setup: it runs the registered OTs with
// every peer in parallel, folds the outputs into the pair shares,
// and signals completion.
func (p *FromOts) Setup() error {
	if !p.NeedSps() {
		return nil
	}

	log.Lvl2("Start computing setup for SPs")
	p.runTimes.RecordStart(stats.SpSetup)

	// Peer i's OT handles touch only peer i's connection, so the
	// peer loop runs without synchronization.
	g := new(errgroup.Group)
	for i := range p.ots {
		if i == p.myID {
			continue
		}
		g.Go(func() error {
			for _, sender := range p.senders[i] {
				if err := sender.SendMessages(); err != nil {
					return err
				}
			}
			for _, receiver := range p.receivers[i] {
				if err := receiver.SendCorrections(); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "sp: setup")
	}

	if err := p.parseOutputs(); err != nil {
		return err
	}

	p.finCond.Lock()
	p.finished = true
	p.finCond.Unlock()
	p.finCond.NotifyAll()

	p.runTimes.RecordEnd(stats.SpSetup)
	log.Lvl2("Finished computing setup for SPs")
	return nil
}

// Sps8 returns the 8-bit pairs. Setup must have completed.
func (p *FromOts) Sps8() (*Vector[uint8], error) {
	if !p.finCond.Check() {
		return nil, ErrNotReady
	}
	return &p.pairs.K8, nil
}

// Sps16 returns the 16-bit pairs. Setup must have completed.
func (p *FromOts) Sps16() (*Vector[uint16], error) {
	if !p.finCond.Check() {
		return nil, ErrNotReady
	}
	return &p.pairs.K16, nil
}

// Sps32 returns the 32-bit pairs. Setup must have completed.
func (p *FromOts) Sps32() (*Vector[uint32], error) {
	if !p.finCond.Check() {
		return nil, ErrNotReady
	}
	return &p.pairs.K32, nil
}

// Sps64 returns the 64-bit pairs. Setup must have completed.
func (p *FromOts) Sps64() (*Vector[uint64], error) {
	if !p.finCond.Check() {
		return nil, ErrNotReady
	}
	return &p.pairs.K64, nil
}

// Sps128 returns the 128-bit pairs. Setup must have completed.
func (p *FromOts) Sps128() (*Vector[Uint128], error) {
	if !p.finCond.Check() {
		return nil, ErrNotReady
	}
	return &p.pairs.K128, nil
}

// registerOts samples the pairs and registers one OT batch per
// maxBatch pairs per width with every peer, in the protocol width
// order.
func (p *FromOts) registerOts() error {
	prg, err := newPrg()
	if err != nil {
		return err
	}

	p.pairs.K8 = generatePairs(nativeOps[uint8](8), prg, p.counts[0])
	p.pairs.K16 = generatePairs(nativeOps[uint16](16), prg, p.counts[1])
	p.pairs.K32 = generatePairs(nativeOps[uint32](32), prg, p.counts[2])
	p.pairs.K64 = generatePairs(nativeOps[uint64](64), prg, p.counts[3])
	p.pairs.K128 = generatePairs(ops128(), prg, p.counts[4])

	for i := range p.ots {
		if i == p.myID {
			continue
		}
		if i < p.myID {
			err = p.registerSender(i)
		} else {
			err = p.registerReceiver(i)
		}
		if err != nil {
			return errors.Wrapf(err, "sp: register OTs with party %d", i)
		}
	}
	return nil
}

// registerSender registers the sender OT batches toward the lower-ID
// peer, width by width in protocol order.
func (p *FromOts) registerSender(peer int) error {
	if err := registerSend(p.ots[peer], &p.senders[peer], p.maxBatch,
		nativeOps[uint8](8), p.pairs.K8); err != nil {
		return err
	}
	if err := registerSend(p.ots[peer], &p.senders[peer], p.maxBatch,
		nativeOps[uint16](16), p.pairs.K16); err != nil {
		return err
	}
	if err := registerSend(p.ots[peer], &p.senders[peer], p.maxBatch,
		nativeOps[uint32](32), p.pairs.K32); err != nil {
		return err
	}
	if err := registerSend(p.ots[peer], &p.senders[peer], p.maxBatch,
		nativeOps[uint64](64), p.pairs.K64); err != nil {
		return err
	}
	return registerSend(p.ots[peer], &p.senders[peer], p.maxBatch,
		ops128(), p.pairs.K128)
}

// registerReceiver registers the receiver OT batches toward the
// higher-ID peer, width by width in protocol order.
func (p *FromOts) registerReceiver(peer int) error {
	if err := registerReceive(p.ots[peer], &p.receivers[peer], p.maxBatch,
		nativeOps[uint8](8), p.pairs.K8); err != nil {
		return err
	}
	if err := registerReceive(p.ots[peer], &p.receivers[peer], p.maxBatch,
		nativeOps[uint16](16), p.pairs.K16); err != nil {
		return err
	}
	if err := registerReceive(p.ots[peer], &p.receivers[peer], p.maxBatch,
		nativeOps[uint32](32), p.pairs.K32); err != nil {
		return err
	}
	if err := registerReceive(p.ots[peer], &p.receivers[peer], p.maxBatch,
		nativeOps[uint64](64), p.pairs.K64); err != nil {
		return err
	}
	return registerReceive(p.ots[peer], &p.receivers[peer], p.maxBatch,
		ops128(), p.pairs.K128)
}

// parseOutputs folds the OT outputs of every peer into the c shares,
// consuming the handles in registration order.
func (p *FromOts) parseOutputs() error {
	for i := range p.ots {
		if i == p.myID {
			continue
		}
		var err error
		if i < p.myID {
			err = p.parseSender(i)
		} else {
			err = p.parseReceiver(i)
		}
		if err != nil {
			return errors.Wrapf(err, "sp: parse outputs of party %d", i)
		}
	}
	return nil
}

// parseSender consumes the sender handles of the lower-ID peer in
// registration order.
func (p *FromOts) parseSender(peer int) error {
	if err := parseSend(&p.senders[peer], p.maxBatch,
		nativeOps[uint8](8), &p.pairs.K8); err != nil {
		return err
	}
	if err := parseSend(&p.senders[peer], p.maxBatch,
		nativeOps[uint16](16), &p.pairs.K16); err != nil {
		return err
	}
	if err := parseSend(&p.senders[peer], p.maxBatch,
		nativeOps[uint32](32), &p.pairs.K32); err != nil {
		return err
	}
	if err := parseSend(&p.senders[peer], p.maxBatch,
		nativeOps[uint64](64), &p.pairs.K64); err != nil {
		return err
	}
	if err := parseSend(&p.senders[peer], p.maxBatch,
		ops128(), &p.pairs.K128); err != nil {
		return err
	}
	if len(p.senders[peer]) != 0 {
		return errors.Wrapf(ot.ErrProtocolViolation,
			"%d sender handles left over", len(p.senders[peer]))
	}
	return nil
}

// parseReceiver consumes the receiver handles of the higher-ID peer
// in registration order.
func (p *FromOts) parseReceiver(peer int) error {
	if err := parseReceive(&p.receivers[peer], p.maxBatch,
		nativeOps[uint8](8), &p.pairs.K8); err != nil {
		return err
	}
	if err := parseReceive(&p.receivers[peer], p.maxBatch,
		nativeOps[uint16](16), &p.pairs.K16); err != nil {
		return err
	}
	if err := parseReceive(&p.receivers[peer], p.maxBatch,
		nativeOps[uint32](32), &p.pairs.K32); err != nil {
		return err
	}
	if err := parseReceive(&p.receivers[peer], p.maxBatch,
		nativeOps[uint64](64), &p.pairs.K64); err != nil {
		return err
	}
	if err := parseReceive(&p.receivers[peer], p.maxBatch,
		ops128(), &p.pairs.K128); err != nil {
		return err
	}
	if len(p.receivers[peer]) != 0 {
		return errors.Wrapf(ot.ErrProtocolViolation,
			"%d receiver handles left over", len(p.receivers[peer]))
	}
	return nil
}

// registerSend registers the sender OT batches for one width. The
// message at position k·bits+bit is a[spID+k]<<bit.
func registerSend[T any](prov *ot.Provider, list *[]*ot.VectorSender,
	maxBatch int, o ops[T], v Vector[T]) error {

	byteLen := o.bits / 8
	for spID := 0; spID < len(v.A); {
		batch := len(v.A) - spID
		if batch > maxBatch {
			batch = maxBatch
		}
		sender, err := prov.RegisterSend(o.bits, batch*o.bits, ot.AcOt)
		if err != nil {
			return err
		}
		inputs := make([][]byte, 0, batch*o.bits)
		for k := 0; k < batch; k++ {
			for bit := 0; bit < o.bits; bit++ {
				buf := make([]byte, byteLen)
				o.put(buf, o.shl(v.A[spID+k], uint(bit)))
				inputs = append(inputs, buf)
			}
		}
		if err := sender.SetInputs(inputs); err != nil {
			return err
		}
		*list = append(*list, sender)
		spID += batch
	}
	return nil
}

// registerReceive registers the receiver OT batches for one width.
// The choice at position k·bits+bit is bit of a[spID+k].
func registerReceive[T any](prov *ot.Provider, list *[]*ot.VectorReceiver,
	maxBatch int, o ops[T], v Vector[T]) error {

	for spID := 0; spID < len(v.A); {
		batch := len(v.A) - spID
		if batch > maxBatch {
			batch = maxBatch
		}
		receiver, err := prov.RegisterReceive(o.bits, batch*o.bits, ot.AcOt)
		if err != nil {
			return err
		}
		choices := new(ot.BitVector)
		for k := 0; k < batch; k++ {
			for bit := 0; bit < o.bits; bit++ {
				choices.AppendBit(o.bit(v.A[spID+k], uint(bit)))
			}
		}
		if err := receiver.SetChoices(choices); err != nil {
			return err
		}
		*list = append(*list, receiver)
		spID += batch
	}
	return nil
}

// parseSend folds the sender-side OT outputs of one width into c:
// every mask m is subtracted twice.
func parseSend[T any](list *[]*ot.VectorSender, maxBatch int,
	o ops[T], v *Vector[T]) error {

	byteLen := o.bits / 8
	for spID := 0; spID < len(v.A); {
		batch := len(v.A) - spID
		if batch > maxBatch {
			batch = maxBatch
		}
		if len(*list) == 0 {
			return errors.Wrap(ot.ErrProtocolViolation,
				"sp: sender handle list exhausted")
		}
		sender := (*list)[0]
		*list = (*list)[1:]

		outputs, err := sender.Outputs()
		if err != nil {
			return err
		}
		if len(outputs) != batch*o.bits {
			return errors.Wrapf(ot.ErrProtocolViolation,
				"sp: %d sender outputs, expected %d",
				len(outputs), batch*o.bits)
		}
		for k := 0; k < batch; k++ {
			for bit := 0; bit < o.bits; bit++ {
				out := outputs[k*o.bits+bit]
				if len(out) != byteLen {
					return errors.Wrapf(ot.ErrProtocolViolation,
						"sp: %d byte sender output, expected %d",
						len(out), byteLen)
				}
				v.C[spID+k] = o.subTwice(v.C[spID+k], o.get(out))
			}
		}
		spID += batch
	}
	return nil
}

// parseReceive folds the receiver-side OT outputs of one width into
// c: every output is added twice.
func parseReceive[T any](list *[]*ot.VectorReceiver, maxBatch int,
	o ops[T], v *Vector[T]) error {

	byteLen := o.bits / 8
	for spID := 0; spID < len(v.A); {
		batch := len(v.A) - spID
		if batch > maxBatch {
			batch = maxBatch
		}
		if len(*list) == 0 {
			return errors.Wrap(ot.ErrProtocolViolation,
				"sp: receiver handle list exhausted")
		}
		receiver := (*list)[0]
		*list = (*list)[1:]

		outputs, err := receiver.Outputs()
		if err != nil {
			return err
		}
		if len(outputs) != batch*o.bits {
			return errors.Wrapf(ot.ErrProtocolViolation,
				"sp: %d receiver outputs, expected %d",
				len(outputs), batch*o.bits)
		}
		for k := 0; k < batch; k++ {
			for bit := 0; bit < o.bits; bit++ {
				out := outputs[k*o.bits+bit]
				if len(out) != byteLen {
					return errors.Wrapf(ot.ErrProtocolViolation,
						"sp: %d byte receiver output, expected %d",
						len(out), byteLen)
				}
				v.C[spID+k] = o.addTwice(v.C[spID+k], o.get(out))
			}
		}
		spID += batch
	}
	return nil
}
