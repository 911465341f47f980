//
// pipe.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"io"
)

// Pipe creates a bidirectional in-memory communication pipe and
// returns its two Conn endpoints. Anything sent to the first endpoint
// can be received from the second and vice versa.
func Pipe() (*Conn, *Conn) {
	var p0, p1 pipe

	p0.r, p1.w = io.Pipe()
	p1.r, p0.w = io.Pipe()

	return NewConn(&p0), NewConn(&p1)
}

// PipeMesh creates a full mesh of pipes between numParties in-process
// parties. The result is indexed by [party][peer]; the diagonal is
// nil. conns[i][j] and conns[j][i] are the two endpoints of the same
// pipe.
func PipeMesh(numParties int) [][]*Conn {
	conns := make([][]*Conn, numParties)
	for i := 0; i < numParties; i++ {
		conns[i] = make([]*Conn, numParties)
	}
	for i := 0; i < numParties; i++ {
		for j := i + 1; j < numParties; j++ {
			conns[i][j], conns[j][i] = Pipe()
		}
	}
	return conns
}

type pipe struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *pipe) Close() error {
	if err := p.r.Close(); err != nil {
		return err
	}
	return p.w.Close()
}

func (p *pipe) Read(data []byte) (n int, err error) {
	return p.r.Read(data)
}

func (p *pipe) Write(data []byte) (n int, err error) {
	return p.w.Write(data)
}
