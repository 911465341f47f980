//
// network.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"net"
	"time"

	"github.com/cockroachdb/errors"
	"go.dedis.ch/onet/v3/log"
)

const connectRetryDelay = 2 * time.Second

// Network implements a full mesh of party connections. Parties with a
// lower ID listen for parties with a higher ID; the connecting party
// identifies itself with its ID.
type Network struct {
	ID       int
	Conns    []*Conn
	listener net.Listener
}

// Join connects the party into the session mesh. The addresses slice
// lists the listen address of every party, indexed by party ID; entry
// myID is this party's own listen address.
func Join(addresses []string, myID int) (*Network, error) {
	if myID < 0 || myID >= len(addresses) {
		return nil, errors.Newf("p2p: invalid party ID %d: expected [0...%d[",
			myID, len(addresses))
	}
	nw := &Network{
		ID:    myID,
		Conns: make([]*Conn, len(addresses)),
	}

	// Accept all higher-ID parties.
	if myID < len(addresses)-1 {
		listener, err := net.Listen("tcp", addresses[myID])
		if err != nil {
			return nil, errors.Wrap(err, "p2p: listen")
		}
		nw.listener = listener

		for n := 0; n < len(addresses)-myID-1; n++ {
			nc, err := listener.Accept()
			if err != nil {
				nw.Close()
				return nil, errors.Wrap(err, "p2p: accept")
			}
			conn := NewConn(nc)
			id, err := conn.ReceiveUint32()
			if err != nil {
				nw.Close()
				return nil, err
			}
			if id <= myID || id >= len(addresses) || nw.Conns[id] != nil {
				nw.Close()
				return nil, errors.Newf("p2p: unexpected peer ID %d", id)
			}
			log.Lvlf3("party %d: accepted peer %d", myID, id)
			nw.Conns[id] = conn
		}
	}

	// Connect to all lower-ID parties.
	for id := 0; id < myID; id++ {
		for {
			nc, err := net.Dial("tcp", addresses[id])
			if err != nil {
				log.Lvlf3("party %d: connect to %s failed, retrying in %s",
					myID, addresses[id], connectRetryDelay)
				<-time.After(connectRetryDelay)
				continue
			}
			conn := NewConn(nc)
			if err := conn.SendUint32(myID); err != nil {
				nw.Close()
				return nil, err
			}
			if err := conn.Flush(); err != nil {
				nw.Close()
				return nil, err
			}
			log.Lvlf3("party %d: connected to peer %d", myID, id)
			nw.Conns[id] = conn
			break
		}
	}

	return nw, nil
}

// Stats returns the accumulated I/O stats over all peer connections.
func (nw *Network) Stats() IOStats {
	result := NewIOStats()
	for _, conn := range nw.Conns {
		if conn != nil {
			result = result.Add(conn.Stats)
		}
	}
	return result
}

// Close closes all peer connections and the listener.
func (nw *Network) Close() error {
	var firstErr error
	for _, conn := range nw.Conns {
		if conn == nil {
			continue
		}
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if nw.listener != nil {
		if err := nw.listener.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
