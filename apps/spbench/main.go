//
// main.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Command spbench generates square pairs between in-process parties
// connected with pipes and reports phase timings.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/sync/errgroup"

	"github.com/markkurossi/mpcore/config"
	"github.com/markkurossi/mpcore/ot"
	"github.com/markkurossi/mpcore/p2p"
	"github.com/markkurossi/mpcore/sp"
	"github.com/markkurossi/mpcore/stats"
)

func main() {
	app := cli.NewApp()
	app.Name = "spbench"
	app.Usage = "generate square pairs between in-process parties"
	app.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "parties, p",
			Usage: "number of parties",
			Value: 3,
		},
		cli.IntFlag{
			Name:  "n8",
			Usage: "number of 8-bit square pairs",
		},
		cli.IntFlag{
			Name:  "n16",
			Usage: "number of 16-bit square pairs",
		},
		cli.IntFlag{
			Name:  "n32",
			Usage: "number of 32-bit square pairs",
			Value: 16,
		},
		cli.IntFlag{
			Name:  "n64",
			Usage: "number of 64-bit square pairs",
		},
		cli.IntFlag{
			Name:  "n128",
			Usage: "number of 128-bit square pairs",
		},
		cli.IntFlag{
			Name:  "batch",
			Usage: "maximum number of pairs per OT batch",
			Value: config.DefaultMaxBatchSize,
		},
		cli.IntFlag{
			Name:  "debug, d",
			Usage: "logging severity level",
			Value: 1,
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "party configuration file: run as one party over TCP",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	counts := map[int]int{
		8:   c.Int("n8"),
		16:  c.Int("n16"),
		32:  c.Int("n32"),
		64:  c.Int("n64"),
		128: c.Int("n128"),
	}

	if path := c.String("config"); len(path) > 0 {
		return runParty(path, c.Int("batch"), counts)
	}

	log.SetDebugVisible(c.Int("debug"))

	numParties := c.Int("parties")
	if numParties < 2 {
		return fmt.Errorf("invalid number of parties: %d", numParties)
	}

	conns := p2p.PipeMesh(numParties)

	providers := make([]*sp.FromOts, numParties)
	runTimes := make([]*stats.RunTimeStats, numParties)
	for id := 0; id < numParties; id++ {
		ots := make([]*ot.Provider, numParties)
		for peer := 0; peer < numParties; peer++ {
			if peer != id {
				ots[peer] = ot.NewProvider(conns[id][peer], nil)
			}
		}
		runTimes[id] = new(stats.RunTimeStats)
		providers[id] = sp.NewFromOts(ots, id, c.Int("batch"), runTimes[id])
		for bits, count := range counts {
			if err := providers[id].RequestSps(bits, count); err != nil {
				return err
			}
		}
	}

	g := new(errgroup.Group)
	for id := 0; id < numParties; id++ {
		g.Go(func() error {
			runTimes[id].RecordStart(stats.Total)
			if err := providers[id].PreSetup(); err != nil {
				return err
			}
			if err := providers[id].Setup(); err != nil {
				return err
			}
			runTimes[id].RecordEnd(stats.Total)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := verify(providers, counts); err != nil {
		return err
	}
	fmt.Printf("%d parties, pairs verified\n", numParties)

	runTimes[0].Print(os.Stdout)

	ioStats := p2p.NewIOStats()
	for id := 0; id < numParties; id++ {
		for peer := 0; peer < numParties; peer++ {
			if conns[id][peer] != nil {
				ioStats = ioStats.Add(conns[id][peer].Stats)
			}
		}
	}
	fmt.Printf("%d bytes transferred\n", ioStats.Sum())

	return nil
}

// runParty runs a single party over TCP against the peers listed in
// the configuration file. Shares stay local: every party reports only
// its own pair counts and timings.
func runParty(path string, batch int, counts map[int]int) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg.Apply()
	if batch == config.DefaultMaxBatchSize {
		batch = cfg.BatchSize()
	}

	nw, err := p2p.Join(cfg.Parties, cfg.MyID)
	if err != nil {
		return err
	}
	defer nw.Close()

	ots := make([]*ot.Provider, cfg.NumParties())
	for peer, conn := range nw.Conns {
		if conn != nil {
			ots[peer] = ot.NewProvider(conn, nil)
		}
	}
	runTimes := new(stats.RunTimeStats)
	provider := sp.NewFromOts(ots, cfg.MyID, batch, runTimes)
	for bits, count := range counts {
		if err := provider.RequestSps(bits, count); err != nil {
			return err
		}
	}

	runTimes.RecordStart(stats.Total)
	if err := provider.PreSetup(); err != nil {
		return err
	}
	if err := provider.Setup(); err != nil {
		return err
	}
	runTimes.RecordEnd(stats.Total)

	total := 0
	for _, count := range counts {
		total += count
	}
	fmt.Printf("party %d of %d: %d pairs generated\n",
		cfg.MyID, cfg.NumParties(), total)

	runTimes.Print(os.Stdout)
	fmt.Printf("%d bytes transferred\n", nw.Stats().Sum())

	return nil
}

// verify recombines the shares of all parties and checks the square
// invariant for every width.
func verify(providers []*sp.FromOts, counts map[int]int) error {
	for i := 0; i < counts[8]; i++ {
		var a, c uint8
		for _, prov := range providers {
			v, err := prov.Sps8()
			if err != nil {
				return err
			}
			a += v.A[i]
			c += v.C[i]
		}
		if c != a*a {
			return fmt.Errorf("8-bit pair %d: %d != %d", i, c, a*a)
		}
	}
	for i := 0; i < counts[16]; i++ {
		var a, c uint16
		for _, prov := range providers {
			v, err := prov.Sps16()
			if err != nil {
				return err
			}
			a += v.A[i]
			c += v.C[i]
		}
		if c != a*a {
			return fmt.Errorf("16-bit pair %d: %d != %d", i, c, a*a)
		}
	}
	for i := 0; i < counts[32]; i++ {
		var a, c uint32
		for _, prov := range providers {
			v, err := prov.Sps32()
			if err != nil {
				return err
			}
			a += v.A[i]
			c += v.C[i]
		}
		if c != a*a {
			return fmt.Errorf("32-bit pair %d: %d != %d", i, c, a*a)
		}
	}
	for i := 0; i < counts[64]; i++ {
		var a, c uint64
		for _, prov := range providers {
			v, err := prov.Sps64()
			if err != nil {
				return err
			}
			a += v.A[i]
			c += v.C[i]
		}
		if c != a*a {
			return fmt.Errorf("64-bit pair %d: %d != %d", i, c, a*a)
		}
	}
	for i := 0; i < counts[128]; i++ {
		var a, c sp.Uint128
		for _, prov := range providers {
			v, err := prov.Sps128()
			if err != nil {
				return err
			}
			a = a.Add(v.A[i])
			c = c.Add(v.C[i])
		}
		if c != a.Mul(a) {
			return fmt.Errorf("128-bit pair %d: %v != %v", i, c, a.Mul(a))
		}
	}
	return nil
}
