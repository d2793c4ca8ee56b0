// Command gluonhost is the per-process entry point for a partitioned
// run: one invocation per host, discovering its role from flags
// instead of the teacher's hostname convention, building its partition
// over a real TCP transport (or, without -peers, an in-process one), and
// running one of the example
// applications (pagerank, sssp) to completion.
package main

import (
	"fmt"
	"log"
	"os"

	"time"

	"github.com/gthost/cusp-gluon/examples/pagerank"
	"github.com/gthost/cusp-gluon/examples/sssp"
	"github.com/gthost/cusp-gluon/internal/config"
	"github.com/gthost/cusp-gluon/internal/ids"
	"github.com/gthost/cusp-gluon/internal/membership"
	"github.com/gthost/cusp-gluon/internal/offlinegraph"
	"github.com/gthost/cusp-gluon/internal/partition"
	"github.com/gthost/cusp-gluon/internal/transport"
)

func main() {
	cfg, err := config.Parse("gluonhost", os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := log.New(os.Stderr, fmt.Sprintf("[host%d] ", cfg.Host), log.LstdFlags)

	if err := run(cfg, logger); err != nil {
		logger.Fatalf("gluonhost: %v", err)
	}
}

func run(cfg config.Config, logger *log.Logger) error {
	var host transport.Host
	if len(cfg.PeerAddrs) > 0 {
		listenAddr := cfg.ListenAddr
		if listenAddr == "" {
			listenAddr = cfg.PeerAddrs[cfg.Host]
		}
		tcpHost, err := transport.NewTCPHost(ids.HostID(cfg.Host), cfg.PeerAddrs, listenAddr, logger)
		if err != nil {
			return fmt.Errorf("starting transport: %w", err)
		}
		defer tcpHost.Close()
		host = tcpHost
	} else {
		network := transport.NewNetwork(int(cfg.NumHosts))
		host = network.Host(ids.HostID(cfg.Host))
	}

	if cfg.NumHosts > 1 {
		mon := membership.NewMonitor(ids.HostID(cfg.Host), int(cfg.NumHosts), 5*time.Second)
		mon.Start(host, time.Second)
		defer mon.Stop()
		waitForPeers(mon, int(cfg.NumHosts), logger)
	}

	gid2Host, err := evenGIDSplit(cfg)
	if err != nil {
		return err
	}

	pcfg := partition.Config{
		GraphFile:       cfg.GraphFile,
		VertexIDMapFile: cfg.VertexFile,
		Host:            ids.HostID(cfg.Host),
		NumHosts:        int(cfg.NumHosts),
		GID2Host:        gid2Host,
		Transpose:       cfg.Transpose,
		SendBufferSize:  cfg.SendBufferSize,
		NumThreads:      cfg.NumThreads,
		Bipartite:       cfg.Bipartite,
		Logger:          logger,
	}

	switch cfg.App {
	case "pagerank":
		return runPageRank(host, pcfg, cfg)
	case "sssp":
		return runSSSP(host, pcfg, cfg)
	default:
		return fmt.Errorf("unknown -app %q (want pagerank or sssp)", cfg.App)
	}
}

func runPageRank(host transport.Host, pcfg partition.Config, cfg config.Config) error {
	voidDecode := func(uint64) struct{} { return struct{}{} }
	var p *partition.Partition[struct{}]
	var err error
	if cfg.MetaFile != "" {
		p, _, err = partition.NewFromMetaFile[struct{}](host, pcfg, transport.Phase(0), cfg.MetaFile, voidDecode)
	} else {
		p, _, err = partition.Build[struct{}](host, pcfg, transport.Phase(0), voidDecode)
	}
	if err != nil {
		return fmt.Errorf("building partition: %w", err)
	}

	g := pagerank.New(p)
	g.Run(cfg.NumThreads)

	for lid := ids.LID(0); lid < ids.LID(p.NumOwned()); lid++ {
		fmt.Printf("%d\t%g\n", p.L2G(lid), g.Value(lid))
	}
	return nil
}

func runSSSP(host transport.Host, pcfg partition.Config, cfg config.Config) error {
	identity := func(v uint64) uint64 { return v }
	var p *partition.Partition[uint64]
	var err error
	if cfg.MetaFile != "" {
		p, _, err = partition.NewFromMetaFile[uint64](host, pcfg, transport.Phase(0), cfg.MetaFile, identity)
	} else {
		p, _, err = partition.Build[uint64](host, pcfg, transport.Phase(0), identity)
	}
	if err != nil {
		return fmt.Errorf("building partition: %w", err)
	}

	if !p.IsLocal(ids.GID(cfg.Source)) {
		fmt.Printf("source %d is not local to this host; nothing to seed here\n", cfg.Source)
		return nil
	}
	source := p.G2L(ids.GID(cfg.Source))

	g := sssp.New(p, source)
	g.Run(cfg.NumThreads, source)

	for lid := ids.LID(0); lid < ids.LID(p.NumOwned()); lid++ {
		fmt.Printf("%d\t%d\n", p.L2G(lid), g.Distance(lid))
	}
	return nil
}

// waitForPeers polls mon.AllAlive until it reports true, or logs a
// warning and proceeds anyway after 10 seconds. NewMonitor counts every
// host as seen at the moment it is created, so on a fresh monitor
// AllAlive is already true and this returns at once; it does not confirm
// that each peer has sent a heartbeat.
func waitForPeers(mon *membership.Monitor, numHosts int, logger *log.Logger) {
	deadline := time.Now().Add(10 * time.Second)
	for !mon.AllAlive() {
		if time.Now().After(deadline) {
			logger.Printf("proceeding without confirming all %d hosts are alive", numHosts)
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// evenGIDSplit peeks the graph file's header for its total node count
// and derives a node-count-balanced GID-to-host assignment from it with
// partition.BalancedMasterRanges.
func evenGIDSplit(cfg config.Config) ([]ids.Range, error) {
	if cfg.NumHosts == 0 {
		return nil, fmt.Errorf("config: -hosts must be positive")
	}
	r, err := offlinegraph.Open(cfg.GraphFile)
	if err != nil {
		return nil, fmt.Errorf("opening graph file for header: %w", err)
	}
	defer r.Close()
	return partition.BalancedMasterRanges(r.Size(), int(cfg.NumHosts)), nil
}
