// Package config parses the command-line flags one gluonhost process
// needs to join a partitioned run: its own host id, the total host
// count, the graph and vertex-ID-map files it reads from, and the
// tunables spec.md §6 exposes (transpose, send-buffer size, worker
// thread count). The teacher never used a flag-parsing framework — its
// processes discover their role from the machine's hostname
// (`util.GetIDFromHostname`) and take no other arguments — so this
// follows the same unadorned, no-framework spirit with the standard
// `flag` package rather than reaching for cobra or viper.
package config

import (
	"flag"
	"fmt"
	"strings"
)

// Config holds one host's command-line configuration.
type Config struct {
	Host       uint32
	NumHosts   uint32
	GraphFile  string
	VertexFile string
	MetaFile   string

	Transpose      bool
	SendBufferSize int
	NumThreads     int

	Bipartite bool

	ListenAddr string
	PeerAddrs  []string // PeerAddrs[h] is host h's dial address

	App    string // "pagerank" or "sssp"
	Source uint64 // sssp source global id
}

// Parse parses args (typically os.Args[1:]) into a Config, returning an
// error if a required flag is missing or out of range.
func Parse(progName string, args []string) (Config, error) {
	fs := flag.NewFlagSet(progName, flag.ContinueOnError)

	var host, numHosts uint
	var cfg Config
	fs.UintVar(&host, "host", 0, "this process's host id")
	fs.UintVar(&numHosts, "hosts", 1, "total number of hosts in the run")
	fs.StringVar(&cfg.GraphFile, "graph", "", "path to the offline CSR graph file")
	fs.StringVar(&cfg.VertexFile, "vertex-map", "", "path to the vertex-id-map file")
	fs.StringVar(&cfg.MetaFile, "meta", "", "optional partition meta-file to reuse a prior run's node assignment")
	fs.BoolVar(&cfg.Transpose, "transpose", false, "load the transposed local graph")
	fs.IntVar(&cfg.SendBufferSize, "send-buffer-size", 1<<20, "edge-distribution send buffer size in bytes")
	fs.IntVar(&cfg.NumThreads, "threads", 1, "number of worker threads for inspection and execution")
	fs.BoolVar(&cfg.Bipartite, "bipartite", false, "mark the graph as bipartite")
	fs.StringVar(&cfg.ListenAddr, "listen", "", "address this host listens on for peer connections")
	var peers string
	fs.StringVar(&peers, "peers", "", "comma-separated dial addresses of every host, index 0..hosts-1")
	fs.StringVar(&cfg.App, "app", "pagerank", "example application to run: pagerank or sssp")
	fs.Uint64Var(&cfg.Source, "source", 0, "sssp source global node id")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if peers != "" {
		cfg.PeerAddrs = strings.Split(peers, ",")
	}
	cfg.Host = uint32(host)
	cfg.NumHosts = uint32(numHosts)

	if cfg.GraphFile == "" {
		return Config{}, fmt.Errorf("config: -graph is required")
	}
	if cfg.VertexFile == "" {
		return Config{}, fmt.Errorf("config: -vertex-map is required (meta-file reuse still loads the same range's vertex-id map)")
	}
	if cfg.NumHosts == 0 {
		return Config{}, fmt.Errorf("config: -hosts must be at least 1")
	}
	if cfg.Host >= cfg.NumHosts {
		return Config{}, fmt.Errorf("config: -host %d out of range for -hosts %d", cfg.Host, cfg.NumHosts)
	}
	return cfg, nil
}
