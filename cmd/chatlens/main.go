package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/chatlens/chatlens/internal/analytics"
	"github.com/chatlens/chatlens/internal/config"
	"github.com/chatlens/chatlens/internal/ingest"
	"github.com/chatlens/chatlens/internal/server"
	"github.com/chatlens/chatlens/internal/store"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

const watcherDebounce = 500 * time.Millisecond

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			runServe(os.Args[2:])
			return
		case "reset":
			runReset(os.Args[2:])
			return
		case "version", "--version", "-v":
			fmt.Printf("chatlens %s (commit %s, built %s)\n",
				version, commit, buildDate)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	runServe(os.Args[1:])
}

func printUsage() {
	fmt.Printf(`chatlens %s - local chat analytics engine

Ingests chat events (user turns and bot replies) from a JSONL
spool directory and over HTTP, maintains running aggregates
(totals, response times, topics, activity histograms), and
serves them via a local API.

Usage:
  chatlens [flags]          Start the server (default command)
  chatlens serve [flags]    Start the server (explicit)
  chatlens reset [flags]    Zero all aggregates and history
  chatlens version          Show version information
  chatlens help             Show this help

Server flags:
  -host string        Host to bind to (default "127.0.0.1")
  -port int           Port to listen on (default 8094)
  -spool-dir string   Chat event spool directory
  -no-watch           Don't watch the spool directory

Reset flags:
  -yes                Skip confirmation prompt

Environment variables:
  CHATLENS_DATA_DIR    Data directory (database, config)
  CHATLENS_SPOOL_DIR   Chat event spool directory

Data is stored in ~/.chatlens/ by default.
`, version)
}

func runServe(args []string) {
	cfg := mustLoadConfig(args)

	st := mustOpenStore(cfg)
	defer st.Close()

	engine := analytics.New(st)
	defer engine.Close()

	tailer := ingest.NewTailer(engine, cfg.SpoolDir)
	if n, err := tailer.ScanAll(); err != nil {
		log.Printf("initial spool scan: %v", err)
	} else if n > 0 {
		fmt.Printf("Ingested %d spooled event(s)\n", n)
	}

	if !cfg.NoWatch {
		stopWatcher := startSpoolWatcher(cfg, tailer)
		defer stopWatcher()
	}

	port := server.FindAvailablePort(cfg.Host, cfg.Port)
	if port != cfg.Port {
		fmt.Printf("Port %d in use, using %d\n", cfg.Port, port)
	}
	cfg.Port = port

	srv := server.New(cfg, engine,
		server.WithVersion(server.VersionInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		}),
		server.WithSnapshotMeta(st),
	)

	fmt.Printf("chatlens %s listening at http://%s:%d\n",
		version, cfg.Host, cfg.Port)

	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runReset(args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Skip confirmation prompt")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	cfg, err := config.LoadMinimal()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if !*yes && !confirm("Reset all analytics data? [y/N] ") {
		fmt.Println("Aborted.")
		return
	}

	st := mustOpenStore(cfg)
	defer st.Close()

	engine := analytics.New(st)
	engine.Reset()
	fmt.Println("Analytics reset.")
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func mustLoadConfig(args []string) config.Config {
	fs := flag.NewFlagSet("chatlens", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			"Usage: chatlens [serve] [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	config.RegisterServeFlags(fs)
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("creating data dir: %v", err)
	}
	return cfg
}

func mustOpenStore(cfg config.Config) *store.SQLiteStore {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("opening snapshot store: %v", err)
	}
	return st
}

func startSpoolWatcher(
	cfg config.Config, tailer *ingest.Tailer,
) func() {
	onChange := func(paths []string) {
		tailer.ScanPaths(paths)
	}
	watcher, err := ingest.NewWatcher(watcherDebounce, onChange)
	if err != nil {
		log.Printf("warning: spool watcher unavailable: %v", err)
		return func() {}
	}

	if _, err := os.Stat(cfg.SpoolDir); err == nil {
		if err := watcher.Watch(cfg.SpoolDir); err != nil {
			log.Printf("warning: watching spool dir: %v", err)
		}
	}
	watcher.Start()
	return watcher.Stop
}
