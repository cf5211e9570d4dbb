package bootstrap

import (
    "context"
    "fmt"
    "log"
    "time"

    "github.com/ledgerlabs/devnet/pkg/orchestrate"
    "github.com/ledgerlabs/devnet/pkg/provision"
    "github.com/ledgerlabs/devnet/pkg/session"
    "github.com/ledgerlabs/devnet/pkg/session/local"
    "github.com/ledgerlabs/devnet/pkg/session/tmux"
    "github.com/ledgerlabs/devnet/pkg/topology"
)

// Config defines the high-level inputs to bring a devnet up with sensible
// defaults. Applications embed the harness by filling this structure and
// calling Run.
type Config struct {
    // RootDir for engine homes, stores and logs. Empty → fresh temp dir.
    RootDir string
    // SessionName of the multiplexed session (default "devnet").
    SessionName string

    // Backend selects the session implementation: "tmux" (default) or
    // "local" for a headless in-process run.
    Backend string

    // NoAttach leaves the session detached after the last launch.
    NoAttach bool

    // WaitReady, when positive, bounds a TCP reachability probe on each
    // process's declared dependency before launching it.
    WaitReady time.Duration

    // Topology overrides the compiled-in table. If nil, topology.Default()
    // is used.
    Topology *topology.Topology

    // Init overrides the engine init runner (tests inject fakes).
    Init provision.InitRunner

    // Logger (optional). If nil, log.Default() is used.
    Logger *log.Logger
}

// Run provisions the root directory and launches the whole topology,
// blocking on the terminal attach unless NoAttach is set. Detaching leaves
// all spawned processes running.
func Run(ctx context.Context, cfg Config) error {
    if cfg.Logger == nil { cfg.Logger = log.Default() }
    if cfg.SessionName == "" { cfg.SessionName = "devnet" }

    topo := topology.Default()
    if cfg.Topology != nil { topo = *cfg.Topology }

    root, err := provision.Provision(ctx, provision.Options{
        RootDir:  cfg.RootDir,
        Topology: topo,
        Init:     cfg.Init,
        Logger:   cfg.Logger,
    })
    if err != nil { return err }

    var backend session.Session
    switch cfg.Backend {
    case "", "tmux":
        backend = tmux.New(tmux.Options{Name: cfg.SessionName, Logger: cfg.Logger})
    case "local":
        backend = local.New(local.Options{Name: cfg.SessionName, Logger: cfg.Logger})
    default:
        return fmt.Errorf("bootstrap: unknown session backend %q", cfg.Backend)
    }

    return orchestrate.Run(ctx, orchestrate.Options{
        RootDir:   root,
        Topology:  topo,
        Backend:   backend,
        Logger:    cfg.Logger,
        WaitReady: cfg.WaitReady,
        Attach:    !cfg.NoAttach,
    })
}
