// Package orchestrate sequences the launch of every process of a provisioned
// devnet inside one named session: consensus engines first, then the
// application back-ends, then their bridges, then the gateway, finally an
// interactive shell window. The orchestrator only orders launch calls; it
// never supervises the processes it starts.
package orchestrate

import (
    "context"
    "errors"
    "log"
    "net"
    "os"
    "path/filepath"
    "time"

    "github.com/ledgerlabs/devnet/pkg/internal/logutil"
    "github.com/ledgerlabs/devnet/pkg/observability/tracing"
    "github.com/ledgerlabs/devnet/pkg/session"
    "github.com/ledgerlabs/devnet/pkg/topology"
)

var ErrNoBackend = errors.New("orchestrate: no session backend")

// Options configure one orchestration run.
type Options struct {
    // RootDir is the provisioned root; log files land in it as <name>.log.
    RootDir string

    // Topology is the same wiring table the provisioner ran against.
    Topology topology.Topology

    // Backend is the session implementation windows are launched into.
    Backend session.Session

    // Logger is used for operational messages. If nil, log.Default() is used.
    Logger *log.Logger

    // WaitReady bounds an optional TCP reachability probe on each process's
    // declared dependency before launching it. Zero keeps the original
    // fire-and-forget ordering, where dependents may race their dependency.
    WaitReady time.Duration

    // Attach connects the operator's terminal after the last launch. When
    // false the run returns immediately, leaving the session detached.
    Attach bool
}

// launch pairs a window with the address it depends on, if any.
type launch struct {
    win     session.Window
    waitFor string
}

// Run tears down any prior session of the same name (best effort), launches
// every window in dependency order, and finally attaches. A single window
// failing to launch is logged and skipped; the rest of the topology still
// comes up. Only the attach error propagates.
func Run(ctx context.Context, opts Options) error {
    if opts.Logger == nil { opts.Logger = log.Default() }
    if opts.Backend == nil { return ErrNoBackend }
    if err := opts.Topology.Validate(); err != nil { return err }

    if err := opts.Backend.Kill(); err != nil {
        // Nothing to kill is the common case on a first run.
        logutil.Warnf(opts.Logger, "teardown of previous session: %v", err)
    }

    ctx, end := tracing.StartSpan(ctx, "launch")
    for _, l := range launchPlan(opts.RootDir, opts.Topology) {
        if opts.WaitReady > 0 && l.waitFor != "" {
            waitReachable(ctx, l.waitFor, opts.WaitReady, opts.Logger)
        }
        if err := opts.Backend.Launch(l.win); err != nil {
            // Isolated to this window; its pane and log show the failure.
            logutil.Errorf(opts.Logger, "launch %s: %v", l.win.Name, err)
        }
    }
    end()

    if !opts.Attach { return nil }
    return opts.Backend.Attach()
}

// launchPlan expands the topology into the fixed launch sequence.
func launchPlan(root string, t topology.Topology) []launch {
    logFile := func(name string) string { return filepath.Join(root, name+".log") }
    var plan []launch

    // Consensus engines come up first so the bridges have an RPC endpoint
    // to dial once they start.
    for _, n := range t.Nodes {
        plan = append(plan, launch{win: session.Window{
            Name:    n.Name,
            Env:     map[string]string{t.EngineHomeEnv: filepath.Join(root, n.Home)},
            Command: t.EngineBinary,
            Args:    []string{"node"},
            LogFile: logFile(n.Name),
        }})
    }

    for _, a := range t.Apps {
        plan = append(plan, launch{win: session.Window{
            Name:    a.Name,
            Command: a.Binary,
            Args: []string{
                "-v", "-v", "--abci",
                "--addr", topology.Addr(a.Port),
                "--pem", t.IdentityFile,
                "--state", a.StateFile,
                "--persistent", filepath.Join(root, a.StoreDir),
            },
            LogFile: logFile(a.Name),
        }})
    }

    for _, a := range t.Apps {
        node, _ := t.Node(a.Node)
        plan = append(plan, launch{
            win: session.Window{
                Name:    a.BridgeName,
                Command: a.BridgeBinary,
                Args: []string{
                    "--many", topology.Addr(a.Port),
                    "--pem", t.IdentityFile,
                    "--addr", topology.Addr(a.BridgePort),
                    "--tendermint", "http://" + topology.Addr(node.RPCPort),
                },
                LogFile: logFile(a.BridgeName),
            },
            waitFor: topology.Addr(a.Port),
        })
    }

    if g := t.Gateway; g.Name != "" {
        target, _ := t.App(g.Target)
        plan = append(plan, launch{
            win: session.Window{
                Name:    g.Name,
                Command: g.Binary,
                Args: []string{
                    "--addr", topology.Addr(g.Port),
                    "--pem", t.IdentityFile,
                    topology.Addr(target.Port),
                },
                LogFile: logFile(g.Name),
            },
            waitFor: topology.Addr(target.Port),
        })
    }

    // Ad-hoc inspection window; no log file.
    plan = append(plan, launch{win: session.Window{
        Name:    "shell",
        Dir:     root,
        Command: operatorShell(),
    }})
    return plan
}

func operatorShell() string {
    if sh := os.Getenv("SHELL"); sh != "" { return sh }
    return "/bin/sh"
}

// waitReachable polls addr until a TCP dial succeeds or the budget runs out.
// Giving up is not an error: the dependent still launches and its own log
// shows whether the race was lost.
func waitReachable(ctx context.Context, addr string, budget time.Duration, logger *log.Logger) {
    deadline := time.Now().Add(budget)
    for {
        conn, err := net.DialTimeout("tcp", addr, 250*time.Millisecond)
        if err == nil {
            conn.Close()
            return
        }
        if ctx.Err() != nil || time.Now().After(deadline) {
            logutil.Warnf(logger, "%s not reachable after %s, launching anyway", addr, budget)
            return
        }
        time.Sleep(100 * time.Millisecond)
    }
}
