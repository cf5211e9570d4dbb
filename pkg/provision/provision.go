// Package provision prepares the root working directory of a devnet: one
// home directory per consensus engine instance, initialized through the
// engine's own init command, then rewired through configuration overrides.
// Provisioning is idempotent per root directory and all-or-nothing: any
// init or patch failure aborts before a single process is launched.
package provision

import (
    "context"
    "errors"
    "fmt"
    "log"
    "os"
    "os/exec"
    "path/filepath"
    "strings"

    "github.com/ledgerlabs/devnet/pkg/confpatch"
    "github.com/ledgerlabs/devnet/pkg/internal/logutil"
    "github.com/ledgerlabs/devnet/pkg/observability/tracing"
    "github.com/ledgerlabs/devnet/pkg/topology"
)

var ErrNoNodes = errors.New("provision: topology has no nodes")

// InitRunner initializes one engine home directory, producing its default
// configuration and key material. The exec-backed EngineInit is the default;
// tests inject fakes.
type InitRunner interface {
    Init(ctx context.Context, node topology.NodeSpec, homeDir string) error
}

// EngineInit shells out to the engine binary's "init validator" command with
// the home directory bound via the engine's home environment variable.
type EngineInit struct {
    Binary  string
    HomeEnv string
    Logger  *log.Logger
}

func (e EngineInit) Init(ctx context.Context, node topology.NodeSpec, homeDir string) error {
    cmd := exec.CommandContext(ctx, e.Binary, "init", "validator")
    cmd.Env = append(os.Environ(), e.HomeEnv+"="+homeDir)
    out, err := cmd.CombinedOutput()
    if err != nil {
        return fmt.Errorf("provision: init %s: %w: %s", node.Name, err, strings.TrimSpace(string(out)))
    }
    logutil.Infof(e.Logger, "initialized %s in %s", node.Name, homeDir)
    return nil
}

// Options configure one provisioning run.
type Options struct {
    // RootDir holds all per-node state and log files. Empty selects a fresh
    // uniquely-named temporary directory. The directory is never deleted by
    // the harness.
    RootDir string

    // Topology is the static wiring table to provision for.
    Topology topology.Topology

    // Init overrides the engine init runner. If nil, EngineInit built from
    // the topology's engine binary is used.
    Init InitRunner

    // Logger is used for operational messages. If nil, log.Default() is used.
    Logger *log.Logger
}

// Provision resolves the root directory, reports it, and populates it unless
// a prior run already did: the first node's home directory acts as the
// completion marker, so re-running against the same root neither
// re-initializes state nor re-applies overrides.
func Provision(ctx context.Context, opts Options) (string, error) {
    if opts.Logger == nil { opts.Logger = log.Default() }
    if len(opts.Topology.Nodes) == 0 { return "", ErrNoNodes }
    if err := opts.Topology.Validate(); err != nil { return "", err }

    root := opts.RootDir
    if root == "" {
        var err error
        root, err = os.MkdirTemp("", "devnet-")
        if err != nil { return "", fmt.Errorf("provision: create root dir: %w", err) }
    } else if err := os.MkdirAll(root, 0o755); err != nil {
        return "", fmt.Errorf("provision: create root dir %s: %w", root, err)
    }
    logutil.Infof(opts.Logger, "devnet root directory: %s", root)

    // Reuse gate: a prior run left the first engine home behind.
    marker := filepath.Join(root, opts.Topology.Nodes[0].Home)
    if _, err := os.Stat(marker); err == nil {
        logutil.Infof(opts.Logger, "root already provisioned, reusing as-is")
        return root, nil
    }

    ctx, end := tracing.StartSpan(ctx, "provision")
    defer end()

    init := opts.Init
    if init == nil {
        init = EngineInit{
            Binary:  opts.Topology.EngineBinary,
            HomeEnv: opts.Topology.EngineHomeEnv,
            Logger:  opts.Logger,
        }
    }
    for _, node := range opts.Topology.Nodes {
        if err := init.Init(ctx, node, filepath.Join(root, node.Home)); err != nil {
            return "", err
        }
    }
    for _, node := range opts.Topology.Nodes {
        for _, ov := range node.Overrides {
            if err := confpatch.Set(filepath.Join(root, ov.File), ov.Key, ov.Value); err != nil {
                return "", fmt.Errorf("provision: override %s for %s: %w", ov.Key, node.Name, err)
            }
        }
    }
    return root, nil
}
