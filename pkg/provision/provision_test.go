package provision

import (
    "context"
    "errors"
    "io"
    "log"
    "os"
    "path/filepath"
    "testing"

    "github.com/ledgerlabs/devnet/pkg/confpatch"
    "github.com/ledgerlabs/devnet/pkg/topology"
)

const baseConfig = `moniker = "anonymous"
proxy_app = "tcp://127.0.0.1:26658"

[p2p]
laddr = "tcp://0.0.0.0:26656"

[rpc]
laddr = "tcp://127.0.0.1:26657"
`

// fakeInit stands in for the engine binary: it creates the home layout the
// real init would and records which nodes it touched.
type fakeInit struct {
    calls []string
    err   error
}

func (f *fakeInit) Init(_ context.Context, node topology.NodeSpec, homeDir string) error {
    if f.err != nil { return f.err }
    f.calls = append(f.calls, node.Name)
    confDir := filepath.Join(homeDir, "config")
    if err := os.MkdirAll(confDir, 0o755); err != nil { return err }
    return os.WriteFile(filepath.Join(confDir, "config.toml"), []byte(baseConfig), 0o644)
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestProvisionAppliesOverrides(t *testing.T) {
    root := t.TempDir()
    init := &fakeInit{}
    topo := topology.Default()

    got, err := Provision(context.Background(), Options{
        RootDir: root, Topology: topo, Init: init, Logger: quietLogger(),
    })
    if err != nil { t.Fatal(err) }
    if got != root { t.Fatalf("root mismatch: got %s want %s", got, root) }

    if len(init.calls) != 2 || init.calls[0] != "tendermint-ledger" || init.calls[1] != "tendermint-kvstore" {
        t.Fatalf("unexpected init calls: %#v", init.calls)
    }

    for _, n := range topo.Nodes {
        conf := filepath.Join(root, n.Home, "config", "config.toml")
        for _, ov := range n.Overrides {
            v, err := confpatch.Get(conf, ov.Key)
            if err != nil { t.Fatalf("%s %s: %v", n.Name, ov.Key, err) }
            if v != ov.Value {
                t.Fatalf("%s %s: got %v want %v", n.Name, ov.Key, v, ov.Value)
            }
        }
        // The untouched keys from init survive patching.
        if v, err := confpatch.Get(conf, "moniker"); err != nil || v != "anonymous" {
            t.Fatalf("moniker clobbered: %v %v", v, err)
        }
    }
}

func TestProvisionIdempotent(t *testing.T) {
    root := t.TempDir()
    init := &fakeInit{}
    topo := topology.Default()
    opts := Options{RootDir: root, Topology: topo, Init: init, Logger: quietLogger()}

    if _, err := Provision(context.Background(), opts); err != nil { t.Fatal(err) }

    conf := filepath.Join(root, topo.Nodes[0].Home, "config", "config.toml")
    before, err := os.ReadFile(conf)
    if err != nil { t.Fatal(err) }

    if _, err := Provision(context.Background(), opts); err != nil { t.Fatal(err) }
    if len(init.calls) != 2 {
        t.Fatalf("second run re-initialized: %#v", init.calls)
    }

    after, err := os.ReadFile(conf)
    if err != nil { t.Fatal(err) }
    if string(before) != string(after) {
        t.Fatalf("config changed on re-provision:\n--- before\n%s\n--- after\n%s", before, after)
    }
}

func TestProvisionFreshRootsDistinct(t *testing.T) {
    init := &fakeInit{}
    opts := Options{Topology: topology.Default(), Init: init, Logger: quietLogger()}

    first, err := Provision(context.Background(), opts)
    if err != nil { t.Fatal(err) }
    t.Cleanup(func() { os.RemoveAll(first) })

    second, err := Provision(context.Background(), opts)
    if err != nil { t.Fatal(err) }
    t.Cleanup(func() { os.RemoveAll(second) })

    if first == second {
        t.Fatalf("expected distinct temp roots, both %s", first)
    }
}

func TestProvisionInitFailureFatal(t *testing.T) {
    init := &fakeInit{err: errors.New("engine exploded")}
    _, err := Provision(context.Background(), Options{
        RootDir: t.TempDir(), Topology: topology.Default(), Init: init, Logger: quietLogger(),
    })
    if err == nil { t.Fatal("expected provisioning to fail") }
}

func TestProvisionOverrideFailureFatal(t *testing.T) {
    // Init succeeds but never writes a config file, so the first override
    // hits a missing target.
    init := &fakeInit{}
    topo := topology.Default()
    root := t.TempDir()

    brokenInit := initFunc(func(ctx context.Context, node topology.NodeSpec, homeDir string) error {
        init.calls = append(init.calls, node.Name)
        return os.MkdirAll(homeDir, 0o755)
    })
    _, err := Provision(context.Background(), Options{
        RootDir: root, Topology: topo, Init: brokenInit, Logger: quietLogger(),
    })
    if !errors.Is(err, confpatch.ErrConfigWrite) {
        t.Fatalf("expected config write error, got %v", err)
    }
}

func TestProvisionRejectsEmptyTopology(t *testing.T) {
    _, err := Provision(context.Background(), Options{Logger: quietLogger()})
    if !errors.Is(err, ErrNoNodes) { t.Fatalf("expected ErrNoNodes, got %v", err) }
}

type initFunc func(context.Context, topology.NodeSpec, string) error

func (f initFunc) Init(ctx context.Context, node topology.NodeSpec, homeDir string) error {
    return f(ctx, node, homeDir)
}
