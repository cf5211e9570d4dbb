package topology

import (
    "errors"
    "fmt"
)

// Topology is the static wiring table for a local devnet: the consensus
// engine instances, the application back-ends with their protocol bridges,
// and the public gateway. It is built once (see Default) and passed
// explicitly to the provisioner and the orchestrator; nothing reads it from
// ambient globals.
type Topology struct {
    // EngineBinary is the consensus engine executable, resolved via PATH.
    EngineBinary string `json:"engine_binary"`
    // EngineHomeEnv is the environment variable binding an engine process
    // to its home directory (e.g. TMHOME).
    EngineHomeEnv string `json:"engine_home_env"`
    // IdentityFile is the shared identity/credential PEM handed to every
    // application, bridge and gateway process.
    IdentityFile string `json:"identity_file"`

    Nodes   []NodeSpec  `json:"nodes"`
    Apps    []AppSpec   `json:"apps"`
    Gateway GatewaySpec `json:"gateway"`
}

// NodeSpec identifies one consensus engine instance. Home is relative to the
// root working directory chosen at provisioning time.
type NodeSpec struct {
    Name         string `json:"name"`
    Home         string `json:"home"`
    P2PPort      int    `json:"p2p_port"`
    RPCPort      int    `json:"rpc_port"`
    ProxyAppPort int    `json:"proxy_app_port"`

    // Overrides are applied to the node's generated configuration after
    // engine initialization, in the order listed.
    Overrides []Override `json:"overrides"`
}

// Override sets one value at a dotted key path inside a configuration file.
// File is relative to the root working directory.
type Override struct {
    File  string `json:"file"`
    Key   string `json:"key"`
    Value any    `json:"value"`
}

// AppSpec describes one application back-end together with its protocol
// bridge. Node names the NodeSpec whose engine the bridge forwards to.
type AppSpec struct {
    Name      string `json:"name"`
    Binary    string `json:"binary"`
    Port      int    `json:"port"`
    StateFile string `json:"state_file"`
    StoreDir  string `json:"store_dir"`
    Node      string `json:"node"`

    BridgeName   string `json:"bridge_name"`
    BridgeBinary string `json:"bridge_binary"`
    BridgePort   int    `json:"bridge_port"`
}

// GatewaySpec describes the public-facing gateway relaying to one
// application's port.
type GatewaySpec struct {
    Name   string `json:"name"`
    Binary string `json:"binary"`
    Port   int    `json:"port"`
    // Target names the AppSpec the gateway forwards to.
    Target string `json:"target"`
}

var (
    ErrPortCollision = errors.New("topology: port collision")
    ErrUnknownNode   = errors.New("topology: app references unknown node")
    ErrUnknownApp    = errors.New("topology: gateway references unknown app")
    ErrDuplicateName = errors.New("topology: duplicate window name")
)

// Addr formats a loopback host:port pair the way processes are wired
// together in the topology.
func Addr(port int) string { return fmt.Sprintf("127.0.0.1:%d", port) }

// Node returns the NodeSpec with the given name, or false.
func (t Topology) Node(name string) (NodeSpec, bool) {
    for _, n := range t.Nodes {
        if n.Name == name { return n, true }
    }
    return NodeSpec{}, false
}

// App returns the AppSpec with the given name, or false.
func (t Topology) App(name string) (AppSpec, bool) {
    for _, a := range t.Apps {
        if a.Name == name { return a, true }
    }
    return AppSpec{}, false
}

// Validate checks the internal consistency of the table: every declared port
// pairwise distinct, every cross reference resolvable, every window name
// unique. It performs no I/O.
func (t Topology) Validate() error {
    ports := map[int]string{}
    claim := func(port int, owner string) error {
        if prev, ok := ports[port]; ok {
            return fmt.Errorf("%w: %d claimed by both %s and %s", ErrPortCollision, port, prev, owner)
        }
        ports[port] = owner
        return nil
    }
    names := map[string]bool{}
    claimName := func(name string) error {
        if names[name] { return fmt.Errorf("%w: %s", ErrDuplicateName, name) }
        names[name] = true
        return nil
    }

    for _, n := range t.Nodes {
        if err := claimName(n.Name); err != nil { return err }
        if err := claim(n.P2PPort, n.Name+" p2p"); err != nil { return err }
        if err := claim(n.RPCPort, n.Name+" rpc"); err != nil { return err }
        if err := claim(n.ProxyAppPort, n.Name+" proxy-app"); err != nil { return err }
    }
    for _, a := range t.Apps {
        if err := claimName(a.Name); err != nil { return err }
        if err := claimName(a.BridgeName); err != nil { return err }
        if err := claim(a.Port, a.Name); err != nil { return err }
        if err := claim(a.BridgePort, a.BridgeName); err != nil { return err }
        if _, ok := t.Node(a.Node); !ok {
            return fmt.Errorf("%w: %s -> %s", ErrUnknownNode, a.Name, a.Node)
        }
    }
    if t.Gateway.Name != "" {
        if err := claimName(t.Gateway.Name); err != nil { return err }
        if err := claim(t.Gateway.Port, t.Gateway.Name); err != nil { return err }
        if _, ok := t.App(t.Gateway.Target); !ok {
            return fmt.Errorf("%w: %s -> %s", ErrUnknownApp, t.Gateway.Name, t.Gateway.Target)
        }
    }
    return nil
}
