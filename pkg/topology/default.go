package topology

import (
    "fmt"
    "path/filepath"
)

// Default ports. Engine ports follow the engine's stock 2665x layout for the
// first node and shift by ten for the second; application-side ports live in
// the 8xxx range.
const (
    LedgerP2PPort      = 26656
    LedgerRPCPort      = 26657
    LedgerProxyAppPort = 26658

    KVStoreP2PPort      = 26666
    KVStoreRPCPort      = 26667
    KVStoreProxyAppPort = 26668

    LedgerPort        = 8000
    LedgerBridgePort  = 8001
    KVStorePort       = 8010
    KVStoreBridgePort = 8011
    GatewayPort       = 8880
)

// Default returns the compiled-in two-node devnet: a ledger chain and a
// kvstore chain, each an engine + application + bridge triple, fronted by a
// single gateway pointed at the ledger. Adding a chain means extending this
// table; provisioner and orchestrator are generic over it.
func Default() Topology {
    return Topology{
        EngineBinary:  "tendermint",
        EngineHomeEnv: "TMHOME",
        IdentityFile:  "id.pem",
        Nodes: []NodeSpec{
            engineNode("tendermint-ledger", LedgerP2PPort, LedgerRPCPort, LedgerProxyAppPort),
            engineNode("tendermint-kvstore", KVStoreP2PPort, KVStoreRPCPort, KVStoreProxyAppPort),
        },
        Apps: []AppSpec{
            {
                Name:      "ledger",
                Binary:    "ledger",
                Port:      LedgerPort,
                StateFile: "ledger_state.json",
                StoreDir:  "ledger.db",
                Node:      "tendermint-ledger",

                BridgeName:   "ledger-abci",
                BridgeBinary: "abci-proxy",
                BridgePort:   LedgerBridgePort,
            },
            {
                Name:      "kvstore",
                Binary:    "kvstore",
                Port:      KVStorePort,
                StateFile: "kvstore_state.json",
                StoreDir:  "kvstore.db",
                Node:      "tendermint-kvstore",

                BridgeName:   "kvstore-abci",
                BridgeBinary: "abci-proxy",
                BridgePort:   KVStoreBridgePort,
            },
        },
        Gateway: GatewaySpec{
            Name:   "gateway",
            Binary: "http-proxy",
            Port:   GatewayPort,
            Target: "ledger",
        },
    }
}

// engineNode builds a NodeSpec whose generated config.toml is rewired to the
// given ports. The p2p listener binds all interfaces, rpc and proxy-app stay
// on loopback.
func engineNode(name string, p2p, rpc, proxyApp int) NodeSpec {
    conf := filepath.Join(name, "config", "config.toml")
    return NodeSpec{
        Name:         name,
        Home:         name,
        P2PPort:      p2p,
        RPCPort:      rpc,
        ProxyAppPort: proxyApp,
        Overrides: []Override{
            {File: conf, Key: "proxy_app", Value: fmt.Sprintf("tcp://127.0.0.1:%d", proxyApp)},
            {File: conf, Key: "p2p.laddr", Value: fmt.Sprintf("tcp://0.0.0.0:%d", p2p)},
            {File: conf, Key: "rpc.laddr", Value: fmt.Sprintf("tcp://127.0.0.1:%d", rpc)},
        },
    }
}
