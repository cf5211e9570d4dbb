package cli

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "os"
    "os/signal"
    "strconv"
    "syscall"
    "time"

    "github.com/spf13/cobra"

    "github.com/ledgerlabs/devnet/pkg/bootstrap"
    "github.com/ledgerlabs/devnet/pkg/confpatch"
    "github.com/ledgerlabs/devnet/pkg/provision"
    tracing "github.com/ledgerlabs/devnet/pkg/observability/tracing"
    "github.com/ledgerlabs/devnet/pkg/topology"
)

// AddAll attaches devnet subcommands (up/provision/patch/topology) to the
// provided root command.
func AddAll(root *cobra.Command) {
    root.AddCommand(NewUpCmd())
    root.AddCommand(NewProvisionCmd())
    root.AddCommand(NewPatchCmd())
    root.AddCommand(NewTopologyCmd())
}

// NewUpCmd returns the "up" command used to provision and launch the whole
// topology. Positional arguments: [rootDir] [sessionName].
func NewUpCmd() *cobra.Command {
    var (
        backend             string
        noAttach, traceEnable bool
        waitReady           time.Duration
    )
    cmd := &cobra.Command{
        Use:   "up [rootDir] [sessionName]",
        Short: "Provision and launch the local devnet topology",
        Args:  cobra.MaximumNArgs(2),
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx, cancel := signalContext()
            defer cancel()

            if traceEnable {
                shutdown, err := tracing.Setup(true)
                if err != nil {
                    log.Printf("tracing setup error: %v", err)
                } else {
                    defer func() { _ = shutdown(context.Background()) }()
                }
            }

            cfg := bootstrap.Config{
                Backend:   backend,
                NoAttach:  noAttach,
                WaitReady: waitReady,
                Logger:    log.Default(),
            }
            if len(args) > 0 { cfg.RootDir = args[0] }
            if len(args) > 1 { cfg.SessionName = args[1] }
            return bootstrap.Run(ctx, cfg)
        },
    }
    cmd.Flags().StringVar(&backend, "backend", "tmux", "session backend: tmux|local")
    cmd.Flags().BoolVar(&noAttach, "no-attach", false, "leave the session detached after launch")
    cmd.Flags().DurationVar(&waitReady, "wait-ready", 0, "per-dependency TCP readiness budget (0 disables probing)")
    cmd.Flags().BoolVar(&traceEnable, "trace", false, "enable OpenTelemetry stdout tracing (dev)")
    return cmd
}

// NewProvisionCmd returns the "provision" command: initialize the root
// directory without launching anything.
func NewProvisionCmd() *cobra.Command {
    cmd := &cobra.Command{
        Use:   "provision [rootDir]",
        Short: "Initialize engine homes and apply config overrides",
        Args:  cobra.MaximumNArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx, cancel := signalContext()
            defer cancel()
            opts := provision.Options{Topology: topology.Default(), Logger: log.Default()}
            if len(args) > 0 { opts.RootDir = args[0] }
            root, err := provision.Provision(ctx, opts)
            if err != nil { return err }
            fmt.Println(root)
            return nil
        },
    }
    return cmd
}

// NewPatchCmd returns the "patch" command, a direct CLI surface over the
// config patcher.
func NewPatchCmd() *cobra.Command {
    cmd := &cobra.Command{
        Use:   "patch <file> <key.path> <value>",
        Short: "Set one value at a dotted key path in a TOML/JSON/YAML file",
        Args:  cobra.ExactArgs(3),
        RunE: func(cmd *cobra.Command, args []string) error {
            return confpatch.Set(args[0], args[1], parseScalar(args[2]))
        },
    }
    return cmd
}

// NewTopologyCmd returns the "topology" command printing the compiled-in
// wiring table as JSON.
func NewTopologyCmd() *cobra.Command {
    cmd := &cobra.Command{
        Use:   "topology",
        Short: "Print the compiled-in topology as JSON",
        RunE: func(cmd *cobra.Command, args []string) error {
            t := topology.Default()
            if err := t.Validate(); err != nil { return err }
            enc := json.NewEncoder(os.Stdout)
            enc.SetIndent("", "  ")
            return enc.Encode(t)
        },
    }
    return cmd
}

// parseScalar keeps patch values typed in the target document: bools and
// numbers stay bools and numbers, everything else is a string.
func parseScalar(s string) any {
    if i, err := strconv.ParseInt(s, 10, 64); err == nil { return i }
    if f, err := strconv.ParseFloat(s, 64); err == nil { return f }
    if s == "true" || s == "false" { return s == "true" }
    return s
}

func signalContext() (context.Context, context.CancelFunc) {
    ctx, cancel := context.WithCancel(context.Background())
    go func() {
        ch := make(chan os.Signal, 1)
        signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
        <-ch
        cancel()
    }()
    return ctx, cancel
}
