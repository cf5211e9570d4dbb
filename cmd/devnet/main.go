package main

import (
    "errors"
    "log"
    "os"
    "os/exec"

    "github.com/spf13/cobra"

    devnetcli "github.com/ledgerlabs/devnet/pkg/cli"
)

func main() {
    if err := newRoot().Execute(); err != nil {
        // Detaching from the session surfaces as the attach command's exit
        // status; pass it through unchanged.
        var ee *exec.ExitError
        if errors.As(err, &ee) {
            os.Exit(ee.ExitCode())
        }
        log.Fatal(err)
    }
}

func newRoot() *cobra.Command {
    root := &cobra.Command{
        Use:           "devnet",
        Short:         "local multi-process ledger devnet harness",
        SilenceUsage:  true,
        SilenceErrors: true,
    }
    devnetcli.AddAll(root)
    return root
}
