package local

import (
    "bytes"
    "io"
    "log"
    "os"
    "path/filepath"
    "testing"

    "github.com/ledgerlabs/devnet/pkg/session"
)

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestLaunchFansOutToTerminalAndLog(t *testing.T) {
    var term bytes.Buffer
    s := New(Options{Name: "devnet", Stdout: &term, Logger: quietLogger()})
    logPath := filepath.Join(t.TempDir(), "hello.log")

    err := s.Launch(session.Window{
        Name:    "hello",
        Command: "sh",
        Args:    []string{"-c", "printf devnet-output"},
        LogFile: logPath,
    })
    if err != nil { t.Fatal(err) }
    if err := s.Attach(); err != nil { t.Fatal(err) }

    if got := term.String(); got != "devnet-output" {
        t.Fatalf("terminal sink got %q", got)
    }
    raw, err := os.ReadFile(logPath)
    if err != nil { t.Fatal(err) }
    if string(raw) != "devnet-output" {
        t.Fatalf("log sink got %q", raw)
    }
}

func TestLaunchMergesStderr(t *testing.T) {
    var term bytes.Buffer
    s := New(Options{Stdout: &term, Logger: quietLogger()})
    logPath := filepath.Join(t.TempDir(), "err.log")

    err := s.Launch(session.Window{
        Name:    "err",
        Command: "sh",
        Args:    []string{"-c", "printf oops 1>&2"},
        LogFile: logPath,
    })
    if err != nil { t.Fatal(err) }
    if err := s.Attach(); err != nil { t.Fatal(err) }

    raw, err := os.ReadFile(logPath)
    if err != nil { t.Fatal(err) }
    if string(raw) != "oops" { t.Fatalf("stderr not captured: %q", raw) }
}

func TestLaunchEnvBindings(t *testing.T) {
    var term bytes.Buffer
    s := New(Options{Stdout: &term, Logger: quietLogger()})

    err := s.Launch(session.Window{
        Name:    "env",
        Command: "sh",
        Args:    []string{"-c", `printf "%s" "$DEVNET_PROBE"`},
        Env:     map[string]string{"DEVNET_PROBE": "bound"},
    })
    if err != nil { t.Fatal(err) }
    if err := s.Attach(); err != nil { t.Fatal(err) }

    if got := term.String(); got != "bound" {
        t.Fatalf("env binding missing, got %q", got)
    }
}

func TestLaunchUnknownBinary(t *testing.T) {
    s := New(Options{Stdout: io.Discard, Logger: quietLogger()})
    err := s.Launch(session.Window{Name: "ghost", Command: "definitely-not-a-binary-4242"})
    if err == nil { t.Fatal("expected launch failure") }
}

func TestAttachReportsProcessFailure(t *testing.T) {
    s := New(Options{Stdout: io.Discard, Logger: quietLogger()})
    if err := s.Launch(session.Window{Name: "fail", Command: "sh", Args: []string{"-c", "exit 3"}}); err != nil {
        t.Fatal(err)
    }
    if err := s.Attach(); err == nil {
        t.Fatal("expected non-zero exit to surface from Attach")
    }
}

func TestKillIsNoop(t *testing.T) {
    s := New(Options{Logger: quietLogger()})
    if err := s.Kill(); err != nil { t.Fatal(err) }
}
