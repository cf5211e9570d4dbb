// Package local runs windows as plain child processes of the harness, with
// each process's merged output fanned out to the shared terminal writer and
// its log file through an explicit io.MultiWriter. It serves headless runs
// and tests; there is no prior session to tear down, so Kill is a no-op.
package local

import (
    "fmt"
    "io"
    "log"
    "os"
    "os/exec"
    "sync"

    "github.com/ledgerlabs/devnet/pkg/internal/logutil"
    "github.com/ledgerlabs/devnet/pkg/session"
)

// Options configure a local session.
type Options struct {
    Name string
    // Stdout is the shared terminal sink (default os.Stdout).
    Stdout io.Writer
    // Logger is used for operational messages. If nil, log.Default() is used.
    Logger *log.Logger
}

// Session implements session.Session by spawning children directly.
type Session struct {
    name   string
    stdout io.Writer
    logger *log.Logger

    mu    sync.Mutex
    procs []*exec.Cmd
    logs  []*os.File
}

var _ session.Session = (*Session)(nil)

// New returns an empty local session.
func New(opts Options) *Session {
    if opts.Stdout == nil { opts.Stdout = os.Stdout }
    if opts.Logger == nil { opts.Logger = log.Default() }
    return &Session{name: opts.Name, stdout: opts.Stdout, logger: opts.Logger}
}

// Kill is a no-op: children of a previous invocation are not reachable from
// a fresh process.
func (s *Session) Kill() error { return nil }

// Launch starts the window's process without waiting for it. Stdout and
// stderr are merged and duplicated to the terminal sink and the log file.
func (s *Session) Launch(w session.Window) error {
    cmd := exec.Command(w.Command, w.Args...)
    if w.Dir != "" { cmd.Dir = w.Dir }
    cmd.Env = os.Environ()
    for k, v := range w.Env {
        cmd.Env = append(cmd.Env, k+"="+v)
    }

    sinks := []io.Writer{s.stdout}
    var logFile *os.File
    if w.LogFile != "" {
        f, err := os.Create(w.LogFile)
        if err != nil { return fmt.Errorf("local: create log for %s: %w", w.Name, err) }
        logFile = f
        sinks = append(sinks, f)
    }
    out := io.MultiWriter(sinks...)
    cmd.Stdout = out
    cmd.Stderr = out

    if err := cmd.Start(); err != nil {
        if logFile != nil { logFile.Close() }
        return fmt.Errorf("local: start %s: %w", w.Name, err)
    }

    s.mu.Lock()
    s.procs = append(s.procs, cmd)
    if logFile != nil { s.logs = append(s.logs, logFile) }
    s.mu.Unlock()

    logutil.Infof(s.logger, "started %s (pid %d)", w.Name, cmd.Process.Pid)
    return nil
}

// Attach blocks until every launched process has exited, then closes the
// log files. The first process failure is reported after all have finished.
func (s *Session) Attach() error {
    s.mu.Lock()
    procs := append([]*exec.Cmd(nil), s.procs...)
    logs := append([]*os.File(nil), s.logs...)
    s.procs, s.logs = nil, nil
    s.mu.Unlock()

    var first error
    for _, cmd := range procs {
        if err := cmd.Wait(); err != nil && first == nil {
            first = err
        }
    }
    for _, f := range logs { f.Close() }
    return first
}
