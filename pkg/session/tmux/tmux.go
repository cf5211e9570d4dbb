// Package tmux drives the tmux binary as a session backend. Every window
// runs `env ... cmd args 2>&1 | tee log`, so output reaches both the pane
// and the per-process log file.
package tmux

import (
    "fmt"
    "log"
    "os"
    "os/exec"
    "sort"
    "strings"

    "github.com/ledgerlabs/devnet/pkg/internal/logutil"
    "github.com/ledgerlabs/devnet/pkg/session"
)

// Options configure a tmux-backed session.
type Options struct {
    // Name of the tmux session.
    Name string
    // Binary overrides the tmux executable (default "tmux", resolved via PATH).
    Binary string
    // Logger is used for operational messages. If nil, log.Default() is used.
    Logger *log.Logger
}

// Session implements session.Session on top of the tmux CLI. The first
// Launch creates the detached session; later ones add windows to it.
type Session struct {
    name    string
    binary  string
    logger  *log.Logger
    created bool
}

var _ session.Session = (*Session)(nil)

// New returns an unstarted tmux session handle.
func New(opts Options) *Session {
    if opts.Binary == "" { opts.Binary = "tmux" }
    if opts.Logger == nil { opts.Logger = log.Default() }
    return &Session{name: opts.Name, binary: opts.Binary, logger: opts.Logger}
}

// Kill terminates a pre-existing session of the same name. tmux exits
// non-zero when there is nothing to kill, which callers are expected to
// tolerate.
func (s *Session) Kill() error {
    cmd := exec.Command(s.binary, "kill-session", "-t", s.name)
    if err := cmd.Run(); err != nil {
        return fmt.Errorf("tmux: kill-session %s: %w", s.name, err)
    }
    return nil
}

// Launch opens one window running the process behind a tee pipeline.
func (s *Session) Launch(w session.Window) error {
    sh := shellCommand(w)
    var args []string
    if !s.created {
        args = []string{"new-session", "-d", "-s", s.name, "-n", w.Name, sh}
    } else {
        args = []string{"new-window", "-t", s.name, "-n", w.Name, sh}
    }
    cmd := exec.Command(s.binary, args...)
    if w.Dir != "" { cmd.Dir = w.Dir }
    if out, err := cmd.CombinedOutput(); err != nil {
        return fmt.Errorf("tmux: launch window %s: %w: %s", w.Name, err, strings.TrimSpace(string(out)))
    }
    s.created = true
    logutil.Infof(s.logger, "started window %s (%s)", w.Name, w.Command)
    return nil
}

// Attach connects the calling terminal to the session and blocks until the
// operator detaches or the session dies.
func (s *Session) Attach() error {
    cmd := exec.Command(s.binary, "attach-session", "-t", s.name)
    cmd.Stdin = os.Stdin
    cmd.Stdout = os.Stdout
    cmd.Stderr = os.Stderr
    return cmd.Run()
}

// shellCommand renders the window as a single POSIX shell line:
// env bindings, the invocation, then stderr merged into a tee to the log.
func shellCommand(w session.Window) string {
    var parts []string
    if len(w.Env) > 0 {
        parts = append(parts, "env")
        keys := make([]string, 0, len(w.Env))
        for k := range w.Env { keys = append(keys, k) }
        sort.Strings(keys)
        for _, k := range keys {
            parts = append(parts, quote(k+"="+w.Env[k]))
        }
    }
    parts = append(parts, quote(w.Command))
    for _, a := range w.Args {
        parts = append(parts, quote(a))
    }
    line := strings.Join(parts, " ")
    if w.LogFile != "" {
        line += " 2>&1 | tee " + quote(w.LogFile)
    }
    return line
}

// quote single-quotes s for a POSIX shell unless it is plainly safe.
func quote(s string) string {
    if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$&|;<>()*?[]#~%{}`!") {
        return s
    }
    return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
