// Package session abstracts the grouping construct processes are launched
// into: one named session, one window per process, each window's combined
// output duplicated to a log file. Backends live in subpackages (tmux for
// the interactive multiplexer, local for an in-process fallback).
package session

// Window is one launchable unit inside a session.
type Window struct {
    // Name labels the window; it doubles as the process's log name.
    Name string
    // Dir is the working directory for the process (empty = inherit).
    Dir string
    // Env holds extra environment bindings on top of the inherited one.
    Env map[string]string
    // Command and Args form the executable invocation.
    Command string
    Args    []string
    // LogFile, when non-empty, receives a copy of the merged stdout/stderr.
    LogFile string
}

// Session groups windows under one name. Launch calls are sequenced by the
// caller; a backend never reorders them.
type Session interface {
    // Kill tears down any pre-existing session of the same name. Absence of
    // such a session is not an error worth reporting; callers treat any
    // returned error as best-effort.
    Kill() error

    // Launch starts the window's process asynchronously. A failure is scoped
    // to this window only.
    Launch(w Window) error

    // Attach connects the operator's terminal and blocks until detach or
    // session end. Processes keep running after detach.
    Attach() error
}
