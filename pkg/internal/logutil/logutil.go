package logutil

import (
    "encoding/json"
    "fmt"
    "log"
    "os"
    "sync/atomic"
    "time"
)

var jsonMode atomic.Bool

func init() {
    if os.Getenv("DEVNET_LOG_JSON") == "1" || os.Getenv("DEVNET_LOG_FORMAT") == "json" {
        jsonMode.Store(true)
    }
}

// SetJSON toggles structured JSON output at runtime.
func SetJSON(enabled bool) { jsonMode.Store(enabled) }

func Infof(l *log.Logger, f string, args ...any)  { logf(l, "info", f, args...) }
func Warnf(l *log.Logger, f string, args ...any)  { logf(l, "warn", f, args...) }
func Errorf(l *log.Logger, f string, args ...any) { logf(l, "error", f, args...) }

func logf(l *log.Logger, level, f string, args ...any) {
    if l == nil { l = log.Default() }
    if jsonMode.Load() {
        evt := map[string]any{
            "ts":    time.Now().UTC().Format(time.RFC3339Nano),
            "level": level,
            "msg":   fmt.Sprintf(f, args...),
        }
        b, _ := json.Marshal(evt)
        l.Println(string(b))
        return
    }
    var p string
    switch level {
    case "info":
        p = "INFO "
    case "warn":
        p = "WARN "
    default:
        p = "ERROR "
    }
    log.New(l.Writer(), p, l.Flags()).Printf(f, args...)
}
