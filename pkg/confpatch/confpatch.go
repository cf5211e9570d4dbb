// Package confpatch sets single values at dotted key paths inside structured
// configuration files (TOML, JSON or YAML, chosen by file extension). Writes
// go through a temporary file and an atomic rename, so an interrupted patch
// never leaves the target truncated.
package confpatch

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"

    toml "github.com/pelletier/go-toml/v2"
    yaml "gopkg.in/yaml.v3"
)

var (
    // ErrConfigWrite covers every failure mode of Set: missing target,
    // malformed content, unsupported format, unwritable directory.
    ErrConfigWrite = errors.New("confpatch: config write failed")

    // ErrKeyPath marks a key path that traverses a non-table value.
    ErrKeyPath = errors.New("confpatch: key path traverses non-table value")
)

type codec struct {
    unmarshal func([]byte, any) error
    marshal   func(any) ([]byte, error)
}

func codecFor(path string) (codec, error) {
    switch strings.ToLower(filepath.Ext(path)) {
    case ".toml":
        return codec{toml.Unmarshal, toml.Marshal}, nil
    case ".json":
        return codec{json.Unmarshal, func(v any) ([]byte, error) {
            return json.MarshalIndent(v, "", "  ")
        }}, nil
    case ".yaml", ".yml":
        return codec{yaml.Unmarshal, yaml.Marshal}, nil
    default:
        return codec{}, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
    }
}

// Set rewrites path so that the dot-delimited keyPath holds value, creating
// intermediate tables as needed and preserving every unrelated key. The same
// call repeated is idempotent. Any failure wraps ErrConfigWrite and leaves
// the original file untouched.
func Set(path, keyPath string, value any) error {
    if keyPath == "" {
        return fmt.Errorf("%w: empty key path for %s", ErrConfigWrite, path)
    }
    c, err := codecFor(path)
    if err != nil { return fmt.Errorf("%w: %v", ErrConfigWrite, err) }

    raw, err := os.ReadFile(path)
    if err != nil { return fmt.Errorf("%w: read %s: %v", ErrConfigWrite, path, err) }

    doc := map[string]any{}
    if err := c.unmarshal(raw, &doc); err != nil {
        return fmt.Errorf("%w: decode %s: %v", ErrConfigWrite, path, err)
    }
    if err := setPath(doc, strings.Split(keyPath, "."), value); err != nil {
        return fmt.Errorf("%w: %s in %s: %v", ErrConfigWrite, keyPath, path, err)
    }
    out, err := c.marshal(doc)
    if err != nil {
        return fmt.Errorf("%w: encode %s: %v", ErrConfigWrite, path, err)
    }
    if err := writeAtomic(path, out); err != nil {
        return fmt.Errorf("%w: %v", ErrConfigWrite, err)
    }
    return nil
}

// Get reads the value at the dot-delimited keyPath, or an error if any
// segment is absent or traverses a scalar.
func Get(path, keyPath string) (any, error) {
    c, err := codecFor(path)
    if err != nil { return nil, err }
    raw, err := os.ReadFile(path)
    if err != nil { return nil, err }
    doc := map[string]any{}
    if err := c.unmarshal(raw, &doc); err != nil { return nil, err }

    keys := strings.Split(keyPath, ".")
    cur := any(doc)
    for _, k := range keys {
        table, ok := asTable(cur)
        if !ok { return nil, fmt.Errorf("%w: %s in %s", ErrKeyPath, keyPath, path) }
        cur, ok = table[k]
        if !ok { return nil, fmt.Errorf("confpatch: %s not found in %s", keyPath, path) }
    }
    return cur, nil
}

func setPath(doc map[string]any, keys []string, value any) error {
    cur := doc
    for _, k := range keys[:len(keys)-1] {
        next, ok := cur[k]
        if !ok {
            table := map[string]any{}
            cur[k] = table
            cur = table
            continue
        }
        table, ok := asTable(next)
        if !ok { return ErrKeyPath }
        cur[k] = table
        cur = table
    }
    leaf := keys[len(keys)-1]
    if existing, ok := cur[leaf]; ok {
        if _, isTable := asTable(existing); isTable {
            return fmt.Errorf("%w: refusing to replace table at %q with scalar", ErrKeyPath, leaf)
        }
    }
    cur[leaf] = value
    return nil
}

// asTable normalizes the map flavors the three decoders produce.
func asTable(v any) (map[string]any, bool) {
    switch m := v.(type) {
    case map[string]any:
        return m, true
    case map[any]any:
        out := make(map[string]any, len(m))
        for k, val := range m {
            ks, ok := k.(string)
            if !ok { return nil, false }
            out[ks] = val
        }
        return out, true
    default:
        return nil, false
    }
}

// writeAtomic stages content in a sibling temp file and renames it over path.
func writeAtomic(path string, content []byte) error {
    dir := filepath.Dir(path)
    tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
    if err != nil { return fmt.Errorf("stage %s: %v", path, err) }
    tmpName := tmp.Name()
    if _, err := tmp.Write(content); err != nil {
        tmp.Close()
        os.Remove(tmpName)
        return fmt.Errorf("stage %s: %v", path, err)
    }
    if err := tmp.Close(); err != nil {
        os.Remove(tmpName)
        return fmt.Errorf("stage %s: %v", path, err)
    }
    if err := os.Rename(tmpName, path); err != nil {
        os.Remove(tmpName)
        return fmt.Errorf("replace %s: %v", path, err)
    }
    return nil
}
