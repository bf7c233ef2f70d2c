package profiles

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
)

// InstanceConfig is the subset of an OpenClaw instance config the gateway
// reads and patches. Unknown fields are preserved through the raw map held by
// the store; this struct only shapes what the admin surface exposes.
type InstanceConfig struct {
	Tools  ToolConfig     `json:"tools,omitempty"`
	Auth   map[string]any `json:"auth,omitempty"`
	Agents map[string]any `json:"agents,omitempty"`
}

// Store reads and writes per-profile OpenClaw instance config files:
// <dir>/openclaw-<name>.json. The files are owned by the OpenClaw instances;
// the gateway only merges patches into them.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a store rooted at dir. An empty dir defaults to
// ~/.openclaw.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dir = filepath.Join(home, ".openclaw")
	}
	return &Store{dir: dir, logger: logger}
}

// Path returns the config file path for a profile name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, "openclaw-"+name+".json")
}

// Read loads a profile's config. A missing file yields an empty map and
// exists=false; a corrupt file is an error.
func (s *Store) Read(name string) (cfg map[string]any, exists bool, err error) {
	raw, err := os.ReadFile(s.Path(name))
	if os.IsNotExist(err) {
		return map[string]any{}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read profile config: %w", err)
	}

	cfg = map[string]any{}
	if err := json.Unmarshal(stripJSONComments(raw), &cfg); err != nil {
		return nil, true, fmt.Errorf("failed to parse profile config: %w", err)
	}
	return cfg, true, nil
}

// ReadTools extracts the tool-permission fragment of a profile's config.
func (s *Store) ReadTools(name string) (ToolConfig, error) {
	cfg, _, err := s.Read(name)
	if err != nil {
		return ToolConfig{}, err
	}

	raw, ok := cfg["tools"]
	if !ok {
		return ToolConfig{}, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return ToolConfig{}, err
	}
	var tc ToolConfig
	if err := json.Unmarshal(data, &tc); err != nil {
		return ToolConfig{}, fmt.Errorf("invalid tools section: %w", err)
	}
	return tc, nil
}

// WriteTools merges a tool-permission fragment into a profile's config file.
func (s *Store) WriteTools(name string, tc ToolConfig) error {
	patch := map[string]any{}
	if tc.Profile != "" {
		patch["profile"] = tc.Profile
	}
	if tc.Allow != nil {
		patch["allow"] = tc.Allow
	}
	if tc.Deny != nil {
		patch["deny"] = tc.Deny
	}
	return s.Merge(name, map[string]any{"tools": patch})
}

// Merge deep-merges a patch into a profile's config file, creating the file
// and directory as needed. Nested maps merge key-wise; anything else
// replaces. A corrupt existing file is replaced rather than propagated.
func (s *Store) Merge(name string, patch map[string]any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create profile dir: %w", err)
	}

	cfg, _, err := s.Read(name)
	if err != nil {
		s.logger.Warn("Replacing unreadable profile config", "profile", name, "error", err)
		cfg = map[string]any{}
	}

	deepMerge(cfg, patch)

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.Path(name), append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write profile config: %w", err)
	}
	return nil
}

func deepMerge(dst, patch map[string]any) {
	for key, val := range patch {
		if patchMap, ok := val.(map[string]any); ok {
			if dstMap, ok := dst[key].(map[string]any); ok {
				deepMerge(dstMap, patchMap)
				continue
			}
		}
		dst[key] = val
	}
}

// Instance config files may carry comments and trailing commas (JSON5-ish,
// hand-edited). Strip both before decoding.
var (
	lineCommentRe   = regexp.MustCompile(`(?m)//.*$`)
	blockCommentRe  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	trailingCommaRe = regexp.MustCompile(`,\s*([\]}])`)
)

func stripJSONComments(raw []byte) []byte {
	raw = blockCommentRe.ReplaceAll(raw, nil)
	raw = lineCommentRe.ReplaceAll(raw, nil)
	return trailingCommaRe.ReplaceAll(raw, []byte("$1"))
}
