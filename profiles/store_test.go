package profiles

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestStoreReadMissingFile(t *testing.T) {
	s := NewStore(t.TempDir(), nil)

	cfg, exists, err := s.Read("nope")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if exists {
		t.Error("missing file reported as existing")
	}
	if len(cfg) != 0 {
		t.Errorf("cfg = %v, want empty", cfg)
	}
}

func TestStoreWriteToolsRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir(), nil)

	tc := ToolConfig{Profile: "coding", Allow: []string{"group:memory"}, Deny: []string{"bash"}}
	if err := s.WriteTools("alpha", tc); err != nil {
		t.Fatalf("WriteTools: %v", err)
	}

	got, err := s.ReadTools("alpha")
	if err != nil {
		t.Fatalf("ReadTools: %v", err)
	}
	if !reflect.DeepEqual(got, tc) {
		t.Errorf("got %+v, want %+v", got, tc)
	}
}

func TestStoreMergePreservesUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, nil)

	existing := `{
  // hand-edited instance config
  "gateway": {"port": 18789},
  "auth": {"anthropic": {"apiKey": "old-key", "region": "us"}},
}`
	if err := os.WriteFile(s.Path("beta"), []byte(existing), 0o600); err != nil {
		t.Fatal(err)
	}

	patch := map[string]any{"auth": map[string]any{"anthropic": map[string]any{"apiKey": "new-key"}}}
	if err := s.Merge("beta", patch); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	cfg, exists, err := s.Read("beta")
	if err != nil || !exists {
		t.Fatalf("Read: exists=%v err=%v", exists, err)
	}

	auth := cfg["auth"].(map[string]any)["anthropic"].(map[string]any)
	if auth["apiKey"] != "new-key" {
		t.Errorf("apiKey = %v, want new-key", auth["apiKey"])
	}
	if auth["region"] != "us" {
		t.Error("sibling key lost in merge")
	}
	if _, ok := cfg["gateway"]; !ok {
		t.Error("unrelated top-level key lost in merge")
	}
}

func TestStoreMergeReplacesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, nil)

	if err := os.WriteFile(s.Path("gamma"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := s.Merge("gamma", map[string]any{"tools": map[string]any{"profile": "minimal"}}); err != nil {
		t.Fatalf("Merge over corrupt file: %v", err)
	}

	tc, err := s.ReadTools("gamma")
	if err != nil {
		t.Fatalf("ReadTools: %v", err)
	}
	if tc.Profile != "minimal" {
		t.Errorf("profile = %q, want minimal", tc.Profile)
	}
}

func TestStorePath(t *testing.T) {
	s := NewStore("/tmp/x", nil)
	want := filepath.Join("/tmp/x", "openclaw-dev.json")
	if got := s.Path("dev"); got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}
}

func TestStripJSONComments(t *testing.T) {
	raw := []byte(`{
  /* block
     comment */
  "a": 1, // line comment
  "b": [1, 2,],
}`)
	got := stripJSONComments(raw)

	var v map[string]any
	if err := json.Unmarshal(got, &v); err != nil {
		t.Fatalf("stripped output not valid JSON: %v\n%s", err, got)
	}
	if v["a"] != float64(1) {
		t.Errorf("a = %v", v["a"])
	}
}
