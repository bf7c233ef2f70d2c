package profiles

import "sort"

// ToolProfile is a named base tool set.
type ToolProfile struct {
	Label string
	Tools []string
}

// ToolProfiles are the named base profiles an instance config can reference.
var ToolProfiles = map[string]ToolProfile{
	"minimal":   {Label: "Minimal", Tools: []string{"session_status"}},
	"coding":    {Label: "Coding", Tools: []string{"read", "write", "edit", "apply_patch", "exec", "bash", "memory_search", "memory_get"}},
	"messaging": {Label: "Messaging", Tools: []string{"message_send", "session_status", "session_list"}},
	"full":      {Label: "Full Access", Tools: nil}, // nil means the whole catalog
}

// ToolGroups expand "group:*" references in allow/deny lists.
var ToolGroups = map[string][]string{
	"group:fs":       {"read", "write", "edit", "apply_patch"},
	"group:runtime":  {"exec", "bash", "process"},
	"group:sessions": {"session_status", "session_list", "session_reset"},
	"group:memory":   {"memory_search", "memory_get"},
}

// AllTools is the full tool catalog.
var AllTools = []string{
	"read", "write", "edit", "apply_patch",
	"exec", "bash", "process",
	"web_fetch", "web_search", "browser",
	"memory_search", "memory_get",
	"session_status", "session_list", "session_reset",
	"message_send", "elevated",
}

// ToolConfig is the tool-permission fragment of an instance config.
type ToolConfig struct {
	// Profile names the base ToolProfile, or "" for none.
	Profile string `json:"profile,omitempty"`

	// Allow adds tools (or group:* references) on top of the base profile.
	Allow []string `json:"allow,omitempty"`

	// Deny removes tools (or group:* references). Applied last; always wins.
	Deny []string `json:"deny,omitempty"`
}

// EffectiveTools computes the tool set an instance actually exposes.
//
// When none of profile/allow/deny are set the instance has full access. The
// base is the named profile's tool list (the whole catalog for "full"), allow
// entries are unioned in and deny entries subtracted last, so a tool present
// in both allow and deny stays denied. Group references expand to their
// member tools on both sides. The result is sorted for stable output.
func EffectiveTools(cfg ToolConfig) []string {
	if cfg.Profile == "" && len(cfg.Allow) == 0 && len(cfg.Deny) == 0 {
		out := make([]string, len(AllTools))
		copy(out, AllTools)
		sort.Strings(out)
		return out
	}

	allowed := make(map[string]struct{})

	if base, ok := ToolProfiles[cfg.Profile]; ok {
		tools := base.Tools
		if tools == nil {
			tools = AllTools
		}
		for _, t := range tools {
			allowed[t] = struct{}{}
		}
	}

	for _, entry := range cfg.Allow {
		for _, t := range expand(entry) {
			allowed[t] = struct{}{}
		}
	}
	for _, entry := range cfg.Deny {
		for _, t := range expand(entry) {
			delete(allowed, t)
		}
	}

	out := make([]string, 0, len(allowed))
	for t := range allowed {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// expand resolves a group reference to its member tools, or returns the entry
// itself when it is a plain tool name.
func expand(entry string) []string {
	if members, ok := ToolGroups[entry]; ok {
		return members
	}
	return []string{entry}
}
