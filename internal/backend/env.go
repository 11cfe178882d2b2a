package backend

import (
	"os"
	"strings"
)

// buildEnv returns base with PATH prefixed by binDir and PYTHONPATH set to
// moduleDir. Existing keys are replaced in place; everything else is kept.
func buildEnv(base []string, binDir, moduleDir string) []string {
	path := binDir
	if existing := lookupEnv(base, "PATH"); existing != "" {
		path = binDir + string(os.PathListSeparator) + existing
	}
	return overrideEnv(base, map[string]string{
		"PATH":       path,
		"PYTHONPATH": moduleDir,
	})
}

func lookupEnv(env []string, key string) string {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return env[i][len(prefix):]
		}
	}
	return ""
}

func overrideEnv(base []string, overrides map[string]string) []string {
	out := make([]string, 0, len(base)+len(overrides))
	seen := make(map[string]bool, len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if v, ok := overrides[key]; ok {
			if seen[key] {
				continue // drop duplicates of an overridden key
			}
			seen[key] = true
			out = append(out, key+"="+v)
			continue
		}
		out = append(out, kv)
	}
	for key, v := range overrides {
		if !seen[key] {
			out = append(out, key+"="+v)
		}
	}
	return out
}
