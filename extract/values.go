package extract

import (
	"net/url"
	"sort"
	"strings"
)

// Collector records are loosely typed JSON; these helpers read them without
// panicking on absent or oddly shaped fields.

func getString(data map[string]any, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}

func getMap(data map[string]any, key string) map[string]any {
	if m, ok := data[key].(map[string]any); ok {
		return m
	}
	return nil
}

func getNumber(data map[string]any, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// stringList normalizes a field that may be a []any of strings, a single
// string, or a comma-separated string into a flat string slice.
func stringList(value any) []string {
	switch v := value.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case []string:
		return v
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if strings.TrimSpace(p) != "" {
				out = append(out, strings.TrimSpace(p))
			}
		}
		return out
	}
	return nil
}

// sortedKeys returns map keys in lexical order for deterministic output.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// envPairs normalizes container environment data. Docker reports a list of
// "KEY=value" strings; compose files may yield a map.
func envPairs(value any) (keys []string, vars map[string]string) {
	vars = make(map[string]string)

	switch env := value.(type) {
	case []any:
		for _, item := range env {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if k, v, found := strings.Cut(s, "="); found {
				keys = append(keys, k)
				vars[k] = v
			} else {
				keys = append(keys, s)
			}
		}
	case map[string]any:
		for _, k := range sortedKeys(env) {
			keys = append(keys, k)
			if s, ok := env[k].(string); ok {
				vars[k] = s
			}
		}
	}

	return keys, vars
}

// serviceRefsFromEnv scans environment variables for dependent-service
// references following the *_HOST / *_URL / *_ENDPOINT naming conventions.
// Keys are visited in lexical order so edge output stays stable.
func serviceRefsFromEnv(vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var refs []string
	seen := make(map[string]struct{})
	for _, key := range keys {
		upper := strings.ToUpper(key)
		if !strings.Contains(upper, "_HOST") &&
			!strings.Contains(upper, "_URL") &&
			!strings.Contains(upper, "_ENDPOINT") {
			continue
		}

		host := hostnameFrom(vars[key])
		if host == "" {
			continue
		}
		if _, dup := seen[host]; dup {
			continue
		}
		seen[host] = struct{}{}
		refs = append(refs, host)
	}
	return refs
}

// hostnameFrom extracts a hostname from a URL or connection string value.
// Filesystem paths and empty values yield "".
func hostnameFrom(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || strings.HasPrefix(value, "/") {
		return ""
	}

	if strings.Contains(value, "://") {
		u, err := url.Parse(value)
		if err != nil {
			return ""
		}
		return u.Hostname()
	}

	host, _, _ := strings.Cut(value, ":")
	if !looksLikeHostname(host) {
		return ""
	}
	return host
}

// looksLikeHostname rejects values that match the env-var naming conventions
// but carry ports, flags or numbers rather than a service reference.
func looksLikeHostname(s string) bool {
	if s == "" {
		return false
	}
	digitsOnly := true
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '.', r == '-', r == '_':
			digitsOnly = false
		default:
			return false
		}
	}
	return !digitsOnly
}
