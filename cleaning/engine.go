// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package cleaning

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/poiesic/infradocs/core"
)

// RuleSet is a compiled set of field removal rules for one entity type.
//
// Three rule forms are recognized:
//   - bare field names ("status") match that key at any depth
//   - dotted paths ("memory.available", "disk.*.usage_percent") match the full
//     path from the entity root, with '*' matching exactly one segment
//   - name patterns are regular expressions applied to individual field names
//     ("_at$", "^last_")
//
// Rules are additive and never depend on entity content.
type RuleSet struct {
	names    map[string]struct{}
	paths    [][]string
	patterns []*regexp.Regexp
}

// NewRuleSet compiles removal rules from field paths. Name patterns from
// DefaultRules can be attached with WithNamePatterns. Returns
// ErrMalformedRule for an empty path or an empty path segment.
func NewRuleSet(fieldPaths []string) (*RuleSet, error) {
	rs := &RuleSet{names: make(map[string]struct{})}

	for _, p := range fieldPaths {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			return nil, fmt.Errorf("%w: empty field path", ErrMalformedRule)
		}

		if !strings.Contains(p, ".") {
			rs.names[p] = struct{}{}
			continue
		}

		segments := strings.Split(p, ".")
		for _, seg := range segments {
			if seg == "" {
				return nil, fmt.Errorf("%w: %q has an empty segment", ErrMalformedRule, p)
			}
		}
		rs.paths = append(rs.paths, segments)
	}

	return rs, nil
}

// WithNamePatterns attaches field-name regular expressions to the rule set.
func (rs *RuleSet) WithNamePatterns(patterns []string) (*RuleSet, error) {
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %q: %v", ErrMalformedRule, p, err)
		}
		rs.patterns = append(rs.patterns, re)
	}
	return rs, nil
}

// Merge returns a rule set containing the rules of both operands.
func (rs *RuleSet) Merge(other *RuleSet) *RuleSet {
	merged := &RuleSet{names: make(map[string]struct{})}
	for name := range rs.names {
		merged.names[name] = struct{}{}
	}
	for name := range other.names {
		merged.names[name] = struct{}{}
	}
	merged.paths = append(append([][]string{}, rs.paths...), other.paths...)
	merged.patterns = append(append([]*regexp.Regexp{}, rs.patterns...), other.patterns...)
	return merged
}

// Clean returns a copy of data with all fields matching the rule set removed.
// Absent paths are a silent no-op. The input map is never mutated, so the
// same raw entity can be cleaned under different rule sets without
// re-collection.
func Clean(data map[string]any, rules *RuleSet) map[string]any {
	cleaned, _ := cleanValue(data, rules, nil)
	return cleaned.(map[string]any)
}

func cleanValue(value any, rules *RuleSet, path []string) (any, bool) {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			childPath := append(append([]string{}, path...), strings.ToLower(key))
			if rules.matches(key, childPath) {
				continue
			}
			cleaned, _ := cleanValue(child, rules, childPath)
			out[key] = cleaned
		}
		return out, true
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i], _ = cleanValue(item, rules, path)
		}
		return out, true
	default:
		return value, false
	}
}

func (rs *RuleSet) matches(fieldName string, path []string) bool {
	lower := strings.ToLower(fieldName)

	if _, ok := rs.names[lower]; ok {
		return true
	}

	for _, rulePath := range rs.paths {
		if pathMatches(rulePath, path) {
			return true
		}
	}

	for _, re := range rs.patterns {
		if re.MatchString(lower) {
			return true
		}
	}

	return false
}

func pathMatches(rulePath, path []string) bool {
	if len(rulePath) != len(path) {
		return false
	}
	for i, seg := range rulePath {
		if seg != "*" && seg != path[i] {
			return false
		}
	}
	return true
}

// DefaultRules returns the built-in volatile-field rules for an entity type.
// These cover the runtime state every collector mixes into its records:
// timestamps, status, resource usage, process identifiers, and log noise.
func DefaultRules(entityType core.EntityType) *RuleSet {
	fields := append([]string{}, defaultVolatileFields...)
	fields = append(fields, entityVolatileFields[entityType]...)

	rs, err := NewRuleSet(fields)
	if err != nil {
		// The built-in tables contain no malformed paths.
		panic(err)
	}
	rs, err = rs.WithNamePatterns(volatileNamePatterns)
	if err != nil {
		panic(err)
	}
	return rs
}

var defaultVolatileFields = []string{
	"timestamps", "created_at", "updated_at", "last_seen", "timestamp",
	"status", "state", "running", "stopped", "health", "uptime",
	"pid", "process_id", "memory_usage", "cpu_usage", "disk_usage",
	"logs", "events", "metrics", "stats", "statistics",
}

var entityVolatileFields = map[core.EntityType][]string{
	core.EntityTypeContainer: {},
	core.EntityTypeHost: {
		"load_average", "memory.available", "memory.used", "memory.free",
		"cpu.usage_percent", "disk.*.usage_percent", "disk.*.available",
		"network.*.bytes_sent", "network.*.bytes_recv", "network.*.packets_sent",
		"process_list", "active_connections", "logged_in_users",
		"system_metrics", "performance_counters", "temperature_sensors",
	},
	core.EntityTypeService: {
		"active", "enabled", "loaded", "main_pid", "control_pid",
		"memory_current", "cpu_usage_ns", "last_trigger", "next_elapse",
		"unit_file_state", "sub_state", "load_state", "active_state",
		"result", "exec_main_start_timestamp", "active_enter_timestamp",
	},
	core.EntityTypeNetwork: {
		"attached_container_ids", "packet_counters",
	},
}

var volatileNamePatterns = []string{
	"_at$", "_timestamp$", "_time$",
	"^last_", "^current_",
	"_usage$", "_percent$", "_bytes$",
}
