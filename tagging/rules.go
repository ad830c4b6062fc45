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


package tagging

import (
	"sort"
	"strings"

	"github.com/poiesic/infradocs/core"
)

// RuleTagger assigns discovery tags by keyword matching over entity
// properties and a known service-name vocabulary. It is fully deterministic
// (same input, same tags) and always yields at least the generic category
// tag for the entity type, which makes it safe as the guaranteed fallback
// when the LLM backend is disabled, fails, or times out.
type RuleTagger struct{}

// NewRuleTagger creates a deterministic rule-based tagger.
func NewRuleTagger() *RuleTagger {
	return &RuleTagger{}
}

// Tags derives the tag set for a single entity. The result is sorted,
// lowercase, unique and never empty.
func (rt *RuleTagger) Tags(req Request) []string {
	tags := append([]string{}, genericTags[req.EntityType]...)

	tech := technologyTag(req.Properties)
	if tech != "" {
		tags = append(tags, tech)
	}

	haystack := strings.ToLower(propertyText(req.Properties))
	for _, entry := range vocabulary {
		if strings.Contains(haystack, entry.keyword) {
			tags = append(tags, entry.tags...)
		}
	}

	return NormalizeTags(tags)
}

// NormalizeTags lowercases, trims, de-duplicates and sorts a tag list,
// dropping empties and the literal "none" the backend uses for absent
// answers.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || tag == "none" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// technologyTag derives a tag from the image or name property, stripping
// registry path and version tag.
func technologyTag(props core.Properties) string {
	image, _ := props["image"].(string)
	if image == "" {
		if name, ok := props["name"].(string); ok {
			return strings.ToLower(name)
		}
		return ""
	}

	base := image
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	base, _, _ = strings.Cut(base, ":")
	return strings.ToLower(base)
}

// propertyText renders the searchable properties into one string for
// keyword matching, in a fixed field order.
func propertyText(props core.Properties) string {
	var parts []string
	for _, key := range []string{"name", "image", "command", "description", "exec_start", "unit_type", "driver"} {
		if s, ok := props[key].(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

var genericTags = map[core.EntityType][]string{
	core.EntityTypeContainer: {"docker", "container", "service"},
	core.EntityTypeHost:      {"host", "infrastructure"},
	core.EntityTypeService:   {"service", "systemd"},
	core.EntityTypeNetwork:   {"network", "infrastructure"},
}

// vocabulary maps well-known image and service name fragments to semantic
// tags. Evaluated in order; entries are additive.
var vocabulary = []struct {
	keyword string
	tags    []string
}{
	{"redis", []string{"caching", "database"}},
	{"memcached", []string{"caching"}},
	{"postgres", []string{"database", "storage"}},
	{"mysql", []string{"database", "storage"}},
	{"mariadb", []string{"database", "storage"}},
	{"mongo", []string{"database", "storage"}},
	{"influx", []string{"database", "time-series"}},
	{"nginx", []string{"proxy", "web-server"}},
	{"traefik", []string{"proxy", "routing"}},
	{"haproxy", []string{"proxy", "load-balancing"}},
	{"prometheus", []string{"monitoring", "metrics"}},
	{"grafana", []string{"monitoring", "metrics"}},
	{"cadvisor", []string{"monitoring", "metrics"}},
	{"exporter", []string{"monitoring", "metrics"}},
	{"mosquitto", []string{"messaging", "mqtt"}},
	{"mqtt", []string{"messaging", "mqtt"}},
	{"rabbitmq", []string{"messaging", "queue"}},
	{"gitea", []string{"git", "version-control"}},
	{"registry", []string{"registry", "images"}},
	{"home-assistant", []string{"home-automation"}},
	{"zigbee", []string{"home-automation", "iot"}},
	{"esphome", []string{"home-automation", "iot"}},
	{"paperless", []string{"documents"}},
	{"authentik", []string{"authentication", "sso"}},
	{"fail2ban", []string{"security"}},
	{"watchtower", []string{"updates", "automation"}},
	{"backup", []string{"backup"}},
	{"dns", []string{"dns", "networking"}},
	{"pihole", []string{"dns", "ad-blocking"}},
}
