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


package extract

import (
	"strings"

	"github.com/poiesic/infradocs/core"
)

// Orchestration label keys carrying dependency declarations.
const (
	labelComposeProject   = "com.docker.compose.project"
	labelComposeDependsOn = "com.docker.compose.depends_on"
	labelDependsOn        = "depends_on"
)

func extractContainer(entity *core.RawEntity, data map[string]any, edges *edgeSet) core.Properties {
	props := core.Properties{}

	setIfNotEmpty(props, "name", entity.Name)
	setIfNotEmpty(props, "image", getString(data, "image"))
	setIfNotEmpty(props, "command", getString(data, "command"))
	setIfNotEmpty(props, "working_dir", getString(data, "working_dir"))
	setIfNotEmpty(props, "user", getString(data, "user"))
	setIfNotEmpty(props, "hostname", getString(data, "hostname"))
	setIfNotEmpty(props, "network_mode", getString(data, "network_mode"))

	// The container always runs on the system it was collected from.
	edges.add(core.RelationRunsOn, entity.System, prioLabels)

	// Priority 1: orchestration labels and annotations.
	if labels := getMap(data, "labels"); len(labels) > 0 {
		labelStrings := make(map[string]string, len(labels))
		for _, k := range sortedKeys(labels) {
			if s, ok := labels[k].(string); ok {
				labelStrings[k] = s
			}
		}
		props["labels"] = labelStrings

		if project := labelStrings[labelComposeProject]; project != "" {
			props["compose_project"] = project
		}
		for _, dep := range stringList(labelStrings[labelComposeDependsOn]) {
			edges.add(core.RelationDependsOn, dep, prioLabels)
		}
		for _, dep := range stringList(labelStrings[labelDependsOn]) {
			edges.add(core.RelationDependsOn, dep, prioLabels)
		}
		for _, k := range sortedKeys(labels) {
			lower := strings.ToLower(k)
			if strings.Contains(lower, "traefik") && strings.Contains(lower, "backend") {
				if s, ok := labels[k].(string); ok {
					edges.add(core.RelationDependsOn, s, prioLabels)
				}
			}
		}
	}

	// Priority 2: environment variable references.
	if envKeys, envVars := envPairs(data["environment"]); len(envKeys) > 0 {
		props["environment_keys"] = envKeys
		for _, ref := range serviceRefsFromEnv(envVars) {
			edges.add(core.RelationDependsOn, ref, prioEnvRefs)
		}
	}

	// Priority 3: shared network membership.
	switch networks := data["networks"].(type) {
	case []any:
		for _, name := range stringList(networks) {
			edges.add(core.RelationNetworks, name, prioNetworks)
		}
	case map[string]any:
		for _, name := range sortedKeys(networks) {
			edges.add(core.RelationNetworks, name, prioNetworks)
		}
	}

	// Priority 4: mounts. Bind mounts are configuration properties; named
	// volumes are shared resources and become edges.
	if mounts, ok := data["mounts"].([]any); ok {
		var bindMounts []string
		for _, m := range mounts {
			mount, ok := m.(map[string]any)
			if !ok {
				continue
			}
			switch getString(mount, "type") {
			case "bind":
				if dest := getString(mount, "destination"); dest != "" {
					bindMounts = append(bindMounts, dest)
				}
			case "volume":
				if src := getString(mount, "source"); src != "" {
					edges.add(core.RelationVolumes, src, prioVolumes)
				}
			}
		}
		if len(bindMounts) > 0 {
			props["bind_mounts"] = bindMounts
		}
	}

	// Port mappings are configuration, not runtime state.
	if ports := getMap(data, "ports"); len(ports) > 0 {
		props["exposed_ports"] = sortedKeys(ports)
	}

	// Priority 5: explicit collector-declared cross references.
	addCollectorRefs(data, edges)

	return props
}
