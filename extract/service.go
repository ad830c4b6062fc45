package extract

import "github.com/poiesic/infradocs/core"

func extractService(entity *core.RawEntity, data map[string]any, edges *edgeSet) core.Properties {
	props := core.Properties{}

	setIfNotEmpty(props, "name", entity.Name)
	setIfNotEmpty(props, "unit_type", getString(data, "type"))
	setIfNotEmpty(props, "description", getString(data, "description"))
	setIfNotEmpty(props, "exec_start", getString(data, "exec_start"))

	edges.add(core.RelationRunsOn, entity.System, prioLabels)

	// Unit dependency directives all map to depends_on.
	for _, key := range []string{"wants", "requires", "after"} {
		for _, dep := range stringList(data[key]) {
			edges.add(core.RelationDependsOn, dep, prioLabels)
		}
	}

	if unitPath := getString(data, "unit_file_path"); unitPath != "" {
		edges.add(core.RelationConfigFiles, unitPath, prioCollector)
	}

	if envKeys, envVars := envPairs(data["environment"]); len(envKeys) > 0 {
		props["environment_keys"] = envKeys
		for _, ref := range serviceRefsFromEnv(envVars) {
			edges.add(core.RelationDependsOn, ref, prioEnvRefs)
		}
	}

	addCollectorRefs(data, edges)

	return props
}
