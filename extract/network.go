package extract

import "github.com/poiesic/infradocs/core"

func extractNetwork(entity *core.RawEntity, data map[string]any, edges *edgeSet) core.Properties {
	props := core.Properties{}

	setIfNotEmpty(props, "name", entity.Name)
	setIfNotEmpty(props, "driver", getString(data, "driver"))
	setIfNotEmpty(props, "scope", getString(data, "scope"))

	if ipam := getMap(data, "ipam"); ipam != nil {
		setIfNotEmpty(props, "subnet", getString(ipam, "subnet"))
		setIfNotEmpty(props, "gateway", getString(ipam, "gateway"))
	}

	edges.add(core.RelationRunsOn, entity.System, prioLabels)

	// A network provides connectivity to its attached containers.
	for _, name := range stringList(data["containers"]) {
		edges.add(core.RelationProvidesTo, name, prioNetworks)
	}

	addCollectorRefs(data, edges)

	return props
}
