package extract

import "github.com/poiesic/infradocs/core"

func extractHost(entity *core.RawEntity, data map[string]any, edges *edgeSet) core.Properties {
	props := core.Properties{}

	setIfNotEmpty(props, "hostname", entity.Name)

	if overview := getMap(data, "system_overview"); overview != nil {
		setIfNotEmpty(props, "hostname", getString(overview, "hostname"))
		setIfNotEmpty(props, "os", getString(overview, "os"))
		setIfNotEmpty(props, "architecture", getString(overview, "architecture"))
		setIfNotEmpty(props, "kernel", getString(overview, "kernel"))
	}

	// Static hardware specs, never current usage.
	if hardware := getMap(data, "hardware_profile"); hardware != nil {
		if cpu := getMap(hardware, "cpu"); cpu != nil {
			setIfNotEmpty(props, "cpu_model", getString(cpu, "model_name"))
			if cores, ok := getNumber(cpu, "cores"); ok {
				props["cpu_cores"] = int(cores)
			}
		}
		if memory := getMap(hardware, "memory"); memory != nil {
			if total, ok := getNumber(memory, "total_gb"); ok {
				props["memory_total_gb"] = total
			}
			setIfNotEmpty(props, "memory_type", getString(memory, "type"))
		}
	}

	if network := getMap(data, "network_configuration"); network != nil {
		if interfaces := getMap(network, "interfaces"); len(interfaces) > 0 {
			props["network_interfaces"] = len(interfaces)
			for _, name := range sortedKeys(interfaces) {
				edges.add(core.RelationNetworks, name, prioNetworks)
			}
		}
	}

	if storage := getMap(data, "storage_configuration"); storage != nil {
		if filesystems := getMap(storage, "filesystems"); len(filesystems) > 0 {
			props["storage_devices"] = len(filesystems)
			for _, name := range sortedKeys(filesystems) {
				edges.add(core.RelationVolumes, name, prioVolumes)
			}
		}
	}

	addCollectorRefs(data, edges)

	return props
}
