package extract

import (
	"testing"

	"github.com/poiesic/infradocs/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func containerEntity(name string, data map[string]any) *core.RawEntity {
	return &core.RawEntity{
		Type:   core.EntityTypeContainer,
		System: "unraid",
		Name:   name,
		Data:   data,
	}
}

func findEdges(rels []core.Relationship, kind core.RelationKind) []string {
	var targets []string
	for _, r := range rels {
		if r.Kind == kind {
			targets = append(targets, r.TargetRef)
		}
	}
	return targets
}

func TestExtract_ContainerRedisScenario(t *testing.T) {
	entity := containerEntity("redis-1", map[string]any{
		"name":  "redis-1",
		"image": "redis:7",
		"labels": map[string]any{
			"depends_on": "db",
		},
	})

	props, rels, err := Extract(entity, entity.Data)
	require.NoError(t, err)

	assert.Equal(t, "redis:7", props["image"])
	assert.Equal(t, []string{"db"}, findEdges(rels, core.RelationDependsOn))
	assert.Equal(t, []string{"unraid"}, findEdges(rels, core.RelationRunsOn))
}

func TestExtract_NoCrossReferencesYieldsEmptySlice(t *testing.T) {
	entity := &core.RawEntity{
		Type:   core.EntityTypeService,
		System: "lab",
		Name:   "cron",
		Data:   map[string]any{"description": "scheduler"},
	}

	// runs_on to the collecting system is always present; strip it to check
	// the inference sources.
	props, rels, err := Extract(entity, entity.Data)
	require.NoError(t, err)
	require.NotNil(t, rels)
	assert.Equal(t, "scheduler", props["description"])
	assert.Empty(t, findEdges(rels, core.RelationDependsOn))
	assert.Empty(t, findEdges(rels, core.RelationConfigFiles))
}

func TestExtract_EnvVarReferences(t *testing.T) {
	entity := containerEntity("app", map[string]any{
		"image": "ghcr.io/acme/app:1.2",
		"environment": []any{
			"DATABASE_HOST=db.home.arpa:5432",
			"CACHE_URL=redis://redis-1:6379/0",
			"DEBUG=true",
			"DATA_DIR=/var/lib/app",
		},
	})

	props, rels, err := Extract(entity, entity.Data)
	require.NoError(t, err)

	assert.Equal(t, []string{"DATABASE_HOST", "CACHE_URL", "DEBUG", "DATA_DIR"}, props["environment_keys"])
	deps := findEdges(rels, core.RelationDependsOn)
	assert.ElementsMatch(t, []string{"db.home.arpa", "redis-1"}, deps)
}

func TestExtract_LabelPriorityBeatsEnv(t *testing.T) {
	// The same target asserted by a label rule and an env rule keeps the
	// label-derived kind.
	entity := containerEntity("web", map[string]any{
		"image": "nginx:1.27",
		"labels": map[string]any{
			"com.docker.compose.depends_on": "db",
		},
		"environment": []any{"DB_HOST=db"},
	})

	_, rels, err := Extract(entity, entity.Data)
	require.NoError(t, err)

	deps := findEdges(rels, core.RelationDependsOn)
	assert.Equal(t, []string{"db"}, deps, "edge must be deduplicated")
}

func TestExtract_NetworksAndVolumes(t *testing.T) {
	entity := containerEntity("grafana", map[string]any{
		"image":    "grafana/grafana:11.0.0",
		"networks": []any{"monitoring", "proxy"},
		"mounts": []any{
			map[string]any{"type": "volume", "source": "grafana-data", "destination": "/var/lib/grafana"},
			map[string]any{"type": "bind", "source": "/mnt/cfg", "destination": "/etc/grafana"},
		},
		"ports": map[string]any{"3000/tcp": []any{}},
	})

	props, rels, err := Extract(entity, entity.Data)
	require.NoError(t, err)

	assert.Equal(t, []string{"monitoring", "proxy"}, findEdges(rels, core.RelationNetworks))
	assert.Equal(t, []string{"grafana-data"}, findEdges(rels, core.RelationVolumes))
	assert.Equal(t, []string{"/etc/grafana"}, props["bind_mounts"])
	assert.Equal(t, []string{"3000/tcp"}, props["exposed_ports"])
}

func TestExtract_DeterministicOrder(t *testing.T) {
	data := map[string]any{
		"image":    "app:1",
		"networks": []any{"b-net", "a-net"},
		"labels": map[string]any{
			"com.docker.compose.depends_on": "svc2,svc1",
		},
	}
	entity := containerEntity("app", data)

	_, first, err := Extract(entity, data)
	require.NoError(t, err)
	_, second, err := Extract(entity, data)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExtract_Host(t *testing.T) {
	entity := &core.RawEntity{
		Type:   core.EntityTypeHost,
		System: "lab",
		Name:   "node01",
		Data: map[string]any{
			"system_overview": map[string]any{
				"hostname":     "node01",
				"os":           "Debian 12",
				"architecture": "x86_64",
				"kernel":       "6.8.0",
			},
			"hardware_profile": map[string]any{
				"cpu":    map[string]any{"model_name": "Ryzen 7 5800X", "cores": float64(8)},
				"memory": map[string]any{"total_gb": float64(64), "type": "DDR4"},
			},
			"network_configuration": map[string]any{
				"interfaces": map[string]any{"eth0": map[string]any{}, "br0": map[string]any{}},
			},
			"storage_configuration": map[string]any{
				"filesystems": map[string]any{"/dev/sda1": map[string]any{}},
			},
		},
	}

	props, rels, err := Extract(entity, entity.Data)
	require.NoError(t, err)

	assert.Equal(t, "Debian 12", props["os"])
	assert.Equal(t, 8, props["cpu_cores"])
	assert.Equal(t, float64(64), props["memory_total_gb"])
	assert.Equal(t, 2, props["network_interfaces"])
	assert.Equal(t, []string{"br0", "eth0"}, findEdges(rels, core.RelationNetworks))
	assert.Equal(t, []string{"/dev/sda1"}, findEdges(rels, core.RelationVolumes))
}

func TestExtract_ServiceUnitDependencies(t *testing.T) {
	entity := &core.RawEntity{
		Type:   core.EntityTypeService,
		System: "lab",
		Name:   "grafana-server",
		Data: map[string]any{
			"description":    "Grafana instance",
			"exec_start":     "/usr/sbin/grafana-server",
			"wants":          []any{"network-online.target"},
			"after":          []any{"postgresql.service"},
			"unit_file_path": "/lib/systemd/system/grafana-server.service",
		},
	}

	_, rels, err := Extract(entity, entity.Data)
	require.NoError(t, err)

	deps := findEdges(rels, core.RelationDependsOn)
	assert.ElementsMatch(t, []string{"network-online.target", "postgresql.service"}, deps)
	assert.Equal(t,
		[]string{"/lib/systemd/system/grafana-server.service"},
		findEdges(rels, core.RelationConfigFiles))
}

func TestExtract_Network(t *testing.T) {
	entity := &core.RawEntity{
		Type:   core.EntityTypeNetwork,
		System: "unraid",
		Name:   "monitoring",
		Data: map[string]any{
			"driver":     "bridge",
			"ipam":       map[string]any{"subnet": "172.20.0.0/16", "gateway": "172.20.0.1"},
			"containers": []any{"prometheus", "grafana"},
		},
	}

	props, rels, err := Extract(entity, entity.Data)
	require.NoError(t, err)

	assert.Equal(t, "bridge", props["driver"])
	assert.Equal(t, "172.20.0.0/16", props["subnet"])
	assert.ElementsMatch(t, []string{"prometheus", "grafana"},
		findEdges(rels, core.RelationProvidesTo))
}

func TestExtract_InvalidEntity(t *testing.T) {
	_, _, err := Extract(&core.RawEntity{Type: "vm", System: "s", Name: "n"}, nil)
	assert.ErrorIs(t, err, core.ErrInvalidEntity)
}
