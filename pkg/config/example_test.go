package config_test

import (
	"fmt"

	"github.com/ajitpratap0/oddcollector/pkg/config"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
)

// ExampleMergeSettings shows that the secrets backend wins on collisions.
func ExampleMergeSettings() {
	merged := config.MergeSettings(
		map[string]interface{}{"token": "from-secrets"},
		map[string]interface{}{"token": "local", "chunk_size": 100},
	)

	fmt.Println(merged["token"], merged["chunk_size"])

	// Output:
	// from-secrets 100
}

// ExampleMergePlugins shows that names decide which local plugins survive.
func ExampleMergePlugins() {
	merged := config.MergePlugins(
		[]plugin.Raw{{"type": "postgresql", "name": "pg", "host": "secret-host"}},
		[]plugin.Raw{
			{"type": "postgresql", "name": "pg", "host": "local-host"},
			{"type": "kafka", "name": "events"},
		},
	)

	for _, p := range merged {
		fmt.Println(p["name"], p["type"])
	}

	// Output:
	// pg postgresql
	// events kafka
}

// ExampleDecodeSettings shows the defaults applied to missing settings.
func ExampleDecodeSettings() {
	cfg, err := config.DecodeSettings(map[string]interface{}{
		"platform_host_url": "http://odd-platform:8080",
		"token":             "secret",
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(cfg.ChunkSize, cfg.MaxInstances, cfg.ConnectionTimeout(), cfg.VerifySSL, cfg.Polling())

	// Output:
	// 250 1 5m0s true false
}
