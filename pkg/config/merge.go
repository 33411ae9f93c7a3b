package config

import (
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
)

// MergeSettings merges collector settings from the secrets backend with the
// local file ones. The secrets backend wins on a key present in both; keys
// only present locally are kept unchanged.
func MergeSettings(fromSecrets, local map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(fromSecrets)+len(local))
	for k, v := range fromSecrets {
		merged[k] = v
	}
	for k, v := range local {
		if _, taken := fromSecrets[k]; !taken {
			merged[k] = v
		}
	}
	return merged
}

// MergePlugins keeps every secrets backend plugin and appends the local ones
// whose name the backend does not define. Names identify plugins: one name,
// one plugin instance.
func MergePlugins(fromSecrets, local []plugin.Raw) []plugin.Raw {
	merged := make([]plugin.Raw, 0, len(fromSecrets)+len(local))
	merged = append(merged, fromSecrets...)

	names := make(map[string]struct{}, len(fromSecrets))
	for _, p := range fromSecrets {
		names[plugin.RawName(p)] = struct{}{}
	}
	for _, p := range local {
		if _, taken := names[plugin.RawName(p)]; !taken {
			merged = append(merged, p)
		}
	}
	return merged
}
