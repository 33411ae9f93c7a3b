// Package config loads the collector configuration.
//
// # File layout
//
//	platform_host_url: !ENV ${PLATFORM_HOST_URL}
//	token: !ENV ${PLATFORM_TOKEN}
//	default_pulling_interval: 10   # minutes; omit to run once and exit
//	chunk_size: 250
//	secrets_backend:               # optional
//	  provider: AWSSystemsManagerParameterStore
//	  region_name: eu-central-1
//	plugins:
//	  - type: postgresql
//	    name: sales_db
//	    host: db.local
//	    password: !ENV ${PG_PASSWORD}
//
// String scalars may reference environment variables as ${VAR}, with or
// without the !ENV tag. A variable that is not set fails the load.
//
// # Merge rules
//
// When secrets_backend is present, settings and plugins are also read from
// the backend:
//
//   - a setting defined by both sources takes the backend value
//   - local plugins are appended unless the backend defines one with the same name
//
// Every plugin is then decoded against the schema registered for its type
// in a plugin.Registry, and settings are decoded with their defaults. Any
// failure is reported as one *errors.LoadConfigError.
package config
