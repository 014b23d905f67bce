// Package config loads and validates ldatranslate configuration.
//
// Configuration comes from a YAML file decoded over Default, with ${VAR}
// references expanded from the environment, followed by LDATRANSLATE_*
// environment overrides:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Validation collects every problem into a single ValidationError.
package config
