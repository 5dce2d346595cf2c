// Package config provides configuration management for the rulekit worker.
//
// Configuration is loaded from environment variables and validated on startup.
// A .env file in the working directory, when present, seeds variables that are
// not already set. All configuration options have sensible defaults for development.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg)
package config
