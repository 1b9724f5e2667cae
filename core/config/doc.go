// Package config provides configuration management for the integrity monitor.
//
// It utilizes Viper for loading configuration from environment variables,
// a .env file and an optional integrity-monitor.yaml file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Monitor: roots, excludes, baseline path, algorithm and pool sizing
//   - Log: logging level and format
//   - Database: run history connection details
//   - Storage: S3/MinIO baseline mirror settings
//
// Defaults come from the `default` struct tags. Every key can be set from the
// environment by upper-casing it and replacing dots with underscores, e.g.
// MONITOR_ALGORITHM=sha512 or STORAGE_ENABLED=true.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Monitor.Baseline)
package config
