// Package config loads and validates the gridosc daemon configuration.
//
// Values are resolved in this order, later sources winning:
//  1. Built-in defaults
//  2. The YAML file
//  3. GRIDOSC_* environment variables
//
// Secrets (MQTT password, InfluxDB token) should come from the environment
// rather than the file.
//
// Usage:
//
//	cfg, err := config.LoadOptional("/etc/gridosc/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Store.Backend)
//
// Per-device settings (OSC prefix, destination, rotation) are not part of
// this file; they live in the device configuration store.
package config
