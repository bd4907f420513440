// Package config resolves server settings: HTTP timeouts, rate limiting,
// logging, the default pricing method and solver limits. Sources apply in
// order defaults, environment, YAML file, CLI flags, each overriding the last.
package config
