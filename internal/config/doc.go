// Package config provides configuration management for the ringclient CLI.
//
// Configuration is read from a single directory, ~/.config/ringclient by
// default, which users can change with the --config-path flag.
//
// # Sources
//
// Values are layered, later sources winning:
//
//  1. Built-in defaults (DefaultConfig)
//  2. config.yaml in the configuration directory
//  3. .env files (the configuration directory, then the working directory),
//     loaded into the process environment without replacing variables that
//     are already set
//  4. RING_* environment variables
//
// # Example config.yaml
//
//	displayName: Home Automation
//	os: ios
//	log:
//	  level: debug
//	  format: json
//	tokenStore:
//	  backend: redis
//	  redis:
//	    addr: localhost:6379
//	    key: ringclient:refresh-token
//	    ttl: 720h
//	listen:
//	  reconnect: true
//	  template: '{{ .Kind }} {{ .Body | toJson }}'
//
// # System ID
//
// Ring identifies a client installation by a hardware id derived from a
// system id. When none is configured, LoadConfig generates one and stores it
// in the configuration directory so that it survives restarts.
//
// # Watching
//
// Watcher reloads the configuration when config.yaml changes and reports the
// result through a callback. The listen command uses it to change the log
// level of a running process.
package config
