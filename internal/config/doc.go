// Package config loads and validates the sync tool's configuration.
//
// Configuration is layered, later layers overriding earlier ones:
//
//  1. built-in defaults
//  2. a YAML settings file (endpoints, toplevel name, log level, ledger)
//  3. a dotenv secrets file (credentials, URLs, dry-run flag)
//  4. HALOSYNC_-prefixed environment variables
//
// Secrets never belong in the settings file; the split mirrors how the
// credentials are provisioned separately from the endpoint layout.
package config
