// Package cli provides the critique command-line interface.
//
// # Commands
//
// serve: Run the API and the health/metrics server
//
//	critique serve --config /etc/critique.yaml
//
// migrate: Apply pending schema migrations and exit
//
//	critique migrate
//
// createsuperuser: Create an administrator, or promote the existing account
// with the same username and email
//
//	critique createsuperuser --username root --email root@example.com
//
// # Configuration
//
// Every command reads CRITIQUE_* environment variables. With --config, a YAML
// file is loaded first and the environment overrides it.
package cli
