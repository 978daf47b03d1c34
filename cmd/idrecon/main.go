// Package main provides the entry point for the idrecon CLI.
//
// idrecon correlates one identifying value (email, phone, name, username,
// or image) across public data sources and assembles the findings into
// confidence-scored entities.
//
// Usage:
//
//	idrecon scan <value>
//	idrecon serve
//
// See --help for all available options.
package main

// main is the entry point for idrecon.
func main() {
	Execute()
}
