// Package config defines configuration structures and defaults for idrecon.
//
// Configuration flows from three places, in increasing precedence:
//  1. Compiled-in defaults (NewConfig)
//  2. The .idrecon YAML file (scanner catalog overrides and tunables)
//  3. CLI flags (cmd package)
//
// Design decision: All tunables of the aggregation engine (merge threshold,
// breaker window, score decay) live here as configuration rather than as
// constants inside the algorithm packages. The exact numeric values are
// operating parameters, not contracts, and operators need to adjust them
// without rebuilding.
package config
