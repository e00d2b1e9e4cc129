// Package primitives defines graph blueprints: the declarative form of a
// state graph that is loaded from YAML or TOML files and built into
// transitions for a botix registry.
//
// A GraphConfig lists named states with their speed layout and hooks, and
// transitions between them by state name. Validation checks names, kinds and
// references; Build resolves hook and breaker names and allocates identities.
package primitives
