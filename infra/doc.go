// Package infra contains technical adapters: metrics exporters, run stores,
// error reporting and the zerolog logger. These packages depend only on the
// interfaces defined in the core packages and on config.
package infra
