// Package config handles configuration loading and validation from
// environment variables and an optional config file. It provides
// type-safe access to the engine's tuning knobs while keeping
// configuration details separate from the components that consume them.
package config
