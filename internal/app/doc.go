// Package app wires confidant's dependencies for the CLI and the server.
//
// Configuration is read from a YAML file (default ~/.confidant/config.yaml),
// then overridden by CONFIDANT_* environment variables, then by command
// flags. NewWire builds the key agreement and AEAD suites, the session key
// store for the configured backend, the inference client and the chat
// service, exposing them via the Wire struct.
package app
