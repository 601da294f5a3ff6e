// Package commands defines the confidant CLI and wires dependencies for subcommands.
//
// Commands
//
//   - serve          Run the chat API server
//   - chat           Send one message and print the reply
//   - keygen         Generate an ephemeral or node keypair
//   - seal           Seal a chat request for a node and print the envelope
//   - open-request   Open an envelope with a node key (node side)
//   - open-response  Open a sealed reply with the recorded keys
//
// # Implementation
//
// The root command loads the YAML config, applies CONFIDANT_* environment
// overrides and then flags, and builds the logger before any subcommand
// runs. Subcommands that talk to the inference endpoint build an app.Wire.
package commands
