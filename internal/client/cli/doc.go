// Package cli is the interactive SMART Health Link viewer.
//
// It wires configuration, the HTTP protocol client, the resolution state
// machine and the local history database, and offers a small REPL:
//
//   - open <link>  resolve a link, prompting for a passcode when needed
//   - history      list previously opened links
//   - clear        forget the history
//   - exit | quit  leave the program
//
// Decrypted files are written to the configured output directory. A link
// given on the command line is opened once without starting the REPL.
package cli
