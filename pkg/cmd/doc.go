// Package cmd wires the stevedore CLI: command definitions, flag handling,
// and result reporting. Commands are provided to the root application
// through fx value groups; see Module.
package cmd
