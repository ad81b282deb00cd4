// Package commands defines the gatectl operator CLI.
//
// Commands
//
//   - evaluate      Evaluate an evidence file against a stage gate
//   - criteria      Print the default gate criteria
//   - migrate       Apply database migrations
//   - reap-orphans  Fail analysis runs abandoned by a stopped server
//
// Output is JSON by default; pass --output yaml for YAML.
package commands
