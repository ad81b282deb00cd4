// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (project.go, evidence.go, analysis.go, auth.go, ...) hold
// shared types and the ports implemented by adapters. No implementation code.
package domain
