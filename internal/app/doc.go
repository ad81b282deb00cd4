// Package app provides the application service layer.
//
// Orchestrates use cases: gate evaluation, evidence CRUD, onboarding
// conversations, foreground and background analyses, diagnostics.
// Sits between HTTP handlers and domain repositories. Depends on domain interfaces, not concrete implementations.
package app
