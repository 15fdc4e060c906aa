// Package domain defines core data models and interfaces shared across cipherline.
// It contains plain types (wire/state) and contracts (interfaces) only; the
// definitions live in the types and interfaces subpackages and are aliased here.
package domain
