// Package validation checks physical map values against the safety bounds of
// their MapDefinition.
//
// Bounds are inclusive. Validate is fail-fast and is what the session runs
// before every edit; ValidateAll collects every violation for display in the
// CLI and the interactive editor.
package validation
