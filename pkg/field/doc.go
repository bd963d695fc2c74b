// Package field holds the typed form values a submission controller works on.
// A Set keeps fields in declaration order together with their current values
// and the latest validation errors. Validation uses the same rule vocabulary
// the renderers expose (min/max, minLength/maxLength, pattern) plus select
// option membership, number parsing, and an optional custom Validator. Rules
// are evaluated only when a form is submitted; edits clear the stale error for
// the edited field and nothing else.
package field
