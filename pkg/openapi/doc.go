// Package openapi describes the form host's HTTP surface as an OpenAPI 3
// document. Each form definition contributes a request schema derived from
// its fields, so API clients see the same required list, enums, bounds and
// patterns the field model enforces.
package openapi
