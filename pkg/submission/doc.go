// Package submission implements the form submission lifecycle:
//
//	Idle --Submit--> Validating
//	Validating --invalid--> Idle (issues recorded, no external call)
//	Validating --valid--> Submitting
//	Submitting --Ok--> Succeeded (fields reset)
//	Submitting --Err--> Failed (fields kept)
//	Succeeded|Failed --Submit--> Validating
//
// A Controller owns one field.Set and one Boundary. Validation happens
// synchronously inside Submit before the boundary call, which is the only
// point where Submit blocks. Observers registered with Subscribe are told
// about every transition.
package submission
