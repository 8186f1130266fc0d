// Package commands implements the lendctl operator CLI.
//
//	lendctl loan create <member-id> <book-id> --due YYYY-MM-DD [--start YYYY-MM-DD]
//	lendctl loan return <loan-id>
//	lendctl loan get <loan-id>
//	lendctl loan list [--member <id> | --status ON_LOAN|RETURNED|OVERDUE]
//	lendctl audit
//
// Loan commands talk to the circulation service over HTTP. The audit reads
// the lending database directly and asks the catalog for availability.
package commands
