// Package errors provides coded, actionable error messages for lockwatch.
//
// Every error the operator can act on (a bad config file, an unknown command
// name, an unreachable monitor) has a registered code that maps to a short
// message, a category and an optional hint.
//
// # Categories
//
//   - config: configuration file and flag problems
//   - protocol: wire protocol problems surfaced to the operator
//   - command: operator command problems
//   - cli: problems talking to a running monitor
//
// # Usage
//
//	err := errors.New("E104").
//	    WithDetail("port 70000 is out of range").
//	    WithSuggestion("Use a port between 1 and 65535")
//
//	fmt.Print(err.Format())
//	// ERROR E104: Invalid port
//	//
//	//   port 70000 is out of range
//	//
//	//   Hint: Use a port between 1 and 65535
package errors
