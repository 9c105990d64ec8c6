// Package errors provides structured, actionable error messages for the
// resize CLI.
//
// Every failure the CLI reports is a ResizeError with a stable code that
// maps to:
//   - A short message describing the error
//   - A detailed explanation
//   - A hint on what to do next
//
// # Error Categories
//
//   - protocol: the server sent something that is not a status frame
//   - channel: the WebSocket could not be opened or broke down
//   - server: the server reported a failure or an unknown outcome
//   - config: resize.json or a flag is invalid
//   - cli: command usage errors
//
// # Usage
//
//	err := errors.New("E120").
//	    WithLocation("resize.json", 4, 17).
//	    WithSuggestion(`Durations are strings such as "30s"`)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E120: Invalid resize.json
//	//
//	//   resize.json:4:17
//	//
//	//      2 │   "server": "http://localhost:8080",
//	//      3 │   "channel": {
//	//   →  4 │     "firstFrameTimeout": 30
//	//        │                 ^
//	//      5 │   }
//	//      6 │ }
//	//
//	//   Hint: Durations are strings such as "30s"
package errors
