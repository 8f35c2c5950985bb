// Package tools provides the file-system functions the model may call and a
// registry that declares and executes them by name.
//
// Every tool returns a Result: either a value or a *ToolError with a
// machine-readable Kind. Failures are reported back to the model as data
// rather than aborting the request.
package tools
