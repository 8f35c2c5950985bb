// Package history turns a session's stored log into the two shapes callers
// need: the ordered replay handed to the model as prior context, and the
// display-friendly view returned to clients.
package history
