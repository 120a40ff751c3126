// Package vars implements the session-scoped variable store that carries values
// extracted from one response into later requests.
package vars
