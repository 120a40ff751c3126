// Package extract resolves path expressions against response bodies and stores
// the named results for later requests to reference.
package extract
