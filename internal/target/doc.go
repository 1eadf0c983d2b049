// Package target resolves deployment target specifications ("[host]:path")
// and application specifications ("app" or "app:version").
package target
