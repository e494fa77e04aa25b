//go:build stagedebug

package batch

const debugChecks = true
