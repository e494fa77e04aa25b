//go:build stagedebug

package partition

const debugChecks = true
