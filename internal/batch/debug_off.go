//go:build !stagedebug

package batch

const debugChecks = false
