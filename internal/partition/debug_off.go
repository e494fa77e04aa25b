//go:build !stagedebug

package partition

const debugChecks = false
