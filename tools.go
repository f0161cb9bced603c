//go:build tools
// +build tools

// Package tools pins the code generators invoked through go generate
// (mockgen) so go.mod and go.sum track them.
package batepapo

import (
	_ "go.uber.org/mock/mockgen"
)
