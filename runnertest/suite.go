// Package runnertest provides a contract test suite for wslkit.Environment
// implementations. Every provider that feeds the command dispatcher is
// expected to pass it.
package runnertest

import (
	"context"
	"fmt"
	"testing"

	"github.com/ruffel/wslkit"
)

// Standard categories for grouping contracts.
const (
	CategoryCore        = "core"
	CategoryEnvironment = "environment"
	CategorySystem      = "system"
	CategoryErrors      = "errors"
)

// T is the minimal interface required for testify/assert and require.
type T interface {
	Errorf(format string, args ...any)
	FailNow()
	Skipf(format string, args ...any)
	Context() context.Context
	Name() string
}

// Factory builds a fresh environment for a single contract.
type Factory func() wslkit.Environment

// TestCase defines a single behavioral contract requirement.
type TestCase struct {
	Category    string
	Name        string
	Description string
	Prereq      func(t T, env wslkit.Environment) (ok bool, reason string)
	Run         func(t T, env wslkit.Environment)
}

// ID returns the stable contract identifier.
func (tc TestCase) ID() string {
	return fmt.Sprintf("%s/%s", tc.Category, tc.Name)
}

// AllContracts returns every contract in the suite.
func AllContracts() []TestCase {
	contracts := make([]TestCase, 0, 16)

	contracts = append(contracts, coreContracts()...)
	contracts = append(contracts, environmentContracts()...)
	contracts = append(contracts, systemContracts()...)
	contracts = append(contracts, errorContracts()...)

	return contracts
}

// Verify runs every contract against a fresh environment from newEnv.
func Verify(t *testing.T, newEnv Factory) {
	t.Helper()

	for _, tc := range AllContracts() {
		t.Run(tc.ID(), func(t *testing.T) {
			env := newEnv()

			t.Cleanup(func() { _ = env.Close() })

			if tc.Prereq != nil {
				if ok, reason := tc.Prereq(t, env); !ok {
					t.Skipf("prereq unmet: %s", reason)
				}
			}

			tc.Run(t, env)
		})
	}
}
