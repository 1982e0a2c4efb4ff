//go:build property

package modules

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	siteerrors "github.com/conneroisu/strata/internal/errors"
)

func cycleOf(err error) []string {
	var se *siteerrors.SiteError
	if !errors.As(err, &se) {
		return nil
	}

	return se.Cycle
}

func TestResolverProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(8642)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	// Module i may only depend on modules j < i, so the graph is acyclic.
	// Registration happens in reverse to make the order non-trivial.
	properties.Property("acyclic graphs place modules after their dependencies", prop.ForAll(
		func(n int, edges []int) bool {
			deps := make([][]string, n)
			for k, e := range edges {
				i := k%n + 1
				if i >= n {
					continue
				}
				j := e % i
				deps[i] = append(deps[i], fmt.Sprintf("m%d", j))
			}

			r := NewRegistry(nil)
			for i := n - 1; i >= 0; i-- {
				if err := r.Register(New(fmt.Sprintf("m%d", i), deps[i], nil)); err != nil {
					return false
				}
			}

			order, err := r.Resolve()
			if err != nil || len(order) != n {
				return false
			}

			names := Names(order)
			for i := range n {
				at := slices.Index(names, fmt.Sprintf("m%d", i))
				for _, dep := range deps[i] {
					if slices.Index(names, dep) >= at {
						return false
					}
				}
			}

			return true
		},
		gen.IntRange(1, 12),
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.Property("a ring reports exactly its members", prop.ForAll(
		func(n int) bool {
			r := NewRegistry(nil)
			for i := range n {
				dep := fmt.Sprintf("m%d", (i+n-1)%n)
				if err := r.Register(New(fmt.Sprintf("m%d", i), []string{dep}, nil)); err != nil {
					return false
				}
			}

			_, err := r.Resolve()
			if err == nil {
				return false
			}

			want := make([]string, 0, n+1)
			for i := range n {
				want = append(want, fmt.Sprintf("m%d", i))
			}
			want = append(want, "m0")

			return slices.Equal(cycleOf(err), want)
		},
		gen.IntRange(1, 12),
	))

	properties.TestingRun(t)
}
