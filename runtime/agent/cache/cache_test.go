package cache

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestKeyForDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("equal inputs produce equal keys", prop.ForAll(
		func(tenant, text string) bool {
			return KeyFor(tenant, text) == KeyFor(tenant, text)
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.Property("distinct tenants produce distinct keys", prop.ForAll(
		func(tenant, text string) bool {
			return KeyFor(tenant, text) != KeyFor(tenant+"-other", text)
		},
		gen.AlphaString(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestKeyForNormalizesText(t *testing.T) {
	base := KeyFor("shop-1.myshopify.com", "what are my total sales?")
	require.Equal(t, base, KeyFor("shop-1.myshopify.com", "What  are my TOTAL sales?"))
	require.Equal(t, base, KeyFor("shop-1.myshopify.com", "  what are my total sales?\n"))
	require.NotEqual(t, base, KeyFor("shop-1.myshopify.com", "what are my total sales"))
}

func TestKeyForTenantSeparation(t *testing.T) {
	// Tenant and text are hashed as separate fields, so shuffling the
	// boundary between them must not collide.
	require.NotEqual(t, KeyFor("ab", "c"), KeyFor("a", "bc"))
}
