package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogResolve(t *testing.T) {
	catalog := NewCatalog(nil)

	t.Run("exact builtin match on challenge type", func(t *testing.T) {
		rs := catalog.Resolve("prime_phase_1", "")
		assert.Equal(t, "prime_phase_1", rs.Name)
	})

	t.Run("mt5 group path separators normalize", func(t *testing.T) {
		rs := catalog.Resolve("", `demo\Prime\Phase-1`)
		assert.Equal(t, "prime_phase_1", rs.Name)
	})

	t.Run("substring classification falls back by tier", func(t *testing.T) {
		rs := catalog.Resolve("real_prime_funded_std", "")
		assert.Equal(t, "prime_funded", rs.Name)
	})

	t.Run("evaluation counts as 1 step", func(t *testing.T) {
		rs := catalog.Resolve("lite evaluation accounts", "")
		assert.Equal(t, "lite_1_step", rs.Name)
	})

	t.Run("brand defaults to lite when unnamed", func(t *testing.T) {
		rs := catalog.Resolve("some_instant_group", "")
		assert.Equal(t, "lite_instant", rs.Name)
	})

	t.Run("unknown key degrades to the default, never fails", func(t *testing.T) {
		rs := catalog.Resolve("totally-unknown", "also unknown")
		assert.Equal(t, "default", rs.Name)
		assert.Equal(t, 5.0, rs.DailyDrawdownPercent)
		assert.Equal(t, 10.0, rs.MaxDrawdownPercent)
		assert.False(t, rs.HasProfitTarget())
	})

	t.Run("empty keys degrade to the default", func(t *testing.T) {
		rs := catalog.Resolve("", "")
		assert.Equal(t, "default", rs.Name)
	})
}

func TestNormalizeRuleKey(t *testing.T) {
	assert.Equal(t, "prime/phase_1", normalizeRuleKey(`Prime\Phase-1`))
	assert.Equal(t, "lite_funded", normalizeRuleKey("  Lite Funded "))
	assert.Equal(t, "", normalizeRuleKey("   "))
}
