package risk

import (
	"strings"

	"propguard/internal/logger"
)

// Catalog resolves challenge-type / MT5-group identifiers to a concrete
// rule set. Lookup order: file registry exact match on challenge type,
// then on group, then builtin exact, then substring tier classification,
// then the hard-coded default. Resolution never fails.
type Catalog struct {
	registry *Registry
}

func NewCatalog(registry *Registry) *Catalog {
	return &Catalog{registry: registry}
}

// Resolve returns the rule set governing an account. mt5Group is a
// secondary key; pass "" when unknown.
func (c *Catalog) Resolve(challengeType, mt5Group string) RuleSet {
	ct := normalizeRuleKey(challengeType)
	grp := normalizeRuleKey(mt5Group)

	for _, key := range []string{ct, grp} {
		if key == "" {
			continue
		}
		if c.registry != nil {
			if rs, ok := c.registry.Lookup(key); ok {
				return rs
			}
		}
		if rs, ok := builtinRuleSets[key]; ok {
			return rs
		}
	}

	for _, key := range []string{ct, grp} {
		if key == "" {
			continue
		}
		if rs, ok := classifyRuleKey(key); ok {
			return rs
		}
	}

	logger.Warnf("risk: no rule set for challenge_type=%q mt5_group=%q, using default", challengeType, mt5Group)
	return DefaultRuleSet()
}

// normalizeRuleKey lower-cases, collapses escaped path separators and
// unifies word separators so "demo\\Prime\\Phase-1" and "prime phase_1"
// land on the same key.
func normalizeRuleKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return ""
	}
	key = strings.ReplaceAll(key, "\\/", "/")
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	return key
}

// classifyRuleKey maps a key that did not match exactly onto one of the
// builtin tiers by substring, split by the lite/prime brand prefix.
func classifyRuleKey(key string) (RuleSet, bool) {
	var tier string
	switch {
	case strings.Contains(key, "instant"):
		tier = "instant"
	case strings.Contains(key, "1_step"), strings.Contains(key, "evaluation"):
		tier = "1_step"
	case strings.Contains(key, "phase_1"):
		tier = "phase_1"
	case strings.Contains(key, "phase_2"):
		tier = "phase_2"
	case strings.Contains(key, "funded"):
		tier = "funded"
	default:
		return RuleSet{}, false
	}
	brand := "lite"
	if strings.Contains(key, "prime") {
		brand = "prime"
	}
	rs, ok := builtinRuleSets[brand+"_"+tier]
	return rs, ok
}
