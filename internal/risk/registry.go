package risk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"propguard/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ruleFileSchema validates the administratively edited rule file before a
// reload is applied; a broken edit keeps the previous snapshot in place.
const ruleFileSchema = `{
  "type": "object",
  "properties": {
    "rule_sets": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "daily_drawdown_percent": {"type": "number", "minimum": 0, "maximum": 100},
          "max_drawdown_percent": {"type": "number", "minimum": 0, "maximum": 100},
          "profit_target_percent": {"type": "number", "minimum": 0, "maximum": 100}
        },
        "required": ["daily_drawdown_percent", "max_drawdown_percent"],
        "additionalProperties": false
      }
    }
  },
  "required": ["rule_sets"],
  "additionalProperties": false
}`

// ruleFile maps the risk_rules.yaml layout. Keys are challenge types or
// MT5 group names; they are normalized on load.
type ruleFile struct {
	RuleSets map[string]RuleSet `yaml:"rule_sets"`
}

// RegistrySnapshot is the published view of the rule file.
type RegistrySnapshot struct {
	Version  int64
	LoadedAt time.Time
	RuleSets map[string]RuleSet
}

// ChangeListener fires after a successful reload.
type ChangeListener func(RegistrySnapshot)

// Registry loads the rule file and watches it for administrative edits.
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  RegistrySnapshot
	listeners []ChangeListener
}

// NewRegistry reads the rule file and, when watch is set, reloads it on
// every change event.
func NewRegistry(path string, watch bool) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("risk rule registry requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read risk rule config failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	if watch {
		v.OnConfigChange(func(evt fsnotify.Event) {
			if err := r.reload(); err != nil {
				logger.Errorf("risk rule reload failed: %v", err)
				return
			}
			r.notifyListeners()
		})
		v.WatchConfig()
	}
	return r, nil
}

// Lookup returns the rule set stored under a normalized key.
func (r *Registry) Lookup(key string) (RuleSet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.snapshot.RuleSets[normalizeRuleKey(key)]
	return rs, ok
}

// Snapshot returns the current rule sets.
func (r *Registry) Snapshot() RegistrySnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneRegistrySnapshot(r.snapshot)
}

// OnChange registers a listener invoked after each successful reload.
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) reload() error {
	cfg, err := readRuleFile(r.path)
	if err != nil {
		return err
	}
	ruleSets := make(map[string]RuleSet, len(cfg.RuleSets))
	for name, rs := range cfg.RuleSets {
		key := normalizeRuleKey(name)
		if key == "" {
			continue
		}
		rs.Name = key
		ruleSets[key] = rs
	}
	r.mu.Lock()
	r.snapshot = RegistrySnapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		RuleSets: ruleSets,
	}
	r.mu.Unlock()
	logger.Infof("risk rule registry loaded %d rule sets from %s", len(ruleSets), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneRegistrySnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		if fn == nil {
			continue
		}
		go func(cb ChangeListener) {
			defer safeRecover("risk rule listener")
			cb(snap)
		}(fn)
	}
}

func cloneRegistrySnapshot(src RegistrySnapshot) RegistrySnapshot {
	dst := RegistrySnapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		RuleSets: make(map[string]RuleSet, len(src.RuleSets)),
	}
	for key, rs := range src.RuleSets {
		dst.RuleSets[key] = rs
	}
	return dst
}

func safeRecover(tag string) {
	if rec := recover(); rec != nil {
		logger.Errorf("%s panic: %v", tag, rec)
	}
}

func readRuleFile(path string) (ruleFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ruleFile{}, fmt.Errorf("read risk rule config failed: %w", err)
	}
	if err := validateRuleFile(raw); err != nil {
		return ruleFile{}, err
	}
	var cfg ruleFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return ruleFile{}, fmt.Errorf("parse risk rule config failed: %w", err)
	}
	return cfg, nil
}

func validateRuleFile(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse risk rule config failed: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("risk_rules.json", strings.NewReader(ruleFileSchema)); err != nil {
		return err
	}
	schema, err := compiler.Compile("risk_rules.json")
	if err != nil {
		return err
	}
	if err := schema.Validate(normalizeYAMLValue(doc)); err != nil {
		return fmt.Errorf("risk rule config rejected by schema: %w", err)
	}
	return nil
}

// normalizeYAMLValue converts yaml map[any]any trees into the
// map[string]any shape jsonschema expects.
func normalizeYAMLValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = normalizeYAMLValue(child)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			ks, ok := k.(string)
			if !ok {
				ks = fmt.Sprintf("%v", k)
			}
			out[ks] = normalizeYAMLValue(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = normalizeYAMLValue(child)
		}
		return out
	case int:
		return json.Number(fmt.Sprintf("%d", val))
	default:
		return val
	}
}
