package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/secira/TargetCapital-sub000/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// policyEntrySchema 约束单档策略的取值范围。
const policyEntrySchema = `{
  "type": "object",
  "properties": {
    "tier": {"type": "string"},
    "min_risk_reward": {"type": "number", "exclusiveMinimum": 0},
    "max_risk_pct": {"type": "number", "exclusiveMinimum": 0, "maximum": 100},
    "funds_buffer_pct": {"type": "number", "minimum": 0, "maximum": 50}
  },
  "required": ["min_risk_reward", "max_risk_pct"]
}`

var entrySchema = jsonschema.MustCompileString("risk_policy.json", policyEntrySchema)

// FileConfig 映射 risk_policies.yaml 的根结构。
type FileConfig struct {
	AllowedTiers []string              `mapstructure:"allowed_tiers" yaml:"allowed_tiers"`
	Default      RiskPolicy            `mapstructure:"default" yaml:"default"`
	Tiers        map[string]RiskPolicy `mapstructure:"tiers" yaml:"tiers"`
}

// Snapshot 公开的策略快照。
type Snapshot struct {
	Version      int64
	LoadedAt     time.Time
	AllowedTiers []string
	Default      RiskPolicy
	Tiers        map[string]RiskPolicy
}

// PolicyFor 返回该等级生效的策略（无专属配置时回落默认档）。
func (s Snapshot) PolicyFor(tier string) RiskPolicy {
	key := strings.ToLower(strings.TrimSpace(tier))
	if p, ok := s.Tiers[key]; ok {
		return p
	}
	return s.Default
}

// TierAllowed 判断等级是否在准入名单内。
func (s Snapshot) TierAllowed(tier string) bool {
	return tierIn(tier, s.AllowedTiers)
}

// ChangeListener 在策略重载后触发。
type ChangeListener func(Snapshot)

// Registry 管理 per-tier 风控策略，监听文件变更热更新。
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewRegistry 读取策略文件并监听更新。
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("risk policy registry requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read risk policy config failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("risk policy reload failed: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot 返回当前策略集。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// PolicyFor 实现 Source。
func (r *Registry) PolicyFor(tier string) RiskPolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot.PolicyFor(tier)
}

// TierAllowed 实现 Source。
func (r *Registry) TierAllowed(tier string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot.TierAllowed(tier)
}

// AllowedTiers 实现 Source。
func (r *Registry) AllowedTiers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.snapshot.AllowedTiers...)
}

// Subscribe 注册重载回调。
func (r *Registry) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) reload() error {
	cfg, err := readPolicyFile(r.path)
	if err != nil {
		return err
	}

	def := merge(DefaultPolicy(), cfg.Default)
	def.Tier = "default"
	if err := validateEntry(def); err != nil {
		return fmt.Errorf("default policy invalid: %w", err)
	}

	tiers := make(map[string]RiskPolicy, len(cfg.Tiers))
	for name, p := range cfg.Tiers {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		m := merge(def, p)
		m.Tier = key
		if err := validateEntry(m); err != nil {
			return fmt.Errorf("tier %s policy invalid: %w", key, err)
		}
		tiers[key] = m
	}

	allowed := normalizeTiers(cfg.AllowedTiers)
	if len(allowed) == 0 {
		return fmt.Errorf("allowed_tiers must not be empty")
	}

	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:      r.snapshot.Version + 1,
		LoadedAt:     time.Now(),
		AllowedTiers: allowed,
		Default:      def,
		Tiers:        tiers,
	}
	r.mu.Unlock()
	logger.Infof("Risk policy registry loaded %d tier policies from %s", len(tiers), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		if fn == nil {
			continue
		}
		go func(cb ChangeListener) {
			defer safeRecover("risk policy listener")
			cb(snap)
		}(fn)
	}
}

func validateEntry(p RiskPolicy) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return entrySchema.Validate(doc)
}

func normalizeTiers(tiers []string) []string {
	uniq := make(map[string]struct{})
	for _, t := range tiers {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		uniq[t] = struct{}{}
	}
	if len(uniq) == 0 {
		return nil
	}
	out := make([]string, 0, len(uniq))
	for t := range uniq {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:      src.Version,
		LoadedAt:     src.LoadedAt,
		AllowedTiers: append([]string(nil), src.AllowedTiers...),
		Default:      src.Default,
		Tiers:        make(map[string]RiskPolicy, len(src.Tiers)),
	}
	for tier, p := range src.Tiers {
		dst.Tiers[tier] = p
	}
	return dst
}

func safeRecover(tag string) {
	if r := recover(); r != nil {
		logger.Errorf("%s panic: %v", tag, r)
	}
}

func readPolicyFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read risk policy config failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse risk policy config failed: %w", err)
	}
	return cfg, nil
}
