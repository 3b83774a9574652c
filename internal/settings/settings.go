// internal/settings/settings.go
package settings

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Settings is the operator-tunable subset of trade parameters.
type Settings struct {
	TradeAmount float64 `json:"tradeAmount"`
	StopLoss    float64 `json:"stopLoss"`
	RiskReward  float64 `json:"riskReward"`
}

// Patch carries the fields of an update; nil fields are left as they are.
type Patch struct {
	TradeAmount *float64
	StopLoss    *float64
	RiskReward  *float64
}

// Empty reports whether the patch names no field at all.
func (p Patch) Empty() bool {
	return p.TradeAmount == nil && p.StopLoss == nil && p.RiskReward == nil
}

// InvalidSettingsError is returned when an update is rejected. The store
// is left untouched.
type InvalidSettingsError struct {
	Field  string
	Reason string
}

func (e *InvalidSettingsError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid settings: %s", e.Reason)
	}
	return fmt.Sprintf("invalid settings: %s %s", e.Field, e.Reason)
}

// Store holds the process-wide settings. Reads return copies; updates
// replace the whole record.
type Store struct {
	mu       sync.RWMutex
	current  Settings
	logger   *zap.Logger
	onChange []func(Settings)
}

// NewStore validates the initial values and returns a ready store.
func NewStore(initial Settings, logger *zap.Logger) (*Store, error) {
	if err := validate(initial); err != nil {
		return nil, err
	}
	return &Store{
		current: initial,
		logger:  logger.Named("settings"),
	}, nil
}

// Get returns a snapshot of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies a patch atomically. Either every supplied field is valid
// and the whole record is swapped, or nothing changes.
func (s *Store) Update(p Patch) (Settings, error) {
	if p.Empty() {
		return Settings{}, &InvalidSettingsError{Reason: "no fields supplied"}
	}

	s.mu.Lock()
	next := s.current
	if p.TradeAmount != nil {
		next.TradeAmount = *p.TradeAmount
	}
	if p.StopLoss != nil {
		next.StopLoss = *p.StopLoss
	}
	if p.RiskReward != nil {
		next.RiskReward = *p.RiskReward
	}
	if err := validate(next); err != nil {
		s.mu.Unlock()
		s.logger.Warn("Settings update rejected", zap.Error(err))
		return Settings{}, err
	}
	s.current = next
	listeners := append(([]func(Settings))(nil), s.onChange...)
	s.mu.Unlock()

	s.logger.Info("Settings updated",
		zap.Float64("trade_amount", next.TradeAmount),
		zap.Float64("stop_loss", next.StopLoss),
		zap.Float64("risk_reward", next.RiskReward))

	for _, fn := range listeners {
		fn(next)
	}
	return next, nil
}

// OnChange registers a callback invoked after every successful update.
func (s *Store) OnChange(fn func(Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

func validate(s Settings) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"tradeAmount", s.TradeAmount},
		{"stopLoss", s.StopLoss},
		{"riskReward", s.RiskReward},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &InvalidSettingsError{Field: f.name, Reason: "must be a finite number"}
		}
		if f.value <= 0 {
			return &InvalidSettingsError{Field: f.name, Reason: "must be positive"}
		}
	}
	return nil
}

// ParsePatch converts a decoded JSON body into a Patch. Numbers and numeric
// strings are accepted; unknown keys are ignored. Fields are checked in a
// fixed order, so the first malformed one is always the one reported.
func ParsePatch(body map[string]any) (Patch, error) {
	var p Patch
	targets := []struct {
		key string
		dst **float64
	}{
		{"tradeAmount", &p.TradeAmount},
		{"stopLoss", &p.StopLoss},
		{"riskReward", &p.RiskReward},
	}
	for _, target := range targets {
		key, dst := target.key, target.dst
		raw, ok := body[key]
		if !ok || raw == nil {
			continue
		}
		v, err := toFloat(raw)
		if err != nil {
			return Patch{}, &InvalidSettingsError{Field: key, Reason: "must be a number"}
		}
		*dst = &v
	}
	return p, nil
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}
