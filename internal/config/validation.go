package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Pipeline.validate(); err != nil {
		return err
	}
	if err := c.Equity.validate(); err != nil {
		return err
	}
	if err := c.Fusion.validate(); err != nil {
		return err
	}
	if err := c.AI.validate(); err != nil {
		return err
	}
	if err := c.Dataset.validate(); err != nil {
		return err
	}
	return nil
}

func (p *PipelineConfig) validate() error {
	if p.DebounceFrames < 1 {
		return fmt.Errorf("pipeline.debounce_frames must be >= 1")
	}
	if p.NoiseThreshold < 0 {
		return fmt.Errorf("pipeline.noise_threshold must be >= 0")
	}
	if p.RaisePotRatio <= 1 {
		return fmt.Errorf("pipeline.raise_pot_ratio must be > 1")
	}
	if p.BehaviorWindow < 1 {
		return fmt.Errorf("pipeline.behavior_window must be >= 1")
	}
	if p.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be >= 1")
	}
	return nil
}

func (e *EquityConfig) validate() error {
	if e.Iterations < 100 {
		return fmt.Errorf("equity.iterations must be >= 100")
	}
	return nil
}

func (f *FusionConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(f.Method)) {
	case "product", "weighted":
	default:
		return fmt.Errorf("fusion.method only supports 'product' or 'weighted', got %s", f.Method)
	}
	for name, w := range f.Weights {
		if w < 0 {
			return fmt.Errorf("fusion.weights.%s must be >= 0", name)
		}
	}
	if f.DecisionTimeFast >= f.DecisionTimeSlow {
		return fmt.Errorf("fusion.decision_time_fast must be < fusion.decision_time_slow")
	}
	return nil
}

func (a *AIConfig) validate() error {
	models, err := a.ResolveModelConfigs()
	if err != nil {
		return err
	}
	for _, m := range models {
		if !m.Enabled {
			continue
		}
		if strings.TrimSpace(m.Model) == "" {
			return fmt.Errorf("ai.models contains entry without model (id=%s)", m.ID)
		}
		if strings.TrimSpace(m.APIURL) == "" {
			return fmt.Errorf("ai.models.%s missing api_url (can inherit from preset)", m.ID)
		}
		if strings.TrimSpace(m.Provider) == "" {
			return fmt.Errorf("ai.models.%s missing provider", m.ID)
		}
	}
	if len(a.ProviderPreference) > 0 {
		modelSet := make(map[string]struct{}, len(models))
		for _, m := range models {
			modelSet[m.ID] = struct{}{}
		}
		for _, id := range a.ProviderPreference {
			if _, ok := modelSet[id]; !ok {
				return fmt.Errorf("ai.provider_preference contains unconfigured model id: %s", id)
			}
		}
	}
	return nil
}

func (d *DatasetConfig) validate() error {
	for _, p := range d.Protocols {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "audience", "player":
		default:
			return fmt.Errorf("dataset.protocols only supports 'audience' and 'player', got %s", p)
		}
	}
	if d.BluffAmountThreshold <= 0 {
		return fmt.Errorf("dataset.bluff_amount_threshold must be > 0")
	}
	return nil
}
