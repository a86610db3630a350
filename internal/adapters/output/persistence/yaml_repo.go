package persistence

import (
	"context"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"lumina-core/internal/domain/model"
)

// YAMLConfigRepository persists the bridge daemon configuration as a
// YAML file. A missing file yields the defaults rather than an error so
// a fresh install starts clean.
type YAMLConfigRepository struct {
	filepath string
	mu       sync.RWMutex
}

func NewYAMLConfigRepository(filepath string) *YAMLConfigRepository {
	return &YAMLConfigRepository{filepath: filepath}
}

func (r *YAMLConfigRepository) Get(ctx context.Context) (*model.BridgeConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg := model.DefaultBridgeConfig()
	data, err := os.ReadFile(r.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.PollIntervalMS <= 0 {
		cfg.PollIntervalMS = model.DefaultBridgeConfig().PollIntervalMS
	}
	if cfg.MaxPerPoll <= 0 {
		cfg.MaxPerPoll = model.DefaultBridgeConfig().MaxPerPoll
	}
	return cfg, nil
}

func (r *YAMLConfigRepository) Save(ctx context.Context, cfg *model.BridgeConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	// The file may carry AWS credentials context; keep it private.
	return os.WriteFile(r.filepath, data, 0600)
}
