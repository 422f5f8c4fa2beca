package estimate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/camroute/fare-engine/pkg/common"
	"github.com/camroute/fare-engine/pkg/config"
	"github.com/camroute/fare-engine/pkg/logger"
)

// Artifact is the externally trained band model: one linear scorer per
// band over the fixed feature vector. The retraining job publishes a new
// file; the engine only ever reads it.
type Artifact struct {
	Version   string       `json:"version"`
	TrainedOn int          `json:"trained_on"`
	Classes   []BandScorer `json:"classes"`
}

// BandScorer scores one price band.
type BandScorer struct {
	Band      float64   `json:"band"`
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

// Classifier maps a feature vector to one of the price bands using the
// current artifact. The artifact is hot-swapped when the file on disk
// changes; classification keeps serving the previous version during a
// failed reload.
type Classifier struct {
	path      string
	minCorpus int

	mu       sync.RWMutex
	artifact *Artifact
	loadedAt time.Time
}

// NewClassifier creates a classifier reading from the configured artifact
// path. Call Load before first use; a missing artifact is not fatal, the
// classifier just reports an insufficient corpus until one appears.
func NewClassifier(cfg *config.ClassifierConfig, minCorpus int) *Classifier {
	return &Classifier{path: cfg.ArtifactPath, minCorpus: minCorpus}
}

// Load reads and validates the artifact file, swapping it in on success.
func (c *Classifier) Load() error {
	info, err := os.Stat(c.path)
	if err != nil {
		return fmt.Errorf("failed to stat classifier artifact: %w", err)
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("failed to read classifier artifact: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return fmt.Errorf("failed to parse classifier artifact: %w", err)
	}
	if err := validateArtifact(&artifact); err != nil {
		return fmt.Errorf("invalid classifier artifact: %w", err)
	}

	c.mu.Lock()
	c.artifact = &artifact
	c.loadedAt = info.ModTime()
	c.mu.Unlock()

	logger.Info("classifier artifact loaded",
		zap.String("version", artifact.Version),
		zap.Int("trained_on", artifact.TrainedOn),
		zap.Int("classes", len(artifact.Classes)))
	return nil
}

func validateArtifact(a *Artifact) error {
	if len(a.Classes) == 0 {
		return fmt.Errorf("no classes")
	}
	for _, class := range a.Classes {
		if !IsBand(class.Band) {
			return fmt.Errorf("unrecognised band %v", class.Band)
		}
		if len(class.Weights) != FeatureCount {
			return fmt.Errorf("band %v has %d weights, want %d", class.Band, len(class.Weights), FeatureCount)
		}
	}
	return nil
}

// StartReloader polls the artifact mtime on a ticker and reloads when it
// changes. Runs until the context is cancelled.
func (c *Classifier) StartReloader(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(c.path)
			if err != nil {
				continue
			}

			c.mu.RLock()
			stale := info.ModTime().After(c.loadedAt)
			c.mu.RUnlock()
			if !stale {
				continue
			}

			if err := c.Load(); err != nil {
				logger.Warn("classifier reload failed, keeping previous artifact",
					zap.String("path", c.path), zap.Error(err))
			}
		}
	}
}

// Trained reports whether a usable artifact is loaded.
func (c *Classifier) Trained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.artifact != nil && c.artifact.TrainedOn >= c.minCorpus
}

// Classify returns the highest-scoring band for the features, or
// ErrInsufficientCorpus when no sufficiently trained artifact is available.
func (c *Classifier) Classify(f Features) (float64, error) {
	c.mu.RLock()
	artifact := c.artifact
	c.mu.RUnlock()

	if artifact == nil || artifact.TrainedOn < c.minCorpus {
		return 0, common.ErrInsufficientCorpus
	}

	vector := f.Vector()
	best := artifact.Classes[0].Band
	bestScore := score(artifact.Classes[0], vector)
	for _, class := range artifact.Classes[1:] {
		if s := score(class, vector); s > bestScore {
			best = class.Band
			bestScore = s
		}
	}
	return best, nil
}

func score(class BandScorer, vector [FeatureCount]float64) float64 {
	s := class.Intercept
	for i, w := range class.Weights {
		s += w * vector[i]
	}
	return s
}
