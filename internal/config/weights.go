package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/okian/soe/internal/domain/scoring"
	"github.com/okian/soe/pkg/logger"
	"github.com/okian/soe/pkg/metrics"
)

// LoadWeightsFile reads a YAML weights file:
//
//	uptime: 0.35
//	errorRate: 0.25
//	resourceEfficiency: 0.2
//	throughput: 0.2
//
// Missing keys are zero. Unknown keys are rejected so typos do not silently
// zero a weight.
func LoadWeightsFile(path string) (scoring.Weights, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return scoring.Weights{}, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
	}

	var w scoring.Weights
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&w); err != nil {
		if errors.Is(err, io.EOF) {
			return scoring.Weights{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, ErrEmptyWeights)
		}
		return scoring.Weights{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	for _, v := range []float64{w.Uptime, w.ErrorRate, w.ResourceEfficiency, w.Throughput} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return scoring.Weights{}, fmt.Errorf("%w: %s: weights must be finite", ErrInvalidConfig, path)
		}
	}
	return w, nil
}

// WatchWeights reloads path whenever it is written or replaced and passes
// the new weights to onChange. It blocks until ctx is cancelled. A failed
// reload is logged and the previous weights stay active.
//
// The parent directory is watched rather than the file itself: editors and
// mounted config volumes replace the file by rename, which drops a watch
// held on the old inode.
func WatchWeights(ctx context.Context, path string, onChange func(scoring.Weights)) error {
	path = filepath.Clean(path)
	if _, err := os.Stat(path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	log := logger.Get().Named("config").With(logger.String("path", path))
	log.Info(ctx, "watching weights file")

	// A symlinked file (Kubernetes ConfigMap) changes by retargeting the
	// link, so the resolved path is tracked as well.
	realPath, _ := filepath.EvalSymlinks(path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			current, _ := filepath.EvalSymlinks(path)
			written := filepath.Clean(event.Name) == path &&
				(event.Has(fsnotify.Write) || event.Has(fsnotify.Create))
			retargeted := current != "" && current != realPath
			if !written && !retargeted {
				continue
			}
			realPath = current

			w, err := LoadWeightsFile(path)
			if err != nil {
				metrics.RecordWeightsReload("error")
				log.Error(ctx, "weights reload failed, keeping previous weights", logger.Error(err))
				continue
			}

			metrics.RecordWeightsReload("ok")
			log.Info(ctx, "weights reloaded", logger.Float64("sum", w.Sum()))
			onChange(w)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(ctx, "weights watcher error", logger.Error(err))
		}
	}
}
