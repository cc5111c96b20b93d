package docker

import (
	"context"
	"fmt"
	"sync"

	"arbiter/internal/domain/execution"
)

type languageRuntime struct {
	language execution.Language
	config   LanguageConfig
	engine   *containerEngine

	pullOnce sync.Once
	pullErr  error
}

func newLanguageRuntime(lang execution.Language, cfg LanguageConfig, engine *containerEngine) (*languageRuntime, error) {
	if cfg.Image == "" {
		return nil, fmt.Errorf("docker runtime: language %q missing image configuration", lang)
	}
	if cfg.Workdir == "" {
		cfg.Workdir = defaultWorkdir
	}
	if cfg.RunImage == "" {
		cfg.RunImage = cfg.Image
	}
	return &languageRuntime{
		language: lang,
		config:   cfg,
		engine:   engine,
	}, nil
}

func (l *languageRuntime) ensureImages(ctx context.Context) error {
	l.pullOnce.Do(func() {
		if err := l.engine.pullImage(ctx, l.config.Image); err != nil {
			l.pullErr = err
			return
		}
		if l.config.RunImage != l.config.Image {
			l.pullErr = l.engine.pullImage(ctx, l.config.RunImage)
		}
	})
	return l.pullErr
}
