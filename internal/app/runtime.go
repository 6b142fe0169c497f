package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"horse.fit/aidesk/internal/auth"
	"horse.fit/aidesk/internal/capability"
	"horse.fit/aidesk/internal/cli"
	"horse.fit/aidesk/internal/config"
	"horse.fit/aidesk/internal/export"
	"horse.fit/aidesk/internal/langdetect"
	"horse.fit/aidesk/internal/logging"
	"horse.fit/aidesk/internal/metrics"
	"horse.fit/aidesk/internal/reader"
	"horse.fit/aidesk/internal/summarize"
	"horse.fit/aidesk/internal/training"
	"horse.fit/aidesk/internal/translation"
	"horse.fit/aidesk/internal/voice"
	"horse.fit/aidesk/internal/workflow"
)

// runtime is every service a command may need, wired from configuration.
type runtime struct {
	cfg          *config.Config
	logger       zerolog.Logger
	translations *translation.Registry
	detector     *langdetect.Detector
	runner       *workflow.Runner
	exporter     export.Exporter
	voice        *voice.Bridge
	trainer      *training.Trainer
	reader       *reader.Fetcher
	metrics      *metrics.Collector
	credentials  *auth.Credentials
}

func loadConfig(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			return nil, zerolog.Nop(), err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

func newRuntime(envLoader *cli.EnvLoader) (*runtime, error) {
	cfg, logger, err := loadConfig(envLoader)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		translations: translation.NewRegistryFromSettings(translation.Settings{
			Provider: cfg.TranslationProvider,
			Endpoint: cfg.TranslationEndpoint,
			Model:    cfg.TranslationModel,
			Timeout:  cfg.TranslationTimeout,
		}),
		detector: langdetect.NewDetector(langdetect.Options{
			LowAccuracy: cfg.DetectorLowAccuracy,
			MaxResults:  cfg.DetectorMaxResults,
		}),
		exporter: export.Exporter{Prefix: cfg.ExportPrefix},
		trainer:  training.NewTrainer(cfg.TrainingDelay, logging.Component(logger, "training")),
		reader:   reader.NewFetcher(reader.Options{}),
	}

	surface := capability.Surface{Detector: langdetect.NewCapability(rt.detector)}
	provider, err := rt.translations.Provider("")
	if err != nil {
		logger.Warn().Err(err).Msg("translation provider unavailable")
	} else {
		surface.Translator = translation.NewCapability(provider)
	}

	summarizer, err := newSummarizer(cfg)
	if err != nil {
		return nil, err
	}
	surface.Summarizer = summarizer

	rt.runner = workflow.NewRunner(surface, logging.Component(logger, "workflow"), workflow.Options{
		Metrics:    rt.metrics,
		ResetDelay: cfg.ProgressResetDelay,
	})

	voiceLogger := logging.Component(logger, "voice")
	if cfg.VoiceEnabled {
		engine := voice.NewOpenAIVoice(voice.Settings{
			Endpoint: cfg.VoiceEndpoint,
			APIKey:   cfg.VoiceAPIKey,
			STTModel: cfg.STTModel,
			TTSModel: cfg.TTSModel,
			Voice:    cfg.TTSVoice,
		})
		rt.voice = voice.NewBridge(engine, engine, rt.runner.Workspace(), rt.runner.Hub(), voiceLogger)
	} else {
		rt.voice = voice.NewBridge(nil, nil, rt.runner.Workspace(), rt.runner.Hub(), voiceLogger)
	}

	if cfg.AuthEnabled() {
		creds, err := auth.NewCredentials(cfg.APIUser, cfg.APIPasswordHash)
		if err != nil {
			return nil, fmt.Errorf("load API credentials: %w", err)
		}
		rt.credentials = creds
	}

	return rt, nil
}

// newSummarizer always returns a capability; with SUMMARIZER_BACKEND=none it
// reports itself unavailable instead of absent.
func newSummarizer(cfg *config.Config) (*summarize.Capability, error) {
	backend, err := summarize.NewBackend(summarize.Settings{
		Backend:     cfg.SummarizerBackendName(),
		Endpoint:    cfg.SummarizerEndpoint,
		Model:       cfg.SummarizerModel,
		APIKey:      cfg.SummarizerAPIKey,
		GeminiKeys:  cfg.GeminiKeys(),
		GeminiModel: cfg.GeminiModel,
		Timeout:     cfg.TranslationTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("build summarizer: %w", err)
	}
	return summarize.NewCapability(backend), nil
}
