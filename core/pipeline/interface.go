package pipeline

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator"
	"github.com/siherrmann/scenegraph/core/merge"
	"github.com/siherrmann/scenegraph/core/store"
	"github.com/siherrmann/scenegraph/helper"
	"github.com/siherrmann/scenegraph/model"
)

// SubtitleTagFunc finds named mentions (characters, places, ...) in a subtitle line.
type SubtitleTagFunc func(text string) ([]Mention, error)

// Mention is a named entity found in a subtitle line.
type Mention struct {
	Text  string
	Kind  string
	Score float64
}

// Pipeline resolves annotation records into entities of a store.
// Ingestion is sequential; only stream decoding runs concurrently.
type Pipeline struct {
	config   model.EngineConfig
	store    *store.Store
	merger   *merge.Merger
	validate *validator.Validate

	SubtitleTagger SubtitleTagFunc // Optional

	log *slog.Logger
}

// NewPipeline creates a pipeline writing into s.
func NewPipeline(s *store.Store, config model.EngineConfig, logger *slog.Logger) (*Pipeline, error) {
	if s == nil {
		return nil, helper.NewError("pipeline store validation", fmt.Errorf("store is nil"))
	}
	if err := config.Validate(); err != nil {
		return nil, helper.NewError("pipeline config validation", err)
	}
	if logger == nil {
		logger = helper.NewLogger(os.Stdout, slog.LevelInfo)
	}

	return &Pipeline{
		config:   config,
		store:    s,
		merger:   merge.NewMerger(config.MergeThreshold, config.MergeWindow),
		validate: newRecordValidator(),
		log:      logger,
	}, nil
}

// SetSubtitleTagger sets the function tagging mentions in subtitles
func (p *Pipeline) SetSubtitleTagger(tagger SubtitleTagFunc) {
	p.SubtitleTagger = tagger
}

func (p *Pipeline) Store() *store.Store {
	return p.store
}

func (p *Pipeline) Config() model.EngineConfig {
	return p.config
}

func (p *Pipeline) Merger() *merge.Merger {
	return p.merger
}
