package model

import (
	"fmt"

	"github.com/siherrmann/scenegraph/helper"
)

// UnresolvedPolicy decides what happens to a record referencing an unknown external id.
type UnresolvedPolicy string

const (
	// UnresolvedSkip logs the record, counts it in the report and continues.
	UnresolvedSkip UnresolvedPolicy = "skip"
	// UnresolvedFail aborts the ingestion with the typed error.
	UnresolvedFail UnresolvedPolicy = "fail"
)

// EngineConfig configures entity resolution.
type EngineConfig struct {
	MergeWindow      float64          `json:"merge_window"`
	MergeThreshold   float64          `json:"merge_threshold"`
	Domain           TimeDomain       `json:"domain"`
	UnresolvedPolicy UnresolvedPolicy `json:"unresolved_policy"`
	RepairJSON       bool             `json:"repair_json"`
	DecodeWorkers    int              `json:"decode_workers"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MergeWindow:      1.0,
		MergeThreshold:   0.5,
		Domain:           TimeDomainSeconds,
		UnresolvedPolicy: UnresolvedSkip,
		RepairJSON:       false,
		DecodeWorkers:    4,
	}
}

// EngineConfigFromEnv reads SCENEGRAPH_* variables over the defaults.
func EngineConfigFromEnv() (EngineConfig, error) {
	helper.LoadEnv()

	def := DefaultEngineConfig()
	config := EngineConfig{
		MergeWindow:      helper.GetEnvFloat("SCENEGRAPH_MERGE_WINDOW", def.MergeWindow),
		MergeThreshold:   helper.GetEnvFloat("SCENEGRAPH_MERGE_THRESHOLD", def.MergeThreshold),
		Domain:           TimeDomain(helper.GetEnvString("SCENEGRAPH_TIME_DOMAIN", string(def.Domain))),
		UnresolvedPolicy: UnresolvedPolicy(helper.GetEnvString("SCENEGRAPH_UNRESOLVED_POLICY", string(def.UnresolvedPolicy))),
		RepairJSON:       helper.GetEnvBool("SCENEGRAPH_REPAIR_JSON", def.RepairJSON),
		DecodeWorkers:    helper.GetEnvInt("SCENEGRAPH_DECODE_WORKERS", def.DecodeWorkers),
	}

	return config, config.Validate()
}

func (c EngineConfig) Validate() error {
	if c.MergeWindow < 0 {
		return helper.NewError("engine config", fmt.Errorf("merge window must not be negative, got %v", c.MergeWindow))
	}
	if c.MergeThreshold < 0 || c.MergeThreshold >= 1 {
		return helper.NewError("engine config", fmt.Errorf("merge threshold must be in [0, 1), got %v", c.MergeThreshold))
	}
	if !c.Domain.Valid() {
		return helper.NewError("engine config", fmt.Errorf("unknown time domain %q", c.Domain))
	}
	if c.UnresolvedPolicy != UnresolvedSkip && c.UnresolvedPolicy != UnresolvedFail {
		return helper.NewError("engine config", fmt.Errorf("unknown unresolved policy %q", c.UnresolvedPolicy))
	}
	if c.DecodeWorkers < 1 {
		return helper.NewError("engine config", fmt.Errorf("decode workers must be at least 1, got %d", c.DecodeWorkers))
	}
	return nil
}

// QueryConfig represents a read-only selection over the entity store.
type QueryConfig struct {
	EntityTypes []EntityType `json:"entity_types,omitempty"` // nil selects all types
	Classes     []Class      `json:"classes,omitempty"`      // nil selects all classes

	// Time range [From, To) in Domain; entities without a timestamp in Domain
	// are dropped as soon as either bound is set.
	Domain TimeDomain `json:"domain"`
	From   *float64   `json:"from,omitempty"`
	To     *float64   `json:"to,omitempty"`

	Limit int `json:"limit,omitempty"`

	// Graph traversal parameters
	MaxHops             int     `json:"max_hops,omitempty"`
	PropertyClasses     []Class `json:"property_classes,omitempty"` // Filter followed properties
	FollowBidirectional bool    `json:"follow_bidirectional"`
}

func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		EntityTypes:         nil,
		Classes:             nil,
		Domain:              TimeDomainSeconds,
		Limit:               0,
		MaxHops:             2,
		PropertyClasses:     nil,
		FollowBidirectional: true,
	}
}

// WithRange returns a copy of the config restricted to [from, to).
func (c QueryConfig) WithRange(domain TimeDomain, from float64, to float64) QueryConfig {
	c.Domain = domain
	c.From = &from
	c.To = &to
	return c
}

// BoxIndexType selects the pgvector index over persisted box coordinates.
type BoxIndexType string

const (
	BoxIndexHNSW    BoxIndexType = "hnsw"
	BoxIndexIVFFlat BoxIndexType = "ivfflat"
)

// BoxIndexConfig configures the nearest-box index of the entities table.
// M and EfConstruction apply to HNSW, Lists to IVFFlat.
type BoxIndexConfig struct {
	Type           BoxIndexType `json:"type"`
	M              int          `json:"m,omitempty"`
	EfConstruction int          `json:"ef_construction,omitempty"`
	Lists          int          `json:"lists,omitempty"`
}

// DefaultBoxIndexConfig is the index the entities table is created with.
func DefaultBoxIndexConfig() BoxIndexConfig {
	return BoxIndexConfig{
		Type:           BoxIndexHNSW,
		M:              16,
		EfConstruction: 64,
		Lists:          100,
	}
}

// BoxIndexConfigFromEnv reads SCENEGRAPH_BOX_INDEX_* variables over the defaults.
func BoxIndexConfigFromEnv() (BoxIndexConfig, error) {
	helper.LoadEnv()

	def := DefaultBoxIndexConfig()
	config := BoxIndexConfig{
		Type:           BoxIndexType(helper.GetEnvString("SCENEGRAPH_BOX_INDEX_TYPE", string(def.Type))),
		M:              helper.GetEnvInt("SCENEGRAPH_BOX_INDEX_M", def.M),
		EfConstruction: helper.GetEnvInt("SCENEGRAPH_BOX_INDEX_EF_CONSTRUCTION", def.EfConstruction),
		Lists:          helper.GetEnvInt("SCENEGRAPH_BOX_INDEX_LISTS", def.Lists),
	}

	return config, config.Validate()
}

func (c BoxIndexConfig) Validate() error {
	switch c.Type {
	case BoxIndexHNSW:
		if c.M < 2 || c.EfConstruction < 2*c.M {
			return helper.NewError("box index config", fmt.Errorf("hnsw needs m >= 2 and ef_construction >= 2*m, got m=%d ef_construction=%d", c.M, c.EfConstruction))
		}
	case BoxIndexIVFFlat:
		if c.Lists < 1 {
			return helper.NewError("box index config", fmt.Errorf("ivfflat needs at least one list, got %d", c.Lists))
		}
	default:
		return helper.NewError("box index config", fmt.Errorf("unsupported index type %q (use 'hnsw' or 'ivfflat')", c.Type))
	}
	return nil
}
