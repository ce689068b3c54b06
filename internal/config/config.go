// Package config loads the core's static configuration and holds the
// per-scene DBSCAN parameter overrides mutated at runtime.
//
// Config fields are plain values, not pointers: Load decodes a config
// file directly onto an already-populated Default(), so a key absent
// from the file keeps its default value and a key present in the file
// (including an explicit zero) overwrites it. This only fails to
// distinguish "omitted" from "explicit" for a field whose default
// happens to be the zero value already.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// CategoryParams is a single (eps, min_samples) DBSCAN parameter pair.
type CategoryParams struct {
	Eps        float64 `json:"eps"`
	MinSamples int     `json:"min_samples"`
}

// DBSCANConfig holds the global default and per-category DBSCAN defaults.
type DBSCANConfig struct {
	Default          CategoryParams             `json:"default"`
	CategorySpecific map[string]CategoryParams `json:"category_specific"`
}

// StateTransitions holds the cluster lifecycle FSM thresholds.
type StateTransitions struct {
	FramesToActivate    int     `json:"frames_to_activate"`
	FramesToStable      int     `json:"frames_to_stable"`
	FramesToFade        int     `json:"frames_to_fade"`
	FramesToLost        int     `json:"frames_to_lost"`
	ActivationThreshold float64 `json:"activation_threshold"`
	StabilityThreshold  float64 `json:"stability_threshold"`
}

// ConfidenceParams holds the confidence-formula constants.
type ConfidenceParams struct {
	MissPenaltyPerFrame  float64 `json:"miss_penalty_per_frame"`
	MaxMissPenalty       float64 `json:"max_miss_penalty"`
	LongevityDivisor     float64 `json:"longevity_divisor"`
	MaxLongevityBonus    float64 `json:"max_longevity_bonus"`
	InitialConfidence    float64 `json:"initial_confidence"`
}

// ArchivalParams holds the cluster-memory archival timer.
type ArchivalParams struct {
	ArchiveTimeThresholdSeconds float64 `json:"archive_time_threshold"`
}

// ClusterTrackingConfig bundles the cluster_tracking.* config keys.
type ClusterTrackingConfig struct {
	StateTransitions StateTransitions `json:"state_transitions"`
	Confidence       ConfidenceParams `json:"confidence"`
	Archival         ArchivalParams   `json:"archival"`
}

// Config is the recognized static configuration.
type Config struct {
	MaxUnreliableTime         float64               `json:"max_unreliable_time"`
	NonMeasurementTimeDynamic float64               `json:"non_measurement_time_dynamic"`
	NonMeasurementTimeStatic  float64               `json:"non_measurement_time_static"`
	RegulateRate              float64               `json:"regulate_rate"`
	DBSCAN                    DBSCANConfig          `json:"dbscan"`
	ClusterTracking           ClusterTrackingConfig `json:"cluster_tracking"`
}

// Default returns the built-in defaults used when a config file omits a
// section entirely. FramesToFade defaults to 15: a running cluster's own
// FramesToFade is authoritative unless it is explicitly reconfigured.
func Default() Config {
	return Config{
		MaxUnreliableTime:         2.0,
		NonMeasurementTimeDynamic: 5.0,
		NonMeasurementTimeStatic:  30.0,
		RegulateRate:              10.0,
		DBSCAN: DBSCANConfig{
			Default:          CategoryParams{Eps: 1.0, MinSamples: 3},
			CategorySpecific: map[string]CategoryParams{},
		},
		ClusterTracking: ClusterTrackingConfig{
			StateTransitions: StateTransitions{
				FramesToActivate:    3,
				FramesToStable:      20,
				FramesToFade:        15,
				FramesToLost:        10,
				ActivationThreshold: 0.6,
				StabilityThreshold:  0.7,
			},
			Confidence: ConfidenceParams{
				MissPenaltyPerFrame: 0.1,
				MaxMissPenalty:      0.5,
				LongevityDivisor:    100,
				MaxLongevityBonus:   0.2,
				InitialConfidence:   0.5,
			},
			Archival: ArchivalParams{ArchiveTimeThresholdSeconds: 5.0},
		},
	}
}

// Load reads a JSON config file from path, decoding it onto Default() so any
// field the file omits keeps its default and any key present in the file,
// including an explicit zero, overwrites it. A missing or invalid file is a
// fatal configuration error: the
// caller (main) should exit non-zero.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	// Decode onto the defaults so omitted keys keep their default value.
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.DBSCAN.CategorySpecific == nil {
		cfg.DBSCAN.CategorySpecific = map[string]CategoryParams{}
	}
	return cfg, nil
}

// NonMeasurementTime returns the retirement timer for the given category's
// dynamic/static classification.
func (c Config) NonMeasurementTime(static bool) float64 {
	if static {
		return c.NonMeasurementTimeStatic
	}
	return c.NonMeasurementTimeDynamic
}

// CategoryDefault resolves the DBSCAN default for a category, following
// category-default > global-default precedence (the per-scene override
// layer lives in ParamStore, one level above this).
func (c Config) CategoryDefault(category string) CategoryParams {
	if p, ok := c.DBSCAN.CategorySpecific[category]; ok {
		return p
	}
	return c.DBSCAN.Default
}
