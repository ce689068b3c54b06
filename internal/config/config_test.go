package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault_FramesToFadeAuthoritative(t *testing.T) {
	cfg := Default()
	require.Equal(t, 15, cfg.ClusterTracking.StateTransitions.FramesToFade)
}

func TestLoad_EmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	want := Default()
	require.Equal(t, want.RegulateRate, cfg.RegulateRate)
	require.Equal(t, want.DBSCAN.Default, cfg.DBSCAN.Default)
}

func TestLoad_MergesOverFileOmissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"regulate_rate": 20}`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 20.0, cfg.RegulateRate)
	require.Equal(t, Default().MaxUnreliableTime, cfg.MaxUnreliableTime)
}

func TestLoad_MissingFileIsFatalError(t *testing.T) {
	_, err := Load("/nonexistent/path/config.json")
	require.Error(t, err)
}

func TestCategoryDefault_Precedence(t *testing.T) {
	cfg := Default()
	cfg.DBSCAN.CategorySpecific["person"] = CategoryParams{Eps: 0.5, MinSamples: 2}

	require.Equal(t, CategoryParams{Eps: 0.5, MinSamples: 2}, cfg.CategoryDefault("person"))
	require.Equal(t, cfg.DBSCAN.Default, cfg.CategoryDefault("car"))
}
