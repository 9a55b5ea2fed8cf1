package taxonomy_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nightwatch-obs/alert-radar/internal/models"
	"github.com/nightwatch-obs/alert-radar/internal/taxonomy"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	content := `
hop_limit: 8
labels:
  Lasair:
    "*":
      SN: SNII
      AGN: Quasar
  ALeRCE:
    stamp_classifier:
      SN: SNII
ancestry:
  SNII: Supernova
  Quasar: AGN
  Supernova: "~Root"
  AGN: "~Root"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := taxonomy.Load(path)
	require.NoError(t, err)
	require.Equal(t, 8, table.HopLimit())

	code := table.Resolve(models.ClassificationRecord{Source: "Lasair", Level: "sherlock", Label: "SN"})
	require.Equal(t, "SNII", code)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := taxonomy.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestNewRejectsCycle(t *testing.T) {
	_, err := taxonomy.New(taxonomy.File{
		Ancestry: map[string]string{
			"A": "B",
			"B": "A",
		},
	})
	require.Error(t, err)

	var cfgErr *taxonomy.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestNewRejectsLabelWithoutAncestry(t *testing.T) {
	_, err := taxonomy.New(taxonomy.File{
		Labels: map[string]map[string]map[string]string{
			"Lasair": {taxonomy.LevelAny: {"SN": "SNII"}},
		},
		Ancestry: map[string]string{},
	})
	require.Error(t, err)

	var cfgErr *taxonomy.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestNewRejectsRootWithParent(t *testing.T) {
	_, err := taxonomy.New(taxonomy.File{
		Ancestry: map[string]string{taxonomy.RootCode: "A"},
	})
	require.Error(t, err)
}

func TestChain(t *testing.T) {
	table := taxonomy.Default()

	chain, err := table.Chain("SNII")
	require.NoError(t, err)
	require.Equal(t, []string{"SNII", "Supernova", taxonomy.RootCode}, chain)

	root, err := table.Chain(taxonomy.RootCode)
	require.NoError(t, err)
	require.Equal(t, []string{taxonomy.RootCode}, root)

	// A code nobody configured hangs straight off the root.
	orphan, err := table.Chain("totally_unknown_code")
	require.NoError(t, err)
	require.Equal(t, []string{"totally_unknown_code", taxonomy.RootCode}, orphan)
}

func TestResolve(t *testing.T) {
	table := taxonomy.Default()

	tests := []struct {
		name string
		rec  models.ClassificationRecord
		want string
	}{
		{
			name: "level-specific mapping",
			rec:  models.ClassificationRecord{Source: "ALeRCE", Level: "lc_classifier", Label: "RRL"},
			want: "RR Lyrae",
		},
		{
			name: "level-agnostic mapping",
			rec:  models.ClassificationRecord{Source: "Lasair", Level: "sherlock", Label: "VS"},
			want: "RR Lyrae",
		},
		{
			name: "same raw label maps per broker",
			rec:  models.ClassificationRecord{Source: "Fink", Level: "lc", Label: "QSO"},
			want: "Quasar",
		},
		{
			name: "unmapped label falls back to itself",
			rec:  models.ClassificationRecord{Source: "Fink", Level: "lc", Label: "totally_unknown_code"},
			want: "totally_unknown_code",
		},
		{
			name: "unknown broker falls back to raw label",
			rec:  models.ClassificationRecord{Source: "Nobody", Level: "x", Label: "SN"},
			want: "SN",
		},
		{
			name: "blank label resolves to Unknown",
			rec:  models.ClassificationRecord{Source: "Lasair", Level: "sherlock", Label: "  "},
			want: "Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Resolve(tt.rec)
			require.Equal(t, tt.want, got)
			require.NotEmpty(t, got)
		})
	}
}

func TestDefaultTableValidates(t *testing.T) {
	require.NotPanics(t, func() { taxonomy.Default() })
}
