package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdmap/mapbuilder/internal/config"
)

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{Enabled: false}, zerolog.Nop(), "")
	err := m.Connect(context.Background())
	assert.ErrorIs(t, err, ErrDisabled)
	assert.False(t, m.IsValid)
	assert.NoError(t, m.Close())
}

func TestWritePoint_NoWriter(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), "")
	err := m.WritePoint(EditPoint(EditStats{Project: "p"}, time.Now()))
	assert.ErrorContains(t, err, "backup writer not available")
}

func TestEditPoint(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := EditPoint(EditStats{
		Project:     "harbor",
		Operation:   "commit",
		Markers:     4,
		Selected:    1,
		Position:    2,
		ChainLength: 3,
	}, at)

	assert.Equal(t, EditMeasurement, p.Name())
	assert.Equal(t, at, p.Time())

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"project": "harbor", "operation": "commit"}, tags)

	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.EqualValues(t, 4, fields["markers"])
	assert.EqualValues(t, 3, fields["chain_length"])
}

func TestBackupWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edits.lp.gz")
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), path)
	require.NoError(t, m.openBackup())

	at := time.Unix(0, 1700000000000000000)
	require.NoError(t, m.WritePoint(EditPoint(EditStats{Project: "harbor", Operation: "undo", Markers: 2}, at)))
	require.NoError(t, m.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)

	line := string(data)
	assert.Contains(t, line, "edits,operation=undo,project=harbor")
	assert.Contains(t, line, "markers=2i")
	assert.Contains(t, line, "1700000000000000000")
}

func TestOpenBackup_NoPath(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), "")
	assert.Error(t, m.openBackup())
}
