package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biodivscope-backend-go/internal/schema"
	"biodivscope-backend-go/internal/testutil"
)

func TestPipelineAgainstPostgres(t *testing.T) {
	database := testutil.Postgres(t)
	ctx := context.Background()
	_, err := schema.Setup(ctx, database, quietLogger())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "cleaned_IUCN_data.csv")
	require.NoError(t, os.WriteFile(path, []byte("Species, Lat, Lon, Endangered\nLynx rufus, 40.5, -74.2, Vulnerable\n"), 0o644))

	pipeline := Pipeline{Store: SQLStore{DB: database}, Jobs: DefaultJobs(path), Logger: quietLogger()}
	result := pipeline.Run(ctx)
	require.True(t, result.Success)
	assert.Equal(t, int64(1), result.Counts[schema.IUCNData])
	assert.Equal(t, int64(4), result.Counts[schema.Freshwater])

	var row struct {
		Species  string  `db:"species_name"`
		Lat      float64 `db:"latitude"`
		Lon      float64 `db:"longitude"`
		Status   string  `db:"threat_status"`
		Genus    *string `db:"genus"`
		Locality *string `db:"locality"`
	}
	require.NoError(t, database.GetContext(ctx, &row,
		`SELECT species_name, latitude, longitude, threat_status, genus, locality FROM iucn_data`))
	assert.Equal(t, "Lynx rufus", row.Species)
	assert.InDelta(t, 40.5, row.Lat, 1e-9)
	assert.Equal(t, "Vulnerable", row.Status)
	assert.Nil(t, row.Genus)
	assert.Nil(t, row.Locality)

	// appends are not deduplicated
	again := pipeline.Run(ctx)
	assert.Equal(t, int64(8), again.Counts[schema.Freshwater])
}
