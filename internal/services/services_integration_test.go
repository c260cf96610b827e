package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biodivscope-backend-go/internal/importer"
	"biodivscope-backend-go/internal/schema"
	"biodivscope-backend-go/internal/testutil"
	"biodivscope-backend-go/internal/threat"
)

func seededDatabase(t *testing.T) *sqlx.DB {
	t.Helper()
	database := testutil.Postgres(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := schema.Setup(ctx, database, logger)
	require.NoError(t, err)

	result := importer.Pipeline{
		Store:  importer.SQLStore{DB: database},
		Jobs:   importer.DefaultJobs()[1:],
		Logger: logger,
	}.Run(ctx)
	require.True(t, result.Success)

	_, err = database.ExecContext(ctx, `
INSERT INTO iucn_data (species_name, threat_status, latitude, longitude, locality) VALUES
  ('Glyptemys muhlenbergii', 'Critically Endangered', 40.06, -74.40, 'Pine Barrens'),
  ('Charadrius melodus', 'Near Threatened', 40.10, -74.40, NULL),
  ('Ambystoma tigrinum', 'Endangered', 41.50, -74.40, NULL)
`)
	require.NoError(t, err)
	return database
}

func TestAccountsAgainstPostgres(t *testing.T) {
	database := seededDatabase(t)
	ctx := context.Background()
	accounts := Accounts{DB: database, Tokens: testTokens()}

	created, err := accounts.Signup(ctx, SignupInput{HotelName: "Seaside Inn", Email: "Desk@Seaside.test", Password: "password1"})
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.Equal(t, "desk@seaside.test", created.Email)

	_, err = accounts.Signup(ctx, SignupInput{HotelName: "Copycat", Email: "desk@seaside.test", Password: "password2"})
	var serr ServiceError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, 409, serr.Status)

	session, err := accounts.Login(ctx, "DESK@seaside.test", "password1")
	require.NoError(t, err)
	assert.Equal(t, created, session.User)
	assert.NotEmpty(t, session.Token)

	claims, err := accounts.Tokens.ParseAccessToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.UserID)

	_, err = accounts.Login(ctx, "desk@seaside.test", "wrong-password")
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, 401, serr.Status)

	_, err = accounts.Login(ctx, "nobody@seaside.test", "password1")
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, 401, serr.Status)

	got, err := accounts.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = accounts.Get(ctx, created.ID+1000)
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, 404, serr.Status)
}

func TestLocationsAgainstPostgres(t *testing.T) {
	database := seededDatabase(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	locations := Locations{DB: database}

	species, err := locations.NearbySpecies(ctx, 40.0583, -74.4057, 10)
	require.NoError(t, err)
	require.Len(t, species, 2)
	assert.Equal(t, "Glyptemys muhlenbergii", species[0].SpeciesName)
	assert.Equal(t, threat.High, species[0].RiskLevel)
	require.NotNil(t, species[0].Locality)
	assert.Equal(t, "Pine Barrens", *species[0].Locality)
	assert.Equal(t, "Charadrius melodus", species[1].SpeciesName)
	assert.Equal(t, threat.Moderate, species[1].RiskLevel)

	invasive, err := locations.NearbyInvasive(ctx, 40.0583, -74.4057, 5)
	require.NoError(t, err)
	require.Len(t, invasive, 1)
	assert.Equal(t, "Phragmites australis", invasive[0].SpeciesName)
	assert.InDelta(t, 0, invasive[0].DistanceKm, 0.01)

	cells, err := locations.NearestCells(ctx, "freshwater", 40.0, -74.0, 2)
	require.NoError(t, err)
	require.Len(t, cells, 2)
	assert.Equal(t, -74.0, cells[0].X)
	assert.Equal(t, 40.0, cells[0].Y)
	require.IsType(t, (*int64)(nil), cells[0].Attributes["species_count"])
	assert.Equal(t, int64(15), *cells[0].Attributes["species_count"].(*int64))
	assert.Equal(t, -74.1, cells[1].X)

	for _, domain := range GridDomains() {
		cells, err := locations.NearestCells(ctx, domain, 40.2, -74.2, 0)
		require.NoError(t, err, domain)
		require.NotEmpty(t, cells, domain)
		assert.Equal(t, -74.2, cells[0].X, domain)
	}
}
