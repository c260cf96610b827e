package services

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"biodivscope-backend-go/internal/models"
	"biodivscope-backend-go/internal/threat"
)

func testTokens() TokenService {
	return TokenService{Secret: []byte("test-secret"), Issuer: "biodivscope-test", AccessTTL: time.Hour}
}

func TestHashAndVerifyPassword(t *testing.T) {
	tokens := testTokens()
	hash, err := tokens.HashPassword("correct horse")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$v=19$m=65536,t=3,p=1$")

	assert.True(t, tokens.VerifyPassword("correct horse", hash))
	assert.False(t, tokens.VerifyPassword("wrong horse", hash))

	other, err := tokens.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salt must differ")
}

func TestVerifyPasswordBcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("legacy-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	tokens := testTokens()
	assert.True(t, tokens.VerifyPassword("legacy-pass", string(hash)))
	assert.False(t, tokens.VerifyPassword("nope", string(hash)))
}

func TestVerifyPasswordMalformed(t *testing.T) {
	tokens := testTokens()
	for _, hash := range []string{
		"",
		"$argon2id$v=19$m=65536$salt",
		"$argon2id$v=19$m=x,t=3,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$t=3,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=3,p=1$!!$a2V5",
	} {
		assert.False(t, tokens.VerifyPassword("anything", hash), hash)
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tokens := testTokens()
	token, err := tokens.CreateAccessToken(AccountClaims{UserID: 42, Email: "desk@hotel.test", HotelName: "Seaside Inn"})
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)
	assert.Greater(t, token.ExpiresAt, time.Now().Unix())

	claims, err := tokens.ParseAccessToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, AccountClaims{UserID: 42, Email: "desk@hotel.test", HotelName: "Seaside Inn"}, claims)
}

func TestParseAccessTokenRejects(t *testing.T) {
	tokens := testTokens()
	valid, err := tokens.CreateAccessToken(AccountClaims{UserID: 1})
	require.NoError(t, err)

	wrongSecret := tokens
	wrongSecret.Secret = []byte("other")
	_, err = wrongSecret.ParseAccessToken(valid.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := tokens
	wrongIssuer.Issuer = "someone-else"
	_, err = wrongIssuer.ParseAccessToken(valid.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := tokens
	expired.AccessTTL = -time.Minute
	old, err := expired.CreateAccessToken(AccountClaims{UserID: 1})
	require.NoError(t, err)
	_, err = tokens.ParseAccessToken(old.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": tokens.Issuer, "sub": "1", "typ": "refresh",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := refresh.SignedString(tokens.Secret)
	require.NoError(t, err)
	_, err = tokens.ParseAccessToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.ParseAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignupInputNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      SignupInput
		wantErr string
	}{
		{name: "valid", in: SignupInput{HotelName: " Seaside Inn ", Email: " Desk@Hotel.Test ", Password: "password1"}},
		{name: "missing hotel", in: SignupInput{Email: "a@b.test", Password: "password1"}, wantErr: "required"},
		{name: "missing email", in: SignupInput{HotelName: "x", Password: "password1"}, wantErr: "required"},
		{name: "bad email", in: SignupInput{HotelName: "x", Email: "not-an-email", Password: "password1"}, wantErr: "Invalid email"},
		{name: "short password", in: SignupInput{HotelName: "x", Email: "a@b.test", Password: "short"}, wantErr: "at least 8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.normalize()
			if tt.wantErr != "" {
				require.Error(t, err)
				var serr ServiceError
				require.True(t, errors.As(err, &serr))
				assert.Equal(t, 400, serr.Status)
				assert.Contains(t, serr.Message, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Seaside Inn", got.HotelName)
			assert.Equal(t, "desk@hotel.test", got.Email)
		})
	}
}

func TestServiceErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{ErrBadRequest("x"), 400},
		{ErrUnauthorized("x"), 401},
		{ErrNotFound("x"), 404},
		{ErrConflict("x"), 409},
		{ErrUnavailable("x"), 503},
	}
	for _, tt := range tests {
		var serr ServiceError
		require.True(t, errors.As(tt.err, &serr))
		assert.Equal(t, tt.status, serr.Status)
		assert.Equal(t, "x", tt.err.Error())
	}

	assert.Nil(t, WrapError(nil, "ctx"))
	wrapped := WrapError(sql.ErrNoRows, "load user")
	assert.ErrorIs(t, wrapped, sql.ErrNoRows)
	assert.Equal(t, "load user: sql: no rows in result set", wrapped.Error())
}

func TestDistanceKm(t *testing.T) {
	assert.InDelta(t, 0, DistanceKm(40, -74, 40, -74), 1e-9)
	// Trenton to Newark
	assert.InDelta(t, 75.8, DistanceKm(40.2206, -74.7597, 40.7357, -74.1724), 1)
	// one degree of latitude
	assert.InDelta(t, 111.2, DistanceKm(40, -74, 41, -74), 0.5)
}

func TestBoundsAround(t *testing.T) {
	box := BoundsAround(40, -74, 10)
	assert.Less(t, box.MinLat, 40.0)
	assert.Greater(t, box.MaxLat, 40.0)
	assert.Less(t, box.MinLon, -74.0)
	assert.Greater(t, box.MaxLon, -74.0)

	// every point on the radius lies inside the box
	for _, p := range [][2]float64{{box.MinLat, -74}, {box.MaxLat, -74}, {40, box.MinLon}, {40, box.MaxLon}} {
		assert.GreaterOrEqual(t, DistanceKm(40, -74, p[0], p[1]), 9.9)
	}

	polar := BoundsAround(90, 0, 10)
	assert.Equal(t, 90.0, polar.MaxLat)
	assert.Equal(t, -180.0, polar.MinLon)
	assert.Equal(t, 180.0, polar.MaxLon)
}

func TestBoundsAroundAntimeridian(t *testing.T) {
	inRange := func(box BoundingBox, lon float64) bool {
		lo1, hi1, lo2, hi2 := box.LonRanges()
		return (lon >= lo1 && lon <= hi1) || (lon >= lo2 && lon <= hi2)
	}

	east := BoundsAround(0, 179.95, 20)
	assert.Greater(t, east.MinLon, east.MaxLon)
	assert.GreaterOrEqual(t, east.MinLon, -180.0)
	assert.LessOrEqual(t, east.MaxLon, 180.0)
	require.Less(t, DistanceKm(0, 179.95, 0, -179.95), 20.0)
	assert.True(t, inRange(east, -179.95))
	assert.True(t, inRange(east, 179.9))
	assert.False(t, inRange(east, 0))

	west := BoundsAround(0, -179.95, 20)
	assert.True(t, inRange(west, 179.95))
	assert.True(t, inRange(west, -179.9))
	assert.False(t, inRange(west, -170))

	plain := BoundsAround(40, -74, 10)
	lo1, hi1, lo2, hi2 := plain.LonRanges()
	assert.Equal(t, lo1, lo2)
	assert.Equal(t, hi1, hi2)
	assert.Equal(t, plain.MinLon, lo1)
}

func TestValidCoordinate(t *testing.T) {
	assert.True(t, ValidCoordinate(40.0583, -74.4057))
	assert.True(t, ValidCoordinate(-90, 180))
	assert.False(t, ValidCoordinate(91, 0))
	assert.False(t, ValidCoordinate(0, -181))
}

func TestClampRadius(t *testing.T) {
	assert.Equal(t, DefaultRadiusKm, ClampRadius(0))
	assert.Equal(t, DefaultRadiusKm, ClampRadius(-3))
	assert.Equal(t, 25.0, ClampRadius(25))
	assert.Equal(t, MaxRadiusKm, ClampRadius(10_000))
	assert.Equal(t, DefaultRadiusKm, ClampRadius(math.NaN()))
	assert.Equal(t, DefaultRadiusKm, ClampRadius(math.Inf(1)))
	assert.Equal(t, DefaultRadiusKm, ClampRadius(math.Inf(-1)))
}

func TestRankSpecies(t *testing.T) {
	str := func(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }
	num := func(f float64) sql.NullFloat64 { return sql.NullFloat64{Float64: f, Valid: true} }
	rows := []models.SpeciesThreat{
		{ID: 1, SpeciesName: str("Far Away Frog"), ThreatStatus: str("Endangered"), Latitude: num(41.5), Longitude: num(-74)},
		{ID: 2, SpeciesName: str("Near Newt"), ThreatStatus: str("Vulnerable"), Latitude: num(40.01), Longitude: num(-74)},
		{ID: 3, SpeciesName: str("Nowhere Nuthatch"), ThreatStatus: str("Least Concern")},
		{ID: 4, SpeciesName: str("Close Crane"), Latitude: num(40.05), Longitude: num(-74)},
	}

	got := RankSpecies(rows, 40, -74, 10)

	require.Len(t, got, 2)
	assert.Equal(t, "Near Newt", got[0].SpeciesName)
	assert.Equal(t, threat.Moderate, got[0].RiskLevel)
	require.NotNil(t, got[0].ThreatStatus)
	assert.Equal(t, "Vulnerable", *got[0].ThreatStatus)
	assert.Equal(t, "Close Crane", got[1].SpeciesName)
	assert.Equal(t, threat.Low, got[1].RiskLevel)
	assert.Nil(t, got[1].ThreatStatus)
	assert.Less(t, got[0].DistanceKm, got[1].DistanceKm)
}

func TestGridDomains(t *testing.T) {
	assert.Equal(t, []string{"freshwater", "marine", "terrestrial"}, GridDomains())
}

func TestNearestCellsUnknownDomain(t *testing.T) {
	_, err := Locations{}.NearestCells(context.Background(), "lunar", 40, -74, 5)
	var serr ServiceError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, 404, serr.Status)
}

func TestNearbyRejectsInvalidCoordinates(t *testing.T) {
	_, err := Locations{}.NearbySpecies(context.Background(), 200, 0, 5)
	var serr ServiceError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, 400, serr.Status)

	_, err = Locations{}.NearbyInvasive(context.Background(), 0, 500, 5)
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, 400, serr.Status)
}

func TestCaptureHostStats(t *testing.T) {
	stats := CaptureHostStats(context.Background(), t.TempDir())
	assert.NotEmpty(t, stats.GoVersion)
	assert.Positive(t, stats.Goroutines)
	assert.Positive(t, stats.HeapAllocBytes)
	assert.False(t, stats.CapturedAt.IsZero())
}
