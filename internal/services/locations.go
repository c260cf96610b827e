package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"biodivscope-backend-go/internal/models"
	"biodivscope-backend-go/internal/schema"
	"biodivscope-backend-go/internal/threat"
)

const (
	DefaultRadiusKm  = 10.0
	MaxRadiusKm      = 200.0
	DefaultCellLimit = 5
	MaxCellLimit     = 50

	maxNearby     = 200
	maxCandidates = 5000
)

var gridTables = map[string]string{
	"freshwater":  schema.Freshwater,
	"marine":      schema.Marine,
	"terrestrial": schema.Terrestrial,
}

type SpeciesRisk struct {
	ID           int64        `json:"id"`
	SpeciesName  string       `json:"species_name"`
	Genus        *string      `json:"genus"`
	Family       *string      `json:"family"`
	ThreatStatus *string      `json:"threat_status"`
	RiskLevel    threat.Level `json:"risk_level"`
	Latitude     float64      `json:"latitude"`
	Longitude    float64      `json:"longitude"`
	Locality     *string      `json:"locality"`
	DistanceKm   float64      `json:"distance_km"`
}

type InvasiveSighting struct {
	ID             int64   `json:"id"`
	SpeciesName    string  `json:"species_name"`
	CommonName     *string `json:"common_name"`
	ThreatLevel    *string `json:"threat_level"`
	HabitatType    *string `json:"habitat_type"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	LocationName   *string `json:"location_name"`
	ControlMethods *string `json:"control_methods"`
	ImpactSeverity *string `json:"impact_severity"`
	DistanceKm     float64 `json:"distance_km"`
}

// GridCell is one cell of a risk grid. X is longitude and Y is latitude.
type GridCell struct {
	ID         int64          `json:"id"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	DistanceKm float64        `json:"distance_km"`
	Attributes map[string]any `json:"attributes"`
}

type Locations struct {
	DB *sqlx.DB
}

func GridDomains() []string {
	domains := make([]string, 0, len(gridTables))
	for domain := range gridTables {
		domains = append(domains, domain)
	}
	sort.Strings(domains)
	return domains
}

// ClampRadius applies the default to non-positive or non-finite input and
// caps the maximum.
func ClampRadius(radiusKm float64) float64 {
	if radiusKm <= 0 || math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) {
		return DefaultRadiusKm
	}
	if radiusKm > MaxRadiusKm {
		return MaxRadiusKm
	}
	return radiusKm
}

// NearbySpecies lists IUCN records within radiusKm, closest first, with the
// threat status standardized to a risk level.
func (l Locations) NearbySpecies(ctx context.Context, lat, lon, radiusKm float64) ([]SpeciesRisk, error) {
	if !ValidCoordinate(lat, lon) {
		return nil, ErrBadRequest("Invalid coordinates")
	}
	radiusKm = ClampRadius(radiusKm)
	box := BoundsAround(lat, lon, radiusKm)
	lonLo1, lonHi1, lonLo2, lonHi2 := box.LonRanges()
	rows := []models.SpeciesThreat{}
	if err := l.DB.SelectContext(ctx, &rows, `
SELECT id, species_name, genus, family, threat_status, latitude, longitude, locality
FROM iucn_data
WHERE latitude BETWEEN $1 AND $2
  AND (longitude BETWEEN $3 AND $4 OR longitude BETWEEN $5 AND $6)
LIMIT $7
`, box.MinLat, box.MaxLat, lonLo1, lonHi1, lonLo2, lonHi2, maxCandidates); err != nil {
		return nil, WrapError(err, "query species")
	}
	return RankSpecies(rows, lat, lon, radiusKm), nil
}

// RankSpecies drops rows without coordinates or outside the radius and sorts
// the rest by distance.
func RankSpecies(rows []models.SpeciesThreat, lat, lon, radiusKm float64) []SpeciesRisk {
	items := make([]SpeciesRisk, 0, len(rows))
	for _, row := range rows {
		if !row.Latitude.Valid || !row.Longitude.Valid {
			continue
		}
		dist := DistanceKm(lat, lon, row.Latitude.Float64, row.Longitude.Float64)
		if dist > radiusKm {
			continue
		}
		items = append(items, SpeciesRisk{
			ID:           row.ID,
			SpeciesName:  row.SpeciesName.String,
			Genus:        nullableString(row.Genus),
			Family:       nullableString(row.Family),
			ThreatStatus: nullableString(row.ThreatStatus),
			RiskLevel:    threat.Standardize(row.ThreatStatus.String),
			Latitude:     row.Latitude.Float64,
			Longitude:    row.Longitude.Float64,
			Locality:     nullableString(row.Locality),
			DistanceKm:   dist,
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].DistanceKm < items[j].DistanceKm })
	if len(items) > maxNearby {
		items = items[:maxNearby]
	}
	return items
}

func (l Locations) NearbyInvasive(ctx context.Context, lat, lon, radiusKm float64) ([]InvasiveSighting, error) {
	if !ValidCoordinate(lat, lon) {
		return nil, ErrBadRequest("Invalid coordinates")
	}
	radiusKm = ClampRadius(radiusKm)
	box := BoundsAround(lat, lon, radiusKm)
	lonLo1, lonHi1, lonLo2, lonHi2 := box.LonRanges()
	rows := []models.InvasiveSpecies{}
	if err := l.DB.SelectContext(ctx, &rows, `
SELECT id, species_name, common_name, genus, family, threat_level, habitat_type,
       latitude, longitude, location_name, control_methods, impact_severity
FROM invasive_species
WHERE latitude BETWEEN $1 AND $2
  AND (longitude BETWEEN $3 AND $4 OR longitude BETWEEN $5 AND $6)
LIMIT $7
`, box.MinLat, box.MaxLat, lonLo1, lonHi1, lonLo2, lonHi2, maxCandidates); err != nil {
		return nil, WrapError(err, "query invasive species")
	}

	items := make([]InvasiveSighting, 0, len(rows))
	for _, row := range rows {
		if !row.Latitude.Valid || !row.Longitude.Valid {
			continue
		}
		dist := DistanceKm(lat, lon, row.Latitude.Float64, row.Longitude.Float64)
		if dist > radiusKm {
			continue
		}
		items = append(items, InvasiveSighting{
			ID:             row.ID,
			SpeciesName:    row.SpeciesName.String,
			CommonName:     nullableString(row.CommonName),
			ThreatLevel:    nullableString(row.ThreatLevel),
			HabitatType:    nullableString(row.HabitatType),
			Latitude:       row.Latitude.Float64,
			Longitude:      row.Longitude.Float64,
			LocationName:   nullableString(row.LocationName),
			ControlMethods: nullableString(row.ControlMethods),
			ImpactSeverity: nullableString(row.ImpactSeverity),
			DistanceKm:     dist,
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].DistanceKm < items[j].DistanceKm })
	if len(items) > maxNearby {
		items = items[:maxNearby]
	}
	return items, nil
}

// NearestCells returns the grid cells of domain closest to (lat, lon).
func (l Locations) NearestCells(ctx context.Context, domain string, lat, lon float64, limit int) ([]GridCell, error) {
	table, ok := gridTables[strings.ToLower(domain)]
	if !ok {
		return nil, ErrNotFound(fmt.Sprintf("Unknown grid domain %q", domain))
	}
	if !ValidCoordinate(lat, lon) {
		return nil, ErrBadRequest("Invalid coordinates")
	}
	if limit <= 0 {
		limit = DefaultCellLimit
	}
	if limit > MaxCellLimit {
		limit = MaxCellLimit
	}

	const order = `ORDER BY (x - $1) * (x - $1) + (y - $2) * (y - $2) LIMIT $3`
	var cells []GridCell
	switch table {
	case schema.Freshwater:
		rows := []models.FreshwaterRiskCell{}
		if err := l.DB.SelectContext(ctx, &rows, `
SELECT id, x, y, risk_level, hci_score, species_count, threat_factors
FROM freshwater_risk `+order, lon, lat, limit); err != nil {
			return nil, WrapError(err, "query freshwater grid")
		}
		for _, row := range rows {
			cells = append(cells, newGridCell(row.ID, row.X, row.Y, lat, lon, map[string]any{
				"risk_level":     nullableString(row.RiskLevel),
				"hci_score":      nullableFloat(row.HCIScore),
				"species_count":  nullableInt(row.SpeciesCount),
				"threat_factors": nullableString(row.ThreatFactors),
			}))
		}
	case schema.Marine:
		rows := []models.MarineRiskCell{}
		if err := l.DB.SelectContext(ctx, &rows, `
SELECT id, x, y, hci_value, risk_category, ecosystem_type
FROM marine_hci `+order, lon, lat, limit); err != nil {
			return nil, WrapError(err, "query marine grid")
		}
		for _, row := range rows {
			cells = append(cells, newGridCell(row.ID, row.X, row.Y, lat, lon, map[string]any{
				"hci_value":      nullableFloat(row.HCIValue),
				"risk_category":  nullableString(row.RiskCategory),
				"ecosystem_type": nullableString(row.EcosystemType),
			}))
		}
	case schema.Terrestrial:
		rows := []models.TerrestrialRiskCell{}
		if err := l.DB.SelectContext(ctx, &rows, `
SELECT id, x, y, risk_score, land_use_type, biodiversity_index
FROM terrestrial_risk `+order, lon, lat, limit); err != nil {
			return nil, WrapError(err, "query terrestrial grid")
		}
		for _, row := range rows {
			cells = append(cells, newGridCell(row.ID, row.X, row.Y, lat, lon, map[string]any{
				"risk_score":         nullableFloat(row.RiskScore),
				"land_use_type":      nullableString(row.LandUseType),
				"biodiversity_index": nullableFloat(row.BiodiversityIndex),
			}))
		}
	}
	if cells == nil {
		cells = []GridCell{}
	}
	return cells, nil
}

func newGridCell(id int64, x, y, lat, lon float64, attrs map[string]any) GridCell {
	return GridCell{
		ID:         id,
		X:          x,
		Y:          y,
		DistanceKm: DistanceKm(lat, lon, y, x),
		Attributes: attrs,
	}
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullableInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
