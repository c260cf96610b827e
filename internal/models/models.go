package models

import (
	"database/sql"
	"time"
)

type User struct {
	ID        int64     `db:"id"`
	HotelName string    `db:"hotel_name"`
	Email     string    `db:"email"`
	Password  string    `db:"password"`
	CreatedAt time.Time `db:"created_at"`
}

type SpeciesThreat struct {
	ID           int64           `db:"id"`
	SpeciesName  sql.NullString  `db:"species_name"`
	Genus        sql.NullString  `db:"genus"`
	Family       sql.NullString  `db:"family"`
	ThreatStatus sql.NullString  `db:"threat_status"`
	Latitude     sql.NullFloat64 `db:"latitude"`
	Longitude    sql.NullFloat64 `db:"longitude"`
	Locality     sql.NullString  `db:"locality"`
}

type InvasiveSpecies struct {
	ID             int64           `db:"id"`
	SpeciesName    sql.NullString  `db:"species_name"`
	CommonName     sql.NullString  `db:"common_name"`
	Genus          sql.NullString  `db:"genus"`
	Family         sql.NullString  `db:"family"`
	ThreatLevel    sql.NullString  `db:"threat_level"`
	HabitatType    sql.NullString  `db:"habitat_type"`
	Latitude       sql.NullFloat64 `db:"latitude"`
	Longitude      sql.NullFloat64 `db:"longitude"`
	LocationName   sql.NullString  `db:"location_name"`
	ControlMethods sql.NullString  `db:"control_methods"`
	ImpactSeverity sql.NullString  `db:"impact_severity"`
}

type FreshwaterRiskCell struct {
	ID            int64           `db:"id"`
	X             float64         `db:"x"`
	Y             float64         `db:"y"`
	RiskLevel     sql.NullString  `db:"risk_level"`
	HCIScore      sql.NullFloat64 `db:"hci_score"`
	SpeciesCount  sql.NullInt64   `db:"species_count"`
	ThreatFactors sql.NullString  `db:"threat_factors"`
}

type MarineRiskCell struct {
	ID            int64           `db:"id"`
	X             float64         `db:"x"`
	Y             float64         `db:"y"`
	HCIValue      sql.NullFloat64 `db:"hci_value"`
	RiskCategory  sql.NullString  `db:"risk_category"`
	EcosystemType sql.NullString  `db:"ecosystem_type"`
}

type TerrestrialRiskCell struct {
	ID                int64           `db:"id"`
	X                 float64         `db:"x"`
	Y                 float64         `db:"y"`
	RiskScore         sql.NullFloat64 `db:"risk_score"`
	LandUseType       sql.NullString  `db:"land_use_type"`
	BiodiversityIndex sql.NullFloat64 `db:"biodiversity_index"`
}
