// Package schema owns the table catalog and creates it idempotently.
package schema

import (
	"fmt"
	"strings"
)

type Kind int

const (
	KindText Kind = iota
	KindFloat
	KindInteger
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInteger:
		return "integer"
	case KindTimestamp:
		return "timestamp"
	default:
		return "text"
	}
}

type Column struct {
	Name string
	Kind Kind
	DDL  string
	// Generated columns are filled by the database and never imported.
	Generated bool
}

type Index struct {
	Name    string
	Columns []string
}

type Table struct {
	Name    string
	Columns []Column
	Indexes []Index
}

const (
	Users       = "users"
	IUCNData    = "iucn_data"
	Invasive    = "invasive_species"
	Freshwater  = "freshwater_risk"
	Marine      = "marine_hci"
	Terrestrial = "terrestrial_risk"
)

var idColumn = Column{Name: "id", Kind: KindInteger, DDL: "SERIAL PRIMARY KEY", Generated: true}

func text(name string) Column  { return Column{Name: name, Kind: KindText, DDL: "TEXT"} }
func float(name string) Column { return Column{Name: name, Kind: KindFloat, DDL: "FLOAT"} }

var catalog = []Table{
	{
		Name: Users,
		Columns: []Column{
			idColumn,
			{Name: "hotel_name", Kind: KindText, DDL: "VARCHAR(255) NOT NULL"},
			{Name: "email", Kind: KindText, DDL: "VARCHAR(255) UNIQUE NOT NULL"},
			{Name: "password", Kind: KindText, DDL: "VARCHAR(255) NOT NULL"},
			{Name: "created_at", Kind: KindTimestamp, DDL: "TIMESTAMP DEFAULT CURRENT_TIMESTAMP", Generated: true},
		},
		Indexes: []Index{{Name: "idx_users_email", Columns: []string{"email"}}},
	},
	{
		Name: IUCNData,
		Columns: []Column{
			idColumn,
			text("species_name"),
			text("genus"),
			text("family"),
			text("threat_status"),
			float("latitude"),
			float("longitude"),
			text("locality"),
		},
		Indexes: []Index{
			{Name: "idx_iucn_data_coords", Columns: []string{"latitude", "longitude"}},
			{Name: "idx_iucn_data_species", Columns: []string{"species_name"}},
		},
	},
	{
		Name: Invasive,
		Columns: []Column{
			idColumn,
			text("species_name"),
			text("common_name"),
			text("genus"),
			text("family"),
			text("threat_level"),
			text("habitat_type"),
			float("latitude"),
			float("longitude"),
			text("location_name"),
			text("control_methods"),
			text("impact_severity"),
		},
		Indexes: []Index{{Name: "idx_invasive_species_coords", Columns: []string{"latitude", "longitude"}}},
	},
	{
		Name: Freshwater,
		Columns: []Column{
			idColumn,
			float("x"),
			float("y"),
			text("risk_level"),
			float("hci_score"),
			{Name: "species_count", Kind: KindInteger, DDL: "INTEGER"},
			text("threat_factors"),
		},
		Indexes: []Index{{Name: "idx_freshwater_risk_coords", Columns: []string{"x", "y"}}},
	},
	{
		Name: Marine,
		Columns: []Column{
			idColumn,
			float("x"),
			float("y"),
			float("hci_value"),
			text("risk_category"),
			text("ecosystem_type"),
		},
		Indexes: []Index{{Name: "idx_marine_hci_coords", Columns: []string{"x", "y"}}},
	},
	{
		Name: Terrestrial,
		Columns: []Column{
			idColumn,
			float("x"),
			float("y"),
			float("risk_score"),
			text("land_use_type"),
			float("biodiversity_index"),
		},
		Indexes: []Index{{Name: "idx_terrestrial_risk_coords", Columns: []string{"x", "y"}}},
	},
}

// Tables returns a copy of the catalog in creation order.
func Tables() []Table {
	out := make([]Table, len(catalog))
	copy(out, catalog)
	return out
}

func Lookup(name string) (Table, bool) {
	for _, t := range catalog {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

func MustLookup(name string) Table {
	t, ok := Lookup(name)
	if !ok {
		panic("schema: unknown table " + name)
	}
	return t
}

func (t Table) TableDDL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", t.Name)
	for i, col := range t.Columns {
		fmt.Fprintf(&b, "  %s %s", col.Name, col.DDL)
		if i < len(t.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}

func (t Table) IndexDDL() []string {
	stmts := make([]string, 0, len(t.Indexes))
	for _, idx := range t.Indexes {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)",
			idx.Name, t.Name, strings.Join(idx.Columns, ", ")))
	}
	return stmts
}

func (t Table) Column(name string) (Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// ImportColumns lists the columns a bulk import may write, in table order.
func (t Table) ImportColumns() []Column {
	cols := make([]Column, 0, len(t.Columns))
	for _, col := range t.Columns {
		if !col.Generated {
			cols = append(cols, col)
		}
	}
	return cols
}
