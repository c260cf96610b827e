package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrSourceMissing marks a dataset that is not present. The pipeline skips
// such jobs instead of failing them.
var ErrSourceMissing = errors.New("source not found")

type Source interface {
	Name() string
	Load(ctx context.Context) (Frame, error)
}

// DefaultIUCNCandidates are the locations searched for the IUCN export.
var DefaultIUCNCandidates = []string{
	"cleaned_IUCN_data.csv",
	"../data/cleaned_IUCN_data.csv",
	"data/cleaned_IUCN_data.csv",
	"database/cleaned_IUCN_data.csv",
}

// CSVSource reads the first existing file among Candidates.
type CSVSource struct {
	Label      string
	Candidates []string
}

func (s CSVSource) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return "csv"
}

func (s CSVSource) Path() (string, bool) {
	for _, path := range s.Candidates {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func (s CSVSource) Load(ctx context.Context) (Frame, error) {
	path, ok := s.Path()
	if !ok {
		return Frame{}, fmt.Errorf("%s: %w (searched %s)", s.Name(), ErrSourceMissing, strings.Join(s.Candidates, ", "))
	}
	f, err := os.Open(path)
	if err != nil {
		return Frame{}, err
	}
	defer f.Close()
	return ReadCSV(ctx, f)
}

func ReadCSV(ctx context.Context, r io.Reader) (Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, errors.New("csv has no header row")
		}
		return Frame{}, err
	}
	frame := Frame{Columns: header}
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Frame{}, err
		}
		row := make([]any, len(record))
		for i, cell := range record {
			row[i] = cell
		}
		frame.Rows = append(frame.Rows, row)
	}
	return frame, nil
}

// StaticSource serves an in-memory frame, used for the bundled sample data.
type StaticSource struct {
	Label string
	Frame Frame
}

func (s StaticSource) Name() string {
	return s.Label
}

func (s StaticSource) Load(ctx context.Context) (Frame, error) {
	return s.Frame, ctx.Err()
}

func columnsFrame(columns []string, values ...[]any) Frame {
	rows := make([][]any, 0)
	if len(values) > 0 {
		for i := range values[0] {
			row := make([]any, len(values))
			for c := range values {
				row[c] = values[c][i]
			}
			rows = append(rows, row)
		}
	}
	return Frame{Columns: columns, Rows: rows}
}

func SampleInvasiveSpecies() Frame {
	return columnsFrame(
		[]string{"species_name", "common_name", "genus", "family", "threat_level", "habitat_type",
			"latitude", "longitude", "location_name", "control_methods", "impact_severity"},
		[]any{"Phragmites australis", "Lonicera maackii", "Elaeagnus umbellata"},
		[]any{"Common Reed", "Amur Honeysuckle", "Autumn Olive"},
		[]any{"Phragmites", "Lonicera", "Elaeagnus"},
		[]any{"Poaceae", "Caprifoliaceae", "Elaeagnaceae"},
		[]any{"high", "moderate", "high"},
		[]any{"wetland", "forest", "forest edge"},
		[]any{40.0583, 40.1583, 40.2583},
		[]any{-74.4057, -74.5057, -74.6057},
		[]any{"New Jersey", "New Jersey", "New Jersey"},
		[]any{"mechanical removal", "selective herbicide", "biological control"},
		[]any{"severe", "moderate", "severe"},
	)
}

func SampleFreshwaterRisk() Frame {
	return columnsFrame(
		[]string{"x", "y", "risk_level", "hci_score", "species_count", "threat_factors"},
		[]any{-74.0, -74.1, -74.2, -74.3},
		[]any{40.0, 40.1, 40.2, 40.3},
		[]any{"high", "moderate", "low", "high"},
		[]any{0.8, 0.6, 0.3, 0.9},
		[]any{15, 12, 8, 18},
		[]any{"invasive species", "pollution", "habitat loss", "climate change"},
	)
}

func SampleMarineHCI() Frame {
	return columnsFrame(
		[]string{"x", "y", "hci_value", "risk_category", "ecosystem_type"},
		[]any{-74.0, -74.1, -74.2},
		[]any{40.0, 40.1, 40.2},
		[]any{0.7, 0.5, 0.8},
		[]any{"high", "moderate", "high"},
		[]any{"coastal", "offshore", "estuary"},
	)
}

func SampleTerrestrialRisk() Frame {
	return columnsFrame(
		[]string{"x", "y", "risk_score", "land_use_type", "biodiversity_index"},
		[]any{-74.0, -74.1, -74.2},
		[]any{40.0, 40.1, 40.2},
		[]any{0.6, 0.4, 0.7},
		[]any{"urban", "forest", "agricultural"},
		[]any{0.5, 0.8, 0.6},
	)
}
