package file

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"growcore/pkg/domain"
)

var (
	plantsHeader       = []string{"name", "germination_date", "genetics", "notes", "flowering_start_date"}
	plantsHeaderLegacy = []string{"name", "germination_date", "genetics", "notes"}
)

func headerMatches(record, want []string) bool {
	if len(record) != len(want) {
		return false
	}
	for i, cell := range record {
		if strings.TrimSpace(cell) != want[i] {
			return false
		}
	}
	return true
}

// decodePlants reads either plant file layout. The header row decides the
// layout; an unrecognized header is reported and rows are attempted in the
// current five-column layout. Bad rows are skipped, never fatal.
func decodePlants(data []byte, diags *[]Diagnostic) map[string]domain.PlantRecord {
	plants := map[string]domain.PlantRecord{}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return plants
	}
	if err != nil {
		*diags = append(*diags, Diagnostic{File: plantsFileName,
			Detail: fmt.Sprintf("unreadable header row: %v", err)})
		return plants
	}
	legacy := false
	switch {
	case headerMatches(header, plantsHeader):
	case headerMatches(header, plantsHeaderLegacy):
		legacy = true
	default:
		*diags = append(*diags, Diagnostic{File: plantsFileName,
			Detail: fmt.Sprintf("unrecognized header %q: assuming current layout", strings.Join(header, ","))})
	}
	want := len(plantsHeader)
	if legacy {
		want = len(plantsHeaderLegacy)
	}

	row := 1
	for {
		record, err := reader.Read()
		row++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			*diags = append(*diags, Diagnostic{File: plantsFileName,
				Detail: fmt.Sprintf("row %d: %v", row, err)})
			continue
		}
		if len(record) != want {
			*diags = append(*diags, Diagnostic{File: plantsFileName,
				Detail: fmt.Sprintf("row %d: expected %d columns, got %d", row, want, len(record))})
			continue
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			*diags = append(*diags, Diagnostic{File: plantsFileName,
				Detail: fmt.Sprintf("row %d: empty plant name", row)})
			continue
		}
		germination, err := domain.ParseDate(record[1])
		if err != nil {
			*diags = append(*diags, Diagnostic{File: plantsFileName,
				Detail: fmt.Sprintf("row %d: germination_date: %v", row, err)})
			continue
		}
		plant := domain.PlantRecord{
			Name:            name,
			GerminationDate: germination,
			Genetics:        record[2],
			Notes:           record[3],
		}
		if !legacy {
			if cell := strings.TrimSpace(record[4]); cell != "" {
				flowering, err := domain.ParseDate(cell)
				if err != nil {
					*diags = append(*diags, Diagnostic{File: plantsFileName,
						Detail: fmt.Sprintf("row %d: flowering_start_date: %v", row, err)})
					continue
				}
				plant.FloweringStart = &flowering
			}
		}
		if _, exists := plants[name]; exists {
			*diags = append(*diags, Diagnostic{File: plantsFileName,
				Detail: fmt.Sprintf("row %d: duplicate plant %q: keeping the first", row, name)})
			continue
		}
		plants[name] = plant
	}
	return plants
}

// encodePlants always writes the current five-column layout, rows sorted by
// plant name.
func encodePlants(plants map[string]domain.PlantRecord) ([]byte, error) {
	names := make([]string, 0, len(plants))
	for name := range plants {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(plantsHeader); err != nil {
		return nil, err
	}
	for _, name := range names {
		plant := plants[name]
		flowering := ""
		if plant.FloweringStart != nil {
			flowering = domain.FormatDate(*plant.FloweringStart)
		}
		record := []string{
			plant.Name,
			domain.FormatDate(plant.GerminationDate),
			plant.Genetics,
			plant.Notes,
			flowering,
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	return buf.Bytes(), writer.Error()
}
