package file

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"growcore/pkg/domain"
)

func date(day, month, year int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func TestDecodePlantsCurrentLayout(t *testing.T) {
	data := []byte("name,germination_date,genetics,notes,flowering_start_date\n" +
		"aurora,01.03.2025,Northern Lights,\"topped, week 3\",01.05.2025\n" +
		"borealis,08.03.2025,White Widow,,\n")
	var diags []Diagnostic
	plants := decodePlants(data, &diags)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(plants) != 2 {
		t.Fatalf("expected 2 plants, got %d", len(plants))
	}
	aurora := plants["aurora"]
	if aurora.Notes != "topped, week 3" {
		t.Fatalf("notes = %q", aurora.Notes)
	}
	if aurora.FloweringStart == nil || !aurora.FloweringStart.Equal(date(1, 5, 2025)) {
		t.Fatalf("flowering = %v", aurora.FloweringStart)
	}
	if plants["borealis"].FloweringStart != nil {
		t.Fatalf("expected unset flowering date")
	}
}

func TestDecodePlantsLegacyLayout(t *testing.T) {
	data := []byte("name,germination_date,genetics,notes\n" +
		"aurora,01.03.2025,Northern Lights,vigorous\n")
	var diags []Diagnostic
	plants := decodePlants(data, &diags)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	aurora, ok := plants["aurora"]
	if !ok {
		t.Fatalf("plant missing after decode")
	}
	if aurora.FloweringStart != nil {
		t.Fatalf("legacy rows must load with an unset flowering date")
	}
	if !aurora.GerminationDate.Equal(date(1, 3, 2025)) {
		t.Fatalf("germination = %v", aurora.GerminationDate)
	}
}

func TestDecodePlantsSkipsBadRows(t *testing.T) {
	data := []byte("name,germination_date,genetics,notes,flowering_start_date\n" +
		"aurora,01.03.2025,NL,,\n" +
		"badDate,2025-03-01,NL,,\n" +
		"shortRow,01.03.2025\n" +
		",01.03.2025,NL,,\n" +
		"aurora,02.03.2025,NL,,\n")
	var diags []Diagnostic
	plants := decodePlants(data, &diags)
	if len(plants) != 1 {
		t.Fatalf("expected only the first aurora row, got %d plants", len(plants))
	}
	if !plants["aurora"].GerminationDate.Equal(date(1, 3, 2025)) {
		t.Fatalf("duplicate must keep the first row")
	}
	if len(diags) != 4 {
		t.Fatalf("expected 4 diagnostics, got %d: %v", len(diags), diags)
	}
}

func TestDecodePlantsRejectsBadFloweringDate(t *testing.T) {
	data := []byte("name,germination_date,genetics,notes,flowering_start_date\n" +
		"aurora,01.03.2025,NL,,garbage\n")
	var diags []Diagnostic
	plants := decodePlants(data, &diags)
	if len(plants) != 0 {
		t.Fatalf("expected row skipped, got %v", plants)
	}
	if len(diags) != 1 || !strings.Contains(diags[0].Detail, "flowering_start_date") {
		t.Fatalf("expected flowering diagnostic, got %v", diags)
	}
}

func TestDecodePlantsUnknownHeaderAssumesCurrent(t *testing.T) {
	data := []byte("plant,sprouted,strain,remarks,flip\n" +
		"aurora,01.03.2025,NL,notes,\n")
	var diags []Diagnostic
	plants := decodePlants(data, &diags)
	if len(plants) != 1 {
		t.Fatalf("expected row parsed in current layout, got %d", len(plants))
	}
	if len(diags) != 1 || !strings.Contains(diags[0].Detail, "unrecognized header") {
		t.Fatalf("expected header diagnostic, got %v", diags)
	}
}

func TestDecodePlantsEmptyInput(t *testing.T) {
	var diags []Diagnostic
	if plants := decodePlants(nil, &diags); len(plants) != 0 {
		t.Fatalf("expected no plants, got %v", plants)
	}
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
}

func TestEncodePlantsRoundTrip(t *testing.T) {
	flowering := date(1, 5, 2025)
	plants := map[string]domain.PlantRecord{
		"zulu":   {Name: "zulu", GerminationDate: date(8, 3, 2025), Genetics: "WW", Notes: "notes, with comma"},
		"aurora": {Name: "aurora", GerminationDate: date(1, 3, 2025), Genetics: "NL", FloweringStart: &flowering},
	}
	data, err := encodePlants(plants)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != strings.Join(plantsHeader, ",") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "aurora,") {
		t.Fatalf("rows not sorted by name: %q", lines[1])
	}

	var diags []Diagnostic
	decoded := decodePlants(data, &diags)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if !reflect.DeepEqual(decoded, plants) {
		t.Fatalf("round trip changed records:\n got %+v\nwant %+v", decoded, plants)
	}
}
