package registry

import (
	"testing"
	"time"
)

func TestParseRegistryHTML(t *testing.T) {
	// Sample HTML from the registry results page
	sampleHTML := `
		<html>
		<body>
		<table class="resultados">
			<tr><th>Entidad</th><th>Monto</th><th>Fecha</th></tr>
			<tr>
				<td>Cooperativa El Progreso</td>
				<td>$ 1.250.000</td>
				<td>2025-11-03</td>
			</tr>
			<tr>
				<td>Financiera del Norte</td>
				<td>$ 380.500</td>
				<td>2026-02-18</td>
			</tr>
			<tr>
				<td>malformed row</td>
				<td>n/a</td>
			</tr>
		</table>
		</body>
		</html>
	`

	records, err := parseRegistryHTML(sampleHTML)
	if err != nil {
		t.Fatalf("parseRegistryHTML() error = %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("parseRegistryHTML() got %d records, want 2", len(records))
	}

	if records[0].Entity != "Cooperativa El Progreso" {
		t.Errorf("Entity = %s, want Cooperativa El Progreso", records[0].Entity)
	}
	if records[0].Amount != 1250000 {
		t.Errorf("Amount = %f, want 1250000", records[0].Amount)
	}
	want := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
	if !records[0].ReportedDate.Equal(want) {
		t.Errorf("ReportedDate = %v, want %v", records[0].ReportedDate, want)
	}
}

func TestParseRegistryHTMLNoResults(t *testing.T) {
	records, err := parseRegistryHTML(`<html><body><p>Sin registros</p></body></html>`)
	if err != nil {
		t.Fatalf("parseRegistryHTML() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"$ 1.250.000", 1250000},
		{"$ 380.500,75", 380500.75},
		{"", 0},
		{"n/a", 0},
	}

	for _, tt := range tests {
		if got := parseAmount(tt.in); got != tt.want {
			t.Errorf("parseAmount(%q) = %f, want %f", tt.in, got, tt.want)
		}
	}
}
