package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalParish(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Orleans", "Orleans Parish"},
		{"ORLEANS", "Orleans Parish"},
		{"  orleans   parish ", "Orleans Parish"},
		{"East Baton Rouge Parish, Louisiana", "East Baton Rouge Parish"},
		{"DE SOTO", "De Soto Parish"},
		{"De Soto Parish", "De Soto Parish"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalParish(tt.in))
		})
	}
}

func TestCanonicalParishWithAliases(t *testing.T) {
	aliases := map[string]string{"DeSoto": "De Soto Parish", "la salle": "LaSalle"}

	assert.Equal(t, "De Soto Parish", CanonicalParishWithAliases("DESOTO", aliases))
	assert.Equal(t, "Lasalle Parish", CanonicalParishWithAliases("La Salle Parish", aliases))
	assert.Equal(t, "Caddo Parish", CanonicalParishWithAliases("Caddo", aliases))
	assert.Equal(t, "Caddo Parish", CanonicalParishWithAliases("Caddo", nil))
}

func TestYearFromPeriodLabel(t *testing.T) {
	tests := []struct {
		label   string
		want    int
		wantErr bool
	}{
		{label: "Jan-15", want: 2015},
		{label: "2015-01", want: 2015},
		{label: "201506", want: 2015},
		{label: "2019-12-31", want: 2019},
		{label: " Dec-09 ", want: 2009},
		{label: "", wantErr: true},
		{label: "Total", wantErr: true},
		{label: "Q3-5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := YearFromPeriodLabel(tt.label)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"52000", 52000, true},
		{"61,250", 61250, true},
		{"250,000+", 250000, true},
		{"$1,200", 1200, true},
		{"3.5", 3.5, true},
		{"-", 0, false},
		{"", 0, false},
		{"N", 0, false},
		{"NaN", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLetterForScore(t *testing.T) {
	assert.Equal(t, "A", LetterForScore(104.2))
	assert.Equal(t, "B", LetterForScore(75))
	assert.Equal(t, "C", LetterForScore(74.9))
	assert.Equal(t, "D", LetterForScore(50))
	assert.Equal(t, "F", LetterForScore(12))
}

func TestLetterGradeColumn(t *testing.T) {
	header := []string{"District", "DPS", "2017 DPS Letter Grade", "2018 Letter Grade"}
	assert.Equal(t, 2, letterGradeColumn(header, 2017))
	assert.Equal(t, 3, letterGradeColumn(header, 2018))
	assert.Equal(t, -1, letterGradeColumn(header, 2016))
}
