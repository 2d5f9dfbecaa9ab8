package geocoding_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/airwatchuk/airwatch/internal/geocoding"
)

func TestNormalizePostcode(t *testing.T) {
	assert.Equal(t, "SW1A 1AA", geocoding.NormalizePostcode(" sw1a   1aa "))
	assert.Equal(t, "M1 1AE", geocoding.NormalizePostcode("m1\t1ae"))
	assert.Equal(t, "", geocoding.NormalizePostcode("   "))
}

func TestExtractPostcode(t *testing.T) {
	tests := []struct {
		placeName string
		want      string
	}{
		{"10 Downing Street, London SW1A 2AA, United Kingdom", "SW1A 2AA"},
		{"Piccadilly, Manchester M1 1AE, United Kingdom", "M1 1AE"},
		{"lowercase b15 2tt, Birmingham", "b15 2tt"},
		{"Leeds, West Yorkshire, England, United Kingdom", ""},
	}

	for _, tt := range tests {
		t.Run(tt.placeName, func(t *testing.T) {
			assert.Equal(t, tt.want, geocoding.ExtractPostcode(tt.placeName))
		})
	}
}

func TestExtractRegion(t *testing.T) {
	assert.Equal(t, "England", geocoding.ExtractRegion("Leeds, West Yorkshire, England, United Kingdom"))
	assert.Equal(t, "Greater London", geocoding.ExtractRegion("Camden, Greater London, United Kingdom"))
	assert.Equal(t, "", geocoding.ExtractRegion("Cardiff, United Kingdom"))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "London, England, GB", geocoding.DisplayName("London", "England", "GB"))
	assert.Equal(t, "London, GB", geocoding.DisplayName("London", "", "GB"))
}
