package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/geopin-service/internal/domain"
)

func TestFoldText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Lado Ímpar", "lado impar"},
		{"  até 199 ", "ate 199"},
		{"São José dos Pinhais", "sao jose dos pinhais"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FoldText(tt.in))
		})
	}
}

func TestRuneLen(t *testing.T) {
	assert.Equal(t, 3, RuneLen("São"))
	assert.Equal(t, 0, RuneLen(""))
}

func TestSamePoint(t *testing.T) {
	praca := domain.GeoPoint{Lat: -25.4284, Lng: -49.2733}
	assert.True(t, SamePoint(praca, domain.GeoPoint{Lat: -25.42845, Lng: -49.27335}, 0.0001))
	assert.False(t, SamePoint(praca, domain.GeoPoint{Lat: -25.4290, Lng: -49.2733}, 0.0001))
	assert.False(t, SamePoint(domain.NoPoint(), domain.NoPoint(), 0.0001))
}

func TestDistanceKm(t *testing.T) {
	// Curitiba -> São Paulo, roughly 340 km
	d := DistanceKm(domain.GeoPoint{Lat: -25.4284, Lng: -49.2733}, domain.GeoPoint{Lat: -23.5505, Lng: -46.6333})
	assert.InDelta(t, 340, d, 15)
}

func TestIsImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpeg := []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")

	assert.True(t, IsImage(png))
	assert.True(t, IsImage(jpeg))
	assert.False(t, IsImage([]byte("<!DOCTYPE html><html><body>Too Many Requests</body></html>")))
	assert.False(t, IsImage([]byte(`{"error":"rate limited"}`)))
	assert.False(t, IsImage(nil))
}
