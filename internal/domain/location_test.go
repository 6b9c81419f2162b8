package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestLocationReportValidate(t *testing.T) {
	tests := []struct {
		name       string
		report     LocationReport
		wantFields []string
	}{
		{
			name:   "valid with optionals",
			report: LocationReport{Latitude: 42.8746, Longitude: 74.5698, Speed: ptr(45.5), Heading: ptr(180), Accuracy: ptr(5)},
		},
		{
			name:   "bounds are inclusive",
			report: LocationReport{Latitude: -90, Longitude: 180, Speed: ptr(0), Heading: ptr(360), Accuracy: ptr(0)},
		},
		{
			name:       "latitude out of range",
			report:     LocationReport{Latitude: 95, Longitude: 74.5698},
			wantFields: []string{"latitude"},
		},
		{
			name:       "every violation reported",
			report:     LocationReport{Latitude: -91, Longitude: 181, Speed: ptr(-1), Heading: ptr(361), Accuracy: ptr(-0.5)},
			wantFields: []string{"latitude", "longitude", "speed", "heading", "accuracy"},
		},
		{
			name:       "nan is rejected",
			report:     LocationReport{Latitude: math.NaN(), Longitude: 0, Heading: ptr(math.NaN())},
			wantFields: []string{"latitude", "heading"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.report.Validate()
			if len(tt.wantFields) == 0 {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.Len(t, verr.Fields, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.True(t, verr.Has(f), "missing violation for %s", f)
			}
		})
	}
}
