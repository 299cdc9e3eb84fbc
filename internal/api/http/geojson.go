package httpapi

import (
	geojson "github.com/paulmach/go.geojson"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/community"
)

// markersGeoJSON renders markers as a FeatureCollection of points.
func markersGeoJSON(markers []community.Marker) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, m := range markers {
		f := geojson.NewPointFeature([]float64{m.Report.Lng, m.Report.Lat})
		f.ID = m.Report.ID
		f.SetProperty("count", m.Count)
		f.SetProperty("conditions", m.Report.Conditions)
		f.SetProperty("timestamp", m.Report.TimestampMillis())
		if m.Report.Temp != nil {
			f.SetProperty("temp", *m.Report.Temp)
		}
		fc.AddFeature(f)
	}
	return fc.MarshalJSON()
}
