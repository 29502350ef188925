// Package geo ingests site positions from GeoJSON or CSV, reprojects them
// from WGS84 (EPSG:4326) to Web Mercator (EPSG:3857), and normalizes them
// into the bounded drawing box consumed by the rest of the layout pipeline,
// per spec §4.B.
package geo

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"

	apperrors "github.com/tanglegram/tangleopt/pkg/errors"
	"github.com/tanglegram/tangleopt/pkg/model"
)

// RawSite is a site as read from the input, before reprojection.
type RawSite struct {
	Lon, Lat float64
	Props    map[string]interface{}
}

// Bounds is the mercator bounding box of a set of sites, plus the padded
// box used for background-map fetches by the (external) SVG renderer.
type Bounds struct {
	MinX, MaxX, MinY, MaxY float64
	PaddedMinX, PaddedMaxX float64
	PaddedMinY, PaddedMaxY float64
}

// LoadGeoJSON decodes a GeoJSON FeatureCollection and extracts one RawSite
// per Point-geometry feature, carrying the feature's properties along.
func LoadGeoJSON(r io.Reader) ([]RawSite, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInputParse, "failed to read geo input", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInputParse, "failed to parse GeoJSON FeatureCollection", err)
	}

	sites := make([]RawSite, 0, len(fc.Features))
	for i, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			return nil, apperrors.Newf(apperrors.CodeInputParse,
				"feature %d has non-point geometry %T, only Point features are supported", i, f.Geometry)
		}
		sites = append(sites, RawSite{
			Lon:   pt[0],
			Lat:   pt[1],
			Props: map[string]interface{}(f.Properties),
		})
	}
	return sites, nil
}

// LoadCSV decodes a CSV file with `lat,lon` header columns (case
// insensitive); any other columns become string-valued properties.
func LoadCSV(r io.Reader) ([]RawSite, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInputParse, "failed to read CSV header", err)
	}

	latCol, lonCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "lat", "latitude":
			latCol = i
		case "lon", "lng", "longitude":
			lonCol = i
		}
	}
	if latCol == -1 || lonCol == -1 {
		return nil, apperrors.New(apperrors.CodeInputParse, "CSV must have lat and lon columns")
	}

	var sites []RawSite
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInputParse, fmt.Sprintf("failed to read CSV row %d", row), err)
		}
		row++

		lat, err := strconv.ParseFloat(strings.TrimSpace(record[latCol]), 64)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInputParse, fmt.Sprintf("invalid lat at row %d", row), err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(record[lonCol]), 64)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInputParse, fmt.Sprintf("invalid lon at row %d", row), err)
		}

		props := make(map[string]interface{}, len(header))
		for i, h := range header {
			if i == latCol || i == lonCol || i >= len(record) {
				continue
			}
			props[h] = record[i]
		}
		sites = append(sites, RawSite{Lon: lon, Lat: lat, Props: props})
	}
	return sites, nil
}

// Reproject converts (lon, lat) pairs to Web Mercator, then flips y so it
// grows downward (screen convention), per spec §4.B.
func Reproject(sites []RawSite) []orb.Point {
	pts := make([]orb.Point, len(sites))
	for i, s := range sites {
		merc := project.Point(orb.Point{s.Lon, s.Lat}, project.WGS84.ToMercator)
		pts[i] = orb.Point{merc[0], -merc[1]}
	}
	return pts
}

// ComputeBounds returns the raw bbox of pts and a padded bbox expanded by
// paddingFraction of the larger dimension on each side.
func ComputeBounds(pts []orb.Point, paddingFraction float64) (Bounds, error) {
	if paddingFraction < 0 || paddingFraction > 1 {
		return Bounds{}, apperrors.Newf(apperrors.CodeConfigInvalid,
			"padding_fraction must be in [0,1], got %v", paddingFraction)
	}
	if len(pts) == 0 {
		return Bounds{}, apperrors.New(apperrors.CodeInputParse, "no sites to compute bounds from")
	}

	b := Bounds{MinX: pts[0][0], MaxX: pts[0][0], MinY: pts[0][1], MaxY: pts[0][1]}
	for _, p := range pts[1:] {
		if p[0] < b.MinX {
			b.MinX = p[0]
		}
		if p[0] > b.MaxX {
			b.MaxX = p[0]
		}
		if p[1] < b.MinY {
			b.MinY = p[1]
		}
		if p[1] > b.MaxY {
			b.MaxY = p[1]
		}
	}

	width := b.MaxX - b.MinX
	height := b.MaxY - b.MinY
	span := width
	if height > span {
		span = height
	}
	if span <= 0 {
		span = 1 // degenerate bbox floor, avoids a zero-size scale transform
	}
	pad := span * paddingFraction
	b.PaddedMinX, b.PaddedMaxX = b.MinX-pad, b.MaxX+pad
	b.PaddedMinY, b.PaddedMaxY = b.MinY-pad, b.MaxY+pad
	return b, nil
}

// ToDrawSpace scales the padded bbox into a boxSize x boxSize-ish drawing
// box, preserving aspect ratio, and attaches each site's name (if present
// under the "name" property).
func ToDrawSpace(pts []orb.Point, sites []RawSite, b Bounds, boxSize float64) []model.Site {
	width := b.PaddedMaxX - b.PaddedMinX
	height := b.PaddedMaxY - b.PaddedMinY
	span := width
	if height > span {
		span = height
	}
	if span <= 0 {
		span = 1
	}
	scale := boxSize / span

	out := make([]model.Site, len(pts))
	for i, p := range pts {
		name := ""
		if sites != nil && i < len(sites) {
			if v, ok := sites[i].Props["name"]; ok {
				if s, ok := v.(string); ok {
					name = s
				}
			}
		}
		out[i] = model.Site{
			X:    (p[0] - b.PaddedMinX) * scale,
			Y:    (p[1] - b.PaddedMinY) * scale,
			Name: name,
		}
	}
	return out
}
