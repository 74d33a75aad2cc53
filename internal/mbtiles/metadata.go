package mbtiles

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Metadata 瓦片地图元数据, written once when the archive is created
type Metadata struct {
	Name        string
	Description string
	Type        string
	Version     string
	Format      string
	MinZoom     string
	MaxZoom     string
	Bounds      orb.Bound
}

// DefaultName is stored when Metadata.Name is empty.
const DefaultName = "xyz-to-mbtiles"

// FormatBounds renders b as "west,south,east,north".
func FormatBounds(b orb.Bound) string {
	parts := []string{
		strconv.FormatFloat(b.Min[0], 'f', -1, 64),
		strconv.FormatFloat(b.Min[1], 'f', -1, 64),
		strconv.FormatFloat(b.Max[0], 'f', -1, 64),
		strconv.FormatFloat(b.Max[1], 'f', -1, 64),
	}
	return strings.Join(parts, ",")
}

// rows returns the metadata table contents in insertion order.
func (m Metadata) rows() [][2]string {
	name := m.Name
	if name == "" {
		name = DefaultName
	}
	typ := m.Type
	if typ == "" {
		typ = "overlay"
	}
	version := m.Version
	if version == "" {
		version = "1"
	}
	format := m.Format
	if format == "" {
		format = PNG
	}
	return [][2]string{
		{"bounds", FormatBounds(m.Bounds)},
		{"maxzoom", m.MaxZoom},
		{"minzoom", m.MinZoom},
		{"name", name},
		{"type", typ},
		{"version", version},
		{"description", m.Description},
		{"format", format},
	}
}
