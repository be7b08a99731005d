// Package geo maps coordinates onto a fixed-resolution hexagonal grid of
// "beacons". The mapping is pure and deterministic: the cell resolution is a
// compile-time constant because changing it would invalidate every stored
// beacon id and the aggregates keyed by them.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrInvalidCoordinate = errors.New("geo: invalid coordinate")
	ErrUnknownBeacon     = errors.New("geo: unknown beacon id")
)

const (
	// resolution tags the id format; bumping it is a breaking change.
	resolution = 9
	// edgeMeters is the hexagon edge (circumradius), ~150 m per cell.
	edgeMeters = 150.0
	// metersPerDegree converts degrees to planar meters. Cells narrow
	// toward the poles; adjacency and determinism are unaffected.
	metersPerDegree = 111320.0

	idPrefix = "b9:"
)

var sqrt3 = math.Sqrt(3)

// BeaconID identifies one hex cell, formatted "b9:<q>:<r>" in axial
// coordinates.
type BeaconID = string

// CellID buckets a coordinate into its beacon. Two coordinates share an id
// iff they fall in the same cell.
func CellID(lat, lng float64) (BeaconID, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) ||
		lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return "", fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinate, lat, lng)
	}
	x := lng * metersPerDegree
	y := lat * metersPerDegree

	// pointy-top axial coordinates
	qf := (sqrt3/3*x - y/3) / edgeMeters
	rf := (2.0 / 3 * y) / edgeMeters
	q, r := hexRound(qf, rf)
	return fmt.Sprintf("%s%d:%d", idPrefix, q, r), nil
}

// CellCenter returns the centroid of a beacon, the representative point used
// for map markers.
func CellCenter(id BeaconID) (lat, lng float64, err error) {
	q, r, err := parse(id)
	if err != nil {
		return 0, 0, err
	}
	x := edgeMeters * (sqrt3*float64(q) + sqrt3/2*float64(r))
	y := edgeMeters * (1.5 * float64(r))
	return y / metersPerDegree, x / metersPerDegree, nil
}

// Neighbors returns the cell itself plus its six adjacent cells. Order is not
// significant.
func Neighbors(id BeaconID) ([]BeaconID, error) {
	q, r, err := parse(id)
	if err != nil {
		return nil, err
	}
	dirs := [...][2]int64{{0, 0}, {1, 0}, {1, -1}, {0, -1}, {-1, 0}, {-1, 1}, {0, 1}}
	out := make([]BeaconID, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, fmt.Sprintf("%s%d:%d", idPrefix, q+d[0], r+d[1]))
	}
	return out, nil
}

// Distance is the grid distance between two beacons, in cells.
func Distance(a, b BeaconID) (int, error) {
	qa, ra, err := parse(a)
	if err != nil {
		return 0, err
	}
	qb, rb, err := parse(b)
	if err != nil {
		return 0, err
	}
	dq := float64(qa - qb)
	dr := float64(ra - rb)
	ds := -dq - dr
	return int((math.Abs(dq) + math.Abs(dr) + math.Abs(ds)) / 2), nil
}

func parse(id BeaconID) (q, r int64, err error) {
	rest, ok := strings.CutPrefix(id, idPrefix)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownBeacon, id)
	}
	parts := strings.Split(rest, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownBeacon, id)
	}
	if q, err = strconv.ParseInt(parts[0], 10, 64); err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownBeacon, id)
	}
	if r, err = strconv.ParseInt(parts[1], 10, 64); err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownBeacon, id)
	}
	return q, r, nil
}

// hexRound snaps fractional axial coordinates to the containing cell
// (cube rounding).
func hexRound(qf, rf float64) (int64, int64) {
	sf := -qf - rf
	q := math.Round(qf)
	r := math.Round(rf)
	s := math.Round(sf)

	dq := math.Abs(q - qf)
	dr := math.Abs(r - rf)
	ds := math.Abs(s - sf)

	switch {
	case dq > dr && dq > ds:
		q = -r - s
	case dr > ds:
		r = -q - s
	}
	return int64(q), int64(r)
}
