package demo

import (
	"math"

	"github.com/chazu/objbridge/meta"
)

// Point is a plain Go value with no metaobject. Scripts see it through a
// PointAdapter created by PointFactory.
type Point struct {
	X, Y float64
}

// PointAdapter exposes a *Point to scripts.
type PointAdapter struct {
	meta.Base

	Point *Point
}

// NewPointAdapter wraps p.
func NewPointAdapter(p *Point) *PointAdapter {
	a := &PointAdapter{Point: p}
	meta.Init(a)
	return a
}

func (a *PointAdapter) X() float64 { return a.Point.X }

func (a *PointAdapter) Y() float64 { return a.Point.Y }

// Length returns the distance from the origin.
func (a *PointAdapter) Length() float64 {
	return math.Hypot(a.Point.X, a.Point.Y)
}

// Translate moves the point in place.
func (a *PointAdapter) Translate(dx, dy float64) {
	a.Point.X += dx
	a.Point.Y += dy
}

// PointFactory adapts *Point values declared as "Point". It has the shape
// of a bridge wrapper factory.
func PointFactory(typeName string, ptr any) meta.Object {
	if typeName != "Point" {
		return nil
	}
	p, ok := ptr.(*Point)
	if !ok || p == nil {
		return nil
	}
	return NewPointAdapter(p)
}
