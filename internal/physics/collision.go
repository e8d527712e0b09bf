package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type AABB struct {
	MinX float64
	MinY float64
	MinZ float64
	MaxX float64
	MaxY float64
	MaxZ float64
}

// BoxAABB returns the axis-aligned bounds of a box centred on pos. Box
// rotation is ignored; critters only yaw and stay near-square.
func BoxAABB(pos, half mgl64.Vec3) AABB {
	return AABB{
		MinX: pos.X() - half.X(),
		MinY: pos.Y() - half.Y(),
		MinZ: pos.Z() - half.Z(),
		MaxX: pos.X() + half.X(),
		MaxY: pos.Y() + half.Y(),
		MaxZ: pos.Z() + half.Z(),
	}
}

func intersects(a, b AABB) bool {
	return a.MinX < b.MaxX &&
		a.MaxX > b.MinX &&
		a.MinY < b.MaxY &&
		a.MaxY > b.MinY &&
		a.MinZ < b.MaxZ &&
		a.MaxZ > b.MinZ
}

// penetration returns the smallest overlap between a and b and the unit
// axis (0=x, 1=y, 2=z) pointing from b towards a along it.
func penetration(a, b AABB) (depth float64, axis int, sign float64) {
	overlaps := [3]float64{
		math.Min(a.MaxX, b.MaxX) - math.Max(a.MinX, b.MinX),
		math.Min(a.MaxY, b.MaxY) - math.Max(a.MinY, b.MinY),
		math.Min(a.MaxZ, b.MaxZ) - math.Max(a.MinZ, b.MinZ),
	}
	centres := [3]float64{
		(a.MinX + a.MaxX - b.MinX - b.MaxX) / 2,
		(a.MinY + a.MaxY - b.MinY - b.MaxY) / 2,
		(a.MinZ + a.MaxZ - b.MinZ - b.MaxZ) / 2,
	}

	axis = 0
	for i := 1; i < 3; i++ {
		if overlaps[i] < overlaps[axis] {
			axis = i
		}
	}
	sign = 1
	if centres[axis] < 0 {
		sign = -1
	}
	return overlaps[axis], axis, sign
}

func nearlyZero(v float64) bool {
	return math.Abs(v) <= CollisionAxisTolerance
}
