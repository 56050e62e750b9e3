// Package kernel implements the escape-time iteration for a single point.
//
// Evaluate is the host reference of the per-lane algorithm. Source holds
// the same lane as a WGSL compute program for device backends; both must
// perform the operations in the same order so that results agree.
package kernel

// EscapeRadiusSquared bounds |z|² before a point is considered escaped.
const EscapeRadiusSquared float32 = 4

// InInterior reports whether c = x0 + i·y0 lies inside the main cardioid,
// where the orbit is known to stay bounded.
func InInterior(x0, y0 float32) bool {
	xq := x0 - 0.25
	yy := float32(y0 * y0)
	q := float32(xq*xq) + yy
	return float32(q*float32(q+xq)) < float32(0.25*yy)
}

// Evaluate returns the number of iterations of z ← z² + c, starting at
// z = 0, that c = x0 + i·y0 survives before |z|² exceeds 4, capped at
// maxIter. Interior points return maxIter without iterating.
//
// Every product is converted explicitly so the compiler cannot fuse it
// into a multiply-add; fused rounding shifts escape timing.
func Evaluate(x0, y0 float32, maxIter int32) int32 {
	if InInterior(x0, y0) {
		return maxIter
	}

	var x, y, x2, y2 float32
	var it int32
	for x2+y2 <= EscapeRadiusSquared && it < maxIter {
		y = float32(2*x*y) + y0
		x = x2 - y2 + x0
		x2 = float32(x * x)
		y2 = float32(y * y)
		it++
	}
	return it
}
