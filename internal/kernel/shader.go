package kernel

// Entry is the name of the escape-time entry point in Source.
const Entry = "escape"

// WorkgroupSize is the number of lanes per workgroup declared by Source.
const WorkgroupSize = 256

// Argument positions of Entry, in binding order. Buffers come first and
// bind to @binding(0..2); the two scalars are packed, in order, into the
// uniform at @binding(3).
const (
	ArgXs = iota
	ArgYs
	ArgResult
	ArgSize
	ArgMaxIterations

	NumArgs
)

// Source is the WGSL program for Entry. The lane mirrors Evaluate: the
// cardioid test first, then the recurrence with squares carried from the
// previous iterate.
const Source = `
@group(0) @binding(0) var<storage, read> xs: array<f32>;
@group(0) @binding(1) var<storage, read> ys: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<i32>;

struct Params {
    size: u32,
    max_iterations: i32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn escape(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx >= params.size) {
        return;
    }

    let x0 = xs[idx];
    let y0 = ys[idx];

    let xq = x0 - 0.25;
    let yy = y0 * y0;
    let q = xq * xq + yy;
    if (q * (q + xq) < 0.25 * yy) {
        result[idx] = params.max_iterations;
        return;
    }

    var x: f32 = 0.0;
    var y: f32 = 0.0;
    var x2: f32 = 0.0;
    var y2: f32 = 0.0;
    var it: i32 = 0;
    loop {
        if (x2 + y2 > 4.0 || it >= params.max_iterations) {
            break;
        }
        y = 2.0 * x * y + y0;
        x = x2 - y2 + x0;
        x2 = x * x;
        y2 = y * y;
        it = it + 1;
    }
    result[idx] = it;
}
`
