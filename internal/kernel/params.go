package kernel

import (
	"regexp"

	"github.com/born-ml/mandel/internal/device"
)

// Params describes the arguments of Entry in positional order.
var Params = []device.Param{
	ArgXs:            {Name: "xs", Kind: device.ArgBuffer, Element: device.Float32},
	ArgYs:            {Name: "ys", Kind: device.ArgBuffer, Element: device.Float32},
	ArgResult:        {Name: "result", Kind: device.ArgBuffer, Element: device.Int32, Writes: true},
	ArgSize:          {Name: "size", Kind: device.ArgScalar},
	ArgMaxIterations: {Name: "max_iterations", Kind: device.ArgScalar},
}

// DeclaresEntry reports whether WGSL source declares a compute entry
// point named entry.
func DeclaresEntry(source, entry string) bool {
	re := regexp.MustCompile(`@compute[^{]*\bfn\s+` + regexp.QuoteMeta(entry) + `\s*\(`)
	return re.MatchString(source)
}
