package ingest

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fenwicklabs/terramesh/geo"
)

// FragmentPrefix tags a line the tailer emitted from a partial buffer that
// was never terminated by a newline: a truncation, rotation, deletion, or
// cancellation cut it off mid-record. Parse always skips these.
const FragmentPrefix = "[FRAGMENT] "

// floatPattern matches a decimal float with optional sign and optional
// integer/fractional parts, no exponent, decimal point only.
const floatPattern = `[+-]?\d*\.?\d+`

var (
	hitPattern = regexp.MustCompile(
		`^HIT\|P:\s*(` + floatPattern + `),(` + floatPattern + `),(` + floatPattern + `)` +
			`\|N:\s*(` + floatPattern + `),(` + floatPattern + `),(` + floatPattern + `)$`)
	missPattern = regexp.MustCompile(
		`^MISS\|S:\s*(` + floatPattern + `),(` + floatPattern + `),(` + floatPattern + `)` +
			`\|E:\s*(` + floatPattern + `),(` + floatPattern + `),(` + floatPattern + `)$`)
)

// Record is the parsed form of one accepted log line: exactly one of Hit or
// Miss is non-nil.
type Record struct {
	Hit  *geo.Vertex
	Miss *geo.Ray
}

// Parse interprets a single raw line. It returns ok=false, silently, for
// fragment-marked lines, blank lines, and anything matching neither the HIT
// nor the MISS pattern — the runner's consumer is expected to discard those
// rather than treat them as errors.
func Parse(line string) (Record, bool) {
	line = strings.TrimRight(line, "\r")
	if line == "" || strings.HasPrefix(line, FragmentPrefix) {
		return Record{}, false
	}

	if m := hitPattern.FindStringSubmatch(line); m != nil {
		f := parseSix(m[1:])
		return Record{Hit: &geo.Vertex{
			Position: geo.Vec3{X: f[0], Y: f[1], Z: f[2]},
			Normal:   geo.Vec3{X: f[3], Y: f[4], Z: f[5]},
		}}, true
	}
	if m := missPattern.FindStringSubmatch(line); m != nil {
		f := parseSix(m[1:])
		return Record{Miss: &geo.Ray{
			Start: geo.Vec3{X: f[0], Y: f[1], Z: f[2]},
			End:   geo.Vec3{X: f[3], Y: f[4], Z: f[5]},
		}}, true
	}
	return Record{}, false
}

// parseSix parses six regex capture groups already known to match
// floatPattern; the error return from ParseFloat is unreachable.
func parseSix(groups []string) [6]float64 {
	var out [6]float64
	for i, g := range groups {
		out[i], _ = strconv.ParseFloat(g, 64)
	}
	return out
}
