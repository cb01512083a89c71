package markup

import (
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: Parse is lossless; the segment texts concatenate to the input.
func TestParse_LosslessProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	piece := gen.OneGenOf(
		gen.AlphaString(),
		gen.AnyString(),
		gen.AlphaString().Map(func(s string) string { return Signature(s) }),
		gen.AlphaString().Map(func(s string) string { return Citation(s, "26 U.S.C. "+s) }),
		gen.OneConstOf("[", "]", "[CITATION:", "[SIGNATURE_FIELD:]", "[UNKNOWN:x]", "|"),
	)

	properties.Property("segments reassemble the input", prop.ForAll(
		func(parts []string) bool {
			in := strings.Join(parts, "")
			var b strings.Builder
			for _, seg := range Parse(in) {
				b.WriteString(seg.Text)
			}
			return b.String() == in
		},
		gen.SliceOf(piece, reflect.TypeOf("")),
	))

	properties.TestingRun(t)
}
