package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: stripANSI removes every color code and is idempotent
func TestProperty_StripANSI(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	colors := []string{ColorRed, ColorGreen, ColorYellow, ColorCyan, ColorBold, ColorDim}

	properties.Property("wrapping in any color leaves the visible text", prop.ForAll(
		func(text string, colorIdx int) bool {
			c := colors[colorIdx%len(colors)]
			wrapped := c + text + ColorReset

			stripped := stripANSI(wrapped)
			return stripped == text && stripANSI(stripped) == stripped
		},
		gen.AlphaString(),
		gen.IntRange(0, len(colors)-1),
	))

	properties.TestingRun(t)
}

// Property: rendered table rows share one visible width
//
// Colored cells pad the same as plain ones, so every header and data row
// lines up regardless of cell content.
func TestProperty_TableAlignment(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("every row renders to the same width", prop.ForAll(
		func(a, b, c, d string, colorFirst bool) bool {
			buf := &bytes.Buffer{}
			o := &Output{writer: buf, colorEnabled: true}

			first := a
			if colorFirst {
				first = o.Green(a)
			}

			table := NewTable(o, "One", "Two")
			table.AddRow(first, b)
			table.AddRow(c, d)
			table.Render()

			lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
			if len(lines) != 4 {
				return false
			}

			// Skip the separator, box-drawing runes have their own width.
			header := utf8.RuneCountInString(stripANSI(lines[0]))
			row1 := utf8.RuneCountInString(stripANSI(lines[2]))
			row2 := utf8.RuneCountInString(stripANSI(lines[3]))
			return header == row1 && row1 == row2
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
