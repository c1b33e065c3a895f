package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOutput(color bool) (*Output, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &Output{writer: buf, colorEnabled: color}, buf
}

func TestOutputJSONMode(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	o := &Output{writer: buf, jsonMode: true}

	require.True(t, o.IsJSON())
	require.NoError(t, o.JSON(map[string]int{"trades": 7}))

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 7, decoded["trades"])
}

func TestColoredOutputPlainWhenDisabled(t *testing.T) {
	t.Parallel()

	o, buf := testOutput(false)
	o.Success("done: %d", 3)

	assert.Equal(t, "done: 3\n", buf.String())
	assert.NotContains(t, buf.String(), "\033[")
}

func TestColoredOutputWrapsWhenEnabled(t *testing.T) {
	t.Parallel()

	o, buf := testOutput(true)
	o.Error("bad")

	assert.Equal(t, ColorRed+"bad"+ColorReset+"\n", buf.String())
}

func TestFormatPnLColorsFollowSign(t *testing.T) {
	t.Parallel()

	o, _ := testOutput(true)

	assert.Contains(t, o.FormatPnL(12.5), ColorGreen)
	assert.Contains(t, o.FormatPnL(-12.5), ColorRed)
	assert.Contains(t, o.FormatPnL(12.5), "+$12.50")
	assert.Contains(t, o.FormatPnL(-12.5), "-$12.50")
}

func TestTableRendersAlignedColumns(t *testing.T) {
	t.Parallel()

	o, buf := testOutput(false)
	table := NewTable(o, "Symbol", "Side", "Quantity")
	table.AddRow("BTCUSDT", "BUY", "0.5")
	table.AddRow("ETHUSDT", "SELL", "12.25")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)

	// Header, then both data rows, padded to the same visible width.
	assert.Equal(t, len(lines[0]), len(lines[2]))
	assert.Equal(t, len(lines[2]), len(lines[3]))
	assert.True(t, strings.HasPrefix(lines[2], "BTCUSDT  BUY   0.5"))
	assert.True(t, strings.HasPrefix(lines[3], "ETHUSDT  SELL  12.25"))
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m 30s"},
		{2*time.Hour + 30*time.Minute, "2h 30m"},
		{49 * time.Hour, "2d 1h"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatDuration(tc.d))
	}
}

func TestFormatDateTimeUsesUTC(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+4", 4*3600)
	ts := time.Date(2026, 3, 15, 14, 30, 5, 0, loc)

	assert.Equal(t, "15-Mar-2026 10:30:05", FormatDateTime(ts))
	assert.Equal(t, "10:30:05", FormatTime(ts))
}
