package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monexa/internal/core"
)

func header(rowIndex int) core.TransactionHeader {
	return core.TransactionHeader{RowIndex: rowIndex, SourceID: "amazon"}
}

func detail(rowIndex, filePos int) core.DetailLine {
	return core.DetailLine{RowIndex: rowIndex, ItemName: "item", FilePos: filePos}
}

func TestLink_NearestPrecedingHeader(t *testing.T) {
	headers := []core.TransactionHeader{header(0), header(3)}
	details := []core.DetailLine{
		detail(0, 1), // under header 0
		detail(1, 2), // under header 0
		detail(0, 4), // under header 3
	}

	out, err := Link(headers, details, false)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, 0, *out[0].LinkedHeaderIndex)
	assert.Equal(t, 0, *out[1].LinkedHeaderIndex)
	assert.Equal(t, 3, *out[2].LinkedHeaderIndex)
}

// A detail preceding any header is kept as an orphan in lenient mode and
// fails the pass in strict mode.
func TestLink_OrphanBeforeFirstHeader(t *testing.T) {
	headers := []core.TransactionHeader{header(1)}
	details := []core.DetailLine{detail(0, 0), detail(0, 2)}

	out, err := Link(headers, details, false)
	require.NoError(t, err)
	assert.Nil(t, out[0].LinkedHeaderIndex)
	require.NotNil(t, out[1].LinkedHeaderIndex)
	assert.Equal(t, 1, *out[1].LinkedHeaderIndex)

	_, err = Link(headers, details, true)
	var ue *core.UnlinkedDetailError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, []int{0}, ue.RowIndexes)
}

func TestLink_NoHeadersAtAll(t *testing.T) {
	details := []core.DetailLine{detail(0, 0), detail(1, 1)}

	out, err := Link(nil, details, false)
	require.NoError(t, err)
	for _, d := range out {
		assert.Nil(t, d.LinkedHeaderIndex)
	}

	_, err = Link(nil, details, true)
	var ue *core.UnlinkedDetailError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, []int{0, 1}, ue.RowIndexes)
}

// Every non-nil LinkedHeaderIndex must reference a header that exists in
// the same preview.
func TestLink_IndexesExist(t *testing.T) {
	headers := []core.TransactionHeader{header(0), header(2), header(5)}
	details := []core.DetailLine{detail(0, 1), detail(0, 3), detail(1, 4), detail(0, 6)}

	out, err := Link(headers, details, false)
	require.NoError(t, err)

	known := map[int]bool{}
	for _, h := range headers {
		known[h.RowIndex] = true
	}
	for _, d := range out {
		require.NotNil(t, d.LinkedHeaderIndex)
		assert.True(t, known[*d.LinkedHeaderIndex])
	}
}

func TestLink_InputNeverMutated(t *testing.T) {
	headers := []core.TransactionHeader{header(0)}
	details := []core.DetailLine{detail(0, 1)}

	_, err := Link(headers, details, false)
	require.NoError(t, err)
	assert.Nil(t, details[0].LinkedHeaderIndex)
}
