package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monexa/internal/core"
	"monexa/internal/sources"
)

var previewCSV = []byte(`Date,Description,Amount,Item,Quantity
2024-01-01,Coffee,-150,,
2024-01-02,Salary,50000,,
not-a-date,Bad,xyz,,
2024-01-03,Supermarket,-900,,
,,-300,Rice 5kg,1
`)

func TestPreview(t *testing.T) {
	reg := sources.Default()

	res, err := Preview(reg, "generic", previewCSV, 50)
	require.NoError(t, err)

	assert.Equal(t, "generic", res.SourceID)
	assert.Equal(t, 5, res.TotalRows)
	assert.Equal(t, 1, res.ParseFailures)
	require.Len(t, res.Headers, 3)
	require.Len(t, res.Details, 1)

	// Detail comes back leniently linked to the supermarket row.
	require.NotNil(t, res.Details[0].LinkedHeaderIndex)
	assert.Equal(t, res.Headers[2].RowIndex, *res.Details[0].LinkedHeaderIndex)
}

// Preview is a pure function of its inputs: calling it twice with the same
// arguments returns identical output.
func TestPreview_Idempotent(t *testing.T) {
	reg := sources.Default()

	first, err := Preview(reg, "generic", previewCSV, 50)
	require.NoError(t, err)
	second, err := Preview(reg, "generic", previewCSV, 50)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPreview_Truncation(t *testing.T) {
	reg := sources.Default()

	res, err := Preview(reg, "generic", previewCSV, 2)
	require.NoError(t, err)

	require.Len(t, res.Headers, 2)
	// The detail belongs to the third header, which was cut.
	assert.Empty(t, res.Details)
	// TotalRows still reports the whole file so truncation is detectable.
	assert.Equal(t, 5, res.TotalRows)
}

func TestPreview_UnsupportedSource(t *testing.T) {
	_, err := Preview(sources.Default(), "venmo", previewCSV, 10)
	assert.ErrorIs(t, err, core.ErrUnsupportedSource)
}

func TestPreview_NotCSV(t *testing.T) {
	_, err := Preview(sources.Default(), "generic", nil, 10)
	var pe *core.ParseError
	assert.ErrorAs(t, err, &pe)
}
