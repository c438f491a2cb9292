package csvsource

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

const fruitsCSV = `ID,Name,Price,Ripe,Picked
1,Apple,1.25,true,2024-03-01
2,Banana,,false,2024-03-02
3,"Cherry, sour",2,TRUE,
`

func TestRead(t *testing.T) {
	table, err := Read(context.Background(), strings.NewReader(fruitsCSV), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"ID", "Name", "Price", "Ripe", "Picked"}, table.ColumnNames())
	wantTypes := []types.ColumnType{types.ColumnNumber, types.ColumnText, types.ColumnNumber, types.ColumnBool, types.ColumnDateTime}
	for i, want := range wantTypes {
		assert.Equal(t, want, table.Columns[i].Type, table.Columns[i].Name)
	}

	require.Len(t, table.Rows, 3)
	assert.Equal(t, types.Number(1), table.Rows[0][0])
	assert.Equal(t, types.Text("Cherry, sour"), table.Rows[2][1])
	assert.True(t, table.Rows[1][2].IsNull(), "empty cells are null")
	assert.Equal(t, types.Bool(true), table.Rows[2][3])
	assert.Equal(t, types.DateTime(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)), table.Rows[0][4])
	assert.True(t, table.Rows[2][4].IsNull())
}

func TestReadRaw(t *testing.T) {
	table, err := Read(context.Background(), strings.NewReader(fruitsCSV), Options{Raw: true})
	require.NoError(t, err)
	assert.Equal(t, types.ColumnText, table.Columns[0].Type)
	assert.Equal(t, types.Text("1"), table.Rows[0][0])
}

func TestReadShortAndLongRecords(t *testing.T) {
	table, err := Read(context.Background(), strings.NewReader("A;B\nx\n"), Options{Comma: ';'})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.True(t, table.Rows[0][1].IsNull(), "short records are padded")

	_, err = Read(context.Background(), strings.NewReader("A\n1,2\n"), Options{})
	var de *types.DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Position)
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestReadEmpty(t *testing.T) {
	table, err := Read(context.Background(), strings.NewReader(""), Options{})
	require.NoError(t, err)
	assert.Empty(t, table.Columns)
}

func TestReadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Read(ctx, strings.NewReader(fruitsCSV), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteRoundTrip(t *testing.T) {
	in, err := Read(context.Background(), strings.NewReader(fruitsCSV), Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "ID,Name,Price,Ripe,Picked", lines[0])
	assert.Equal(t, "1,Apple,1.25,true,2024-03-01T00:00:00Z", lines[1])
	assert.Equal(t, `3,"Cherry, sour",2,true,`, lines[3])

	out, err := Read(context.Background(), &buf, Options{})
	require.NoError(t, err)
	assert.Equal(t, in.Rows, out.Rows)
}
