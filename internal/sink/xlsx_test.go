package sink

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadgen-cli/internal/model"
)

func TestXLSXSink_AppendAndReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.xlsx")
	s, err := NewXLSX(path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	first, err := model.NewLead("Ace Cafe", "12 Main St Reno", "555-0100", "https://ace.example", "hi@ace.example")
	require.NoError(t, err)
	second, err := model.NewLead("Best Dental", "40 Oak Ave Denver", "", "", "")
	require.NoError(t, err)

	require.NoError(t, s.Append(ctx, first))
	require.NoError(t, s.Append(ctx, second))

	leads, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, first, leads[0])
	assert.Equal(t, second, leads[1])
}

func TestXLSXSink_HeaderRowWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.xlsx")
	s, err := NewXLSX(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet[leadSheetName]
	require.True(t, ok)
	require.NotEmpty(t, sheet.Rows)

	var got []string
	for _, cell := range sheet.Rows[0].Cells {
		got = append(got, cell.String())
	}
	assert.Equal(t, leadHeader, got)
}

func TestXLSXSink_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "leads.xlsx")

	s, err := NewXLSX(path)
	require.NoError(t, err)
	lead, err := model.NewLead("Ace Cafe", "Reno", "", "", "")
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, lead))
	require.NoError(t, s.Close())

	reopened, err := NewXLSX(path)
	require.NoError(t, err)
	defer reopened.Close()

	leads, err := reopened.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, lead, leads[0], "rows survive reopening the workbook")
}

func TestXLSXSink_ReadAll_EmptySheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.xlsx")
	s, err := NewXLSX(path)
	require.NoError(t, err)
	defer s.Close()

	leads, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, leads)
}
