package sink

import (
	"context"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadgen-cli/internal/model"
)

const leadSheetName = "Leads"

var leadHeader = []string{"ID", "Name", "Address", "Phone", "Website", "Email"}

// XLSXSink implements Sink on a spreadsheet file. Every append rewrites
// the file so a crashed run loses at most the in-flight lead.
type XLSXSink struct {
	mu    sync.Mutex
	path  string
	file  *xlsx.File
	sheet *xlsx.Sheet
}

// NewXLSX opens the spreadsheet at path, creating it with a header row if
// it does not exist yet.
func NewXLSX(path string) (*XLSXSink, error) {
	if _, err := os.Stat(path); err == nil {
		f, err := xlsx.OpenFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "xlsx: open %s", path)
		}
		sheet, ok := f.Sheet[leadSheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: %s has no %q sheet", path, leadSheetName)
		}
		return &XLSXSink{path: path, file: f, sheet: sheet}, nil
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(leadSheetName)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add sheet")
	}
	header := sheet.AddRow()
	for _, col := range leadHeader {
		header.AddCell().SetString(col)
	}
	s := &XLSXSink{path: path, file: f, sheet: sheet}
	if err := s.save(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *XLSXSink) Append(_ context.Context, lead model.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.sheet.AddRow()
	for _, val := range lead.Row() {
		row.AddCell().SetString(val)
	}
	return s.save()
}

func (s *XLSXSink) ReadAll(_ context.Context) ([]model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var leads []model.Lead
	for i, row := range s.sheet.Rows {
		if i == 0 {
			continue // header
		}
		cells := make([]string, len(leadHeader))
		for j := range cells {
			if j < len(row.Cells) {
				cells[j] = row.Cells[j].String()
			}
		}
		if cells[0] == "" && cells[1] == "" {
			continue
		}
		leads = append(leads, model.Lead{
			ID:      cells[0],
			Name:    cells[1],
			Address: cells[2],
			Phone:   cells[3],
			Website: cells[4],
			Email:   cells[5],
		})
	}
	return leads, nil
}

func (s *XLSXSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

func (s *XLSXSink) save() error {
	return eris.Wrapf(s.file.Save(s.path), "xlsx: save %s", s.path)
}
