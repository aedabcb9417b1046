package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"studio/internal/model"
)

// sheetWriter appends rows to the sheets of one workbook.
type sheetWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func newSheetWriter() *sheetWriter {
	return &sheetWriter{file: excelize.NewFile()}
}

func (w *sheetWriter) addSheet(name string) error {
	// Excel limit.
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return err
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

func (w *sheetWriter) writeHeader(columns []string) error {
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	if err := w.writeRow(row); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil
	}
	start, _ := excelize.CoordinatesToCellName(1, 1)
	end, _ := excelize.CoordinatesToCellName(len(columns), 1)
	_ = w.file.SetCellStyle(w.currentSheet, start, end, style)
	return nil
}

func (w *sheetWriter) writeRow(row []any) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}
	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}
	w.currentRow++
	return nil
}

var bookingColumns = []string{
	"ID", "Date", "Time", "Artist", "Client", "Email", "Phone",
	"Service", "Status", "Price", "Deposit paid",
}

var summaryColumns = []string{"Artist", "Bookings", "Cancelled", "Revenue"}

// WriteBookingsWorkbook writes the bookings of a month (all statuses) and a per-artist summary.
// artistNames maps artist id to display name; unknown ids are written as-is.
func WriteBookingsWorkbook(out io.Writer, month string, bookings []model.Booking, artistNames map[string]string) error {
	w := newSheetWriter()
	defer w.file.Close()

	name := func(id string) string {
		if n, ok := artistNames[id]; ok && n != "" {
			return n
		}
		return id
	}

	if err := w.addSheet("Bookings " + month); err != nil {
		return err
	}
	if err := w.writeHeader(bookingColumns); err != nil {
		return err
	}

	type summary struct {
		bookings, cancelled int
		revenue             float64
	}
	perArtist := make(map[string]*summary)

	for i := range bookings {
		b := &bookings[i]
		if err := w.writeRow([]any{
			b.ID, b.Date, b.Time, name(b.ArtistID), b.ClientName, b.ClientEmail, b.ClientPhone,
			b.ServiceName, string(b.Status), b.Price, b.DepositPaid,
		}); err != nil {
			return err
		}

		s := perArtist[b.ArtistID]
		if s == nil {
			s = &summary{}
			perArtist[b.ArtistID] = s
		}
		if b.Status == model.StatusCancelled {
			s.cancelled++
			continue
		}
		s.bookings++
		s.revenue += b.Price
	}

	if err := w.addSheet("Summary"); err != nil {
		return err
	}
	if err := w.writeHeader(summaryColumns); err != nil {
		return err
	}

	ids := make([]string, 0, len(perArtist))
	for id := range perArtist {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		s := perArtist[id]
		if err := w.writeRow([]any{name(id), s.bookings, s.cancelled, s.revenue}); err != nil {
			return err
		}
	}

	return w.file.Write(out)
}
