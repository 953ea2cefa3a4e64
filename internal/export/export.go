package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/0xChaser/EasyBooking/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	SheetBookings = "Bookings"
	SheetRooms    = "Rooms"

	unknownRoom = "Unknown room"
	cellTime    = "02.01.2006 15:04"
)

var (
	bookingHeaders = []string{"Room", "Address", "Booked by", "Email", "Start", "End", "Status", "Created"}
	roomHeaders    = []string{"Name", "Address", "Capacity", "Status", "Description"}
)

// Exporter writes dashboard collections to .xlsx workbooks.
type Exporter struct {
	dir    string
	loc    *time.Location
	now    func() time.Time
	logger *zerolog.Logger
}

func NewExporter(dir string, loc *time.Location, logger *zerolog.Logger) *Exporter {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Exporter{dir: dir, loc: loc, now: time.Now, logger: logger}
}

// Bookings writes bookings, and rooms when given, into one workbook and
// returns its path. tag distinguishes files of different users.
func (e *Exporter) Bookings(bookings []models.Booking, rooms []models.Room, tag string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetBookings)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return "", fmt.Errorf("error creating style: %w", err)
	}

	writeHeaders(f, SheetBookings, bookingHeaders, headerStyle)
	for i, b := range bookings {
		row := i + 2
		values := []any{
			b.RoomName(unknownRoom),
			b.RoomAddress(),
			bookedBy(b.User),
			userEmail(b.User),
			b.StartTime.In(e.loc).Format(cellTime),
			b.EndTime.In(e.loc).Format(cellTime),
			string(b.Status),
			b.CreatedAt.In(e.loc).Format(cellTime),
		}
		if err := writeRow(f, SheetBookings, row, values); err != nil {
			return "", err
		}
		if style, err := statusStyle(f, b.Status); err == nil {
			cell, _ := excelize.CoordinatesToCellName(7, row)
			_ = f.SetCellStyle(SheetBookings, cell, cell, style)
		}
	}
	_ = f.SetColWidth(SheetBookings, "A", "B", 25)
	_ = f.SetColWidth(SheetBookings, "C", "D", 22)
	_ = f.SetColWidth(SheetBookings, "E", "H", 18)
	_ = f.SetPanes(SheetBookings, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if rooms != nil {
		if _, err := f.NewSheet(SheetRooms); err != nil {
			return "", fmt.Errorf("error creating sheet: %w", err)
		}
		writeHeaders(f, SheetRooms, roomHeaders, headerStyle)
		for i, r := range rooms {
			values := []any{r.Name, r.Address, r.Capacity, string(r.Status), r.DescriptionText()}
			if err := writeRow(f, SheetRooms, i+2, values); err != nil {
				return "", err
			}
		}
		_ = f.SetColWidth(SheetRooms, "A", "B", 25)
		_ = f.SetColWidth(SheetRooms, "E", "E", 40)
	}

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_%s.xlsx", e.now().In(e.loc).Format("2006-01-02_15-04-05"))
	if tag = strings.TrimSpace(tag); tag != "" {
		fileName = fmt.Sprintf("bookings_%s_%s.xlsx", tag, e.now().In(e.loc).Format("2006-01-02_15-04-05"))
	}
	filePath := filepath.Join(e.dir, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("bookings", len(bookings)).Msg("Excel file created")
	return filePath, nil
}

func writeHeaders(f *excelize.File, sheet string, headers []string, style int) {
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, header)
		_ = f.SetCellStyle(sheet, cell, cell, style)
	}
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("error writing row %d: %w", row, err)
	}
	return nil
}

// statusStyle fills the status cell: green for confirmed or completed,
// yellow for scheduled, red for cancelled.
func statusStyle(f *excelize.File, status models.BookingStatus) (int, error) {
	color := "#FFFFFF"
	switch status {
	case models.BookingConfirmed, models.BookingCompleted:
		color = "#C6EFCE"
	case models.BookingScheduled:
		color = "#FFEB9C"
	case models.BookingCancelled:
		color = "#FFC7CE"
	}
	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
}

func bookedBy(u *models.UserRef) string {
	if u == nil {
		return "-"
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return u.Email
}

func userEmail(u *models.UserRef) string {
	if u == nil {
		return "-"
	}
	return u.Email
}
