package ui

import (
	"log/slog"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/tartampluch/go-noor/internal/config"
	"github.com/tartampluch/go-noor/internal/engine"
)

// ShowTimetableWindow displays the published days, one row per date and one
// column per scheduled prayer. If the window is already open, it requests focus.
func (app *NoorApp) ShowTimetableWindow() {
	if app.timetableWindow != nil {
		app.timetableWindow.RequestFocus()
		return
	}

	app.timetableWindow = app.App.NewWindow(app.GetMsg(config.TKeyWinTimetable))
	app.timetableWindow.Resize(fyne.NewSize(config.TimetableWinWidth, config.TimetableWinHeight))

	// Local copy so a feed refresh cannot change rows under the table.
	rows := app.timetableSnapshot()

	slog.Info("Opening timetable window",
		config.LogKeyComponent, config.CompUI,
		config.LogKeyCount, len(rows))

	table := widget.NewTable(
		func() (int, int) {
			return len(rows), len(engine.ScheduleOrder) + 1
		},
		func() fyne.CanvasObject {
			return widget.NewLabel(config.TablePlaceholder)
		},
		func(id widget.TableCellID, o fyne.CanvasObject) {
			label := o.(*widget.Label)
			if id.Row >= len(rows) {
				return
			}
			label.SetText(timetableCell(rows[id.Row], id.Col))
		},
	)

	table.ShowHeaderRow = true
	table.CreateHeader = func() fyne.CanvasObject {
		return widget.NewLabel(config.TablePlaceholder)
	}
	table.UpdateHeader = func(id widget.TableCellID, o fyne.CanvasObject) {
		label := o.(*widget.Label)
		label.TextStyle = fyne.TextStyle{Bold: true}
		if id.Col == config.ColIDDate {
			label.SetText(app.GetMsg(config.TKeyColDate))
			return
		}
		label.SetText(app.prayerName(engine.ScheduleOrder[id.Col-1]))
	}

	table.SetColumnWidth(config.ColIDDate, config.ColWidthDate)
	for i := range engine.ScheduleOrder {
		table.SetColumnWidth(i+1, config.ColWidthTime)
	}

	app.timetableWindow.SetContent(container.NewBorder(nil, nil, nil, nil, table))
	app.timetableWindow.SetOnClosed(func() {
		app.timetableWindow = nil
	})
	app.timetableWindow.Show()
}

func (app *NoorApp) timetableSnapshot() []engine.PrayerTimeTable {
	app.TimetableMut.RLock()
	defer app.TimetableMut.RUnlock()

	rows := make([]engine.PrayerTimeTable, len(app.Timetable))
	copy(rows, app.Timetable)
	return rows
}

// timetableCell renders column col of a table row. Column 0 is the date,
// the others follow the schedule order.
func timetableCell(t engine.PrayerTimeTable, col int) string {
	if col == config.ColIDDate {
		day, err := time.Parse(config.TableDateFormat, t.Date)
		if err != nil {
			return t.Date
		}
		return day.Format(config.DateFormatDisplay)
	}
	if col < 1 || col > len(engine.ScheduleOrder) {
		return ""
	}
	if v, ok := t.Time(engine.ScheduleOrder[col-1]); ok {
		return v.String()
	}
	return config.EmptyTime
}
