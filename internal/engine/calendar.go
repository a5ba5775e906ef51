package engine

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/go-noor/internal/config"
)

// FeedBuilder renders prayer time tables as an iCalendar feed so that any
// calendar client can subscribe to the timetable.
type FeedBuilder struct {
	Clock Clock

	// FormatSummary allows the UI to inject localized event titles.
	FormatSummary func(p Prayer, loc Location) string
}

// Build encodes one event per scheduled prayer of every table. Prayers for
// which enabled returns true carry a display alarm at the prayer time.
// A table whose Hijri date is an observance adds an all-day event.
// It returns the ICS bytes and the number of events.
func (b *FeedBuilder) Build(tables []PrayerTimeTable, enabled func(Prayer) bool) ([]byte, int, error) {
	cal := ical.NewCalendar()

	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	// RFC 7986 refresh hint.
	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(b.Clock.Now().UTC())

	count := 0
	for _, table := range tables {
		day, err := time.ParseInLocation(config.TableDateFormat, table.Date, table.ZoneLocation(time.Local))
		if err != nil {
			slog.Warn("Skipping table with malformed date",
				config.LogKeyComponent, config.CompServer,
				config.LogKeyDate, table.Date)
			continue
		}

		for _, p := range ScheduleOrder {
			t, ok := table.Times[p]
			if !ok {
				continue
			}

			event := b.event(table, p, t.On(day), enabled != nil && enabled(p) && p.Notifiable())
			event.Props.Set(dtStampProp)
			cal.Children = append(cal.Children, event.Component)
			count++
		}

		if o, ok := table.ObservanceOn(); ok {
			event := b.observance(table, o, day)
			event.Props.Set(dtStampProp)
			cal.Children = append(cal.Children, event.Component)
			count++
		}
	}

	if count == 0 {
		var buf bytes.Buffer
		buf.WriteString(config.StubVCalendar)
		return buf.Bytes(), 0, nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}
	return buf.Bytes(), count, nil
}

func (b *FeedBuilder) event(table PrayerTimeTable, p Prayer, at time.Time, alarm bool) *ical.Event {
	event := ical.NewEvent()

	// Stable across refreshes of the same table.
	hash := sha256.Sum256([]byte(fmt.Sprintf(config.FormatHashInput, table.Key, table.Date, p)))
	event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, fmt.Sprintf("%x", hash[:config.UIDHashLength]), config.ICalDomain))

	summary := string(p)
	if b.FormatSummary != nil {
		summary = b.FormatSummary(p, table.Location)
	}
	event.Props.SetText(config.PropSummary, summary)

	if table.Location.Name != "" {
		event.Props.SetText(config.PropLocation, table.Location.Name)
	}
	if table.HijriDate != "" {
		event.Props.SetText(config.PropDescription, table.HijriDate)
	}

	dtStartProp := ical.NewProp(config.PropDTStart)
	dtStartProp.SetDateTime(at)
	event.Props.Set(dtStartProp)

	if alarm {
		addAlarm(event, config.ICalTrigger, summary)
	}
	return event
}

// observance is an all-day event; it never carries an alarm.
func (b *FeedBuilder) observance(table PrayerTimeTable, o Observance, day time.Time) *ical.Event {
	event := ical.NewEvent()

	hash := sha256.Sum256([]byte(fmt.Sprintf(config.FormatHashInput, table.Key, table.Date, o.Name)))
	event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, fmt.Sprintf("%x", hash[:config.UIDHashLength]), config.ICalDomain))
	event.Props.SetText(config.PropSummary, o.Name)
	if table.HijriDate != "" {
		event.Props.SetText(config.PropDescription, table.HijriDate)
	}

	dtStartProp := ical.NewProp(config.PropDTStart)
	dtStartProp.SetDate(day)
	event.Props.Set(dtStartProp)
	return event
}

// addAlarm appends a DISPLAY alarm (notification) to the event.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set trigger manually to avoid "VALUE=TEXT" param
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}
