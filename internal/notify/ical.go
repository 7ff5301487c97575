package notify

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/kirinyoku/atelier/internal/domain"
)

const (
	defaultSlotDuration     = 2 * time.Hour
	defaultWorkshopDuration = 3 * time.Hour
)

type Invite struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Organizer   string
	Attendee    string
}

// BuildInvite renders a METHOD:REQUEST calendar with a single event.
func BuildInvite(inv Invite, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId("-//Atelier//Booking//DE")

	ev := cal.AddEvent(inv.UID)
	ev.SetCreatedTime(now)
	ev.SetDtStampTime(now)
	ev.SetModifiedAt(now)
	ev.SetStartAt(inv.Start)
	ev.SetEndAt(inv.End)
	ev.SetSummary(inv.Summary)
	ev.SetDescription(inv.Description)
	if inv.Location != "" {
		ev.SetLocation(inv.Location)
	}
	if inv.Organizer != "" {
		ev.SetOrganizer("mailto:" + inv.Organizer)
	}
	if inv.Attendee != "" {
		ev.AddAttendee(inv.Attendee, ics.ParticipationStatusNeedsAction)
	}
	ev.SetProperty(ics.ComponentPropertyStatus, "CONFIRMED")

	return cal.Serialize()
}

// SlotWindow resolves the start and end of a slot in loc. Without an explicit
// end time the event duration is used, falling back to two hours.
func SlotWindow(slot domain.TimeSlot, loc *time.Location) (time.Time, time.Time, error) {
	start, err := localTime(slot.Date, slot.Time, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	switch {
	case slot.EndTime != "":
		end, err := localTime(slot.Date, slot.EndTime, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if end.After(start) {
			return start, end, nil
		}
	case slot.EventDuration > 0:
		return start, start.Add(time.Duration(slot.EventDuration * float64(time.Hour))), nil
	}

	return start, start.Add(defaultSlotDuration), nil
}

func WorkshopWindow(w domain.Workshop, loc *time.Location) (time.Time, time.Time, error) {
	start, err := localTime(w.Date, w.Time, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.Add(defaultWorkshopDuration), nil
}

func localTime(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(domain.DateLayout+" "+domain.TimeLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s %s: %w", date, clock, err)
	}
	return t, nil
}
