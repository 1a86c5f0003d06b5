package services

import (
	"sort"
	"time"

	"github.com/carebook/carebook/backend/internal/domain/entities"
)

// SlotGeneratorService expands recurring templates and date exceptions into
// concrete slots. It is a pure computation over its inputs; persistence and
// caching live elsewhere.
type SlotGeneratorService struct{}

// NewSlotGeneratorService creates a new slot generator service
func NewSlotGeneratorService() *SlotGeneratorService {
	return &SlotGeneratorService{}
}

// GenerateDay produces the candidate slots for one provider-local calendar
// date. Rules:
//   - a blackout exception yields zero slots regardless of templates
//   - a replacement-window exception fully replaces the day's templates
//   - each template generates its own independent run; overlapping runs may
//     yield overlapping candidates, resolved at merge time
//   - trailing windows shorter than the duration are dropped, not truncated
//   - no slot crosses midnight of the local date
//
// Output is sorted by start time, then end time.
func (s *SlotGeneratorService) GenerateDay(
	templates []*entities.AvailabilityTemplate,
	exception *entities.AvailabilityException,
	date time.Time,
	durationMinutes int,
	loc *time.Location,
) []entities.Slot {
	if durationMinutes <= 0 {
		return []entities.Slot{}
	}
	if loc == nil {
		loc = time.UTC
	}

	type window struct {
		start, end string
	}
	var windows []window

	if exception != nil {
		if exception.Blackout {
			return []entities.Slot{}
		}
		windows = []window{{start: exception.StartTime, end: exception.EndTime}}
	} else {
		for _, tmpl := range templates {
			if int(date.Weekday()) != tmpl.DayOfWeek {
				continue
			}
			windows = append(windows, window{start: tmpl.StartTime, end: tmpl.EndTime})
		}
	}

	nextMidnight := time.Date(date.Year(), date.Month(), date.Day()+1, 0, 0, 0, 0, loc)
	duration := time.Duration(durationMinutes) * time.Minute

	slots := []entities.Slot{}
	for _, w := range windows {
		start, ok := clockOnDate(date, loc, w.start)
		if !ok {
			continue
		}
		end, ok := clockOnDate(date, loc, w.end)
		if !ok || !end.After(start) {
			continue
		}
		if end.After(nextMidnight) {
			end = nextMidnight
		}

		for cursor := start; !cursor.Add(duration).After(end); cursor = cursor.Add(duration) {
			slots = append(slots, entities.Slot{
				Start:           cursor,
				End:             cursor.Add(duration),
				Available:       true,
				DurationMinutes: durationMinutes,
			})
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].Start.Equal(slots[j].Start) {
			return slots[i].Start.Before(slots[j].Start)
		}
		return slots[i].End.Before(slots[j].End)
	})
	return slots
}

// MarkConflicts flags slots that intersect a non-cancelled appointment.
// Slots are never removed, only marked, so callers can show why a time is
// gone instead of silently omitting it.
func (s *SlotGeneratorService) MarkConflicts(slots []entities.Slot, appointments []*entities.Appointment) []entities.Slot {
	marked := make([]entities.Slot, len(slots))
	copy(marked, slots)

	for i := range marked {
		for _, appt := range appointments {
			if appt.Blocks(marked[i].Start, marked[i].End) {
				marked[i].Available = false
				break
			}
		}
	}
	return marked
}

// clockOnDate resolves an "HH:MM" clock string to a civil-local instant on
// the given calendar date
func clockOnDate(date time.Time, loc *time.Location, clock string) (time.Time, bool) {
	parsed, err := time.Parse(entities.ClockLayout, clock)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc), true
}
