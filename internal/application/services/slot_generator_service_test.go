package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebook/carebook/backend/internal/application/services"
	"github.com/carebook/carebook/backend/internal/domain/entities"
)

// Monday
var slotDate = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

func mondayTemplate(start, end string) *entities.AvailabilityTemplate {
	return &entities.AvailabilityTemplate{
		ID:          "tmpl-" + start,
		ProviderID:  "prov-1",
		DayOfWeek:   1,
		StartTime:   start,
		EndTime:     end,
		IsRecurring: true,
	}
}

func TestSlotGeneratorService_GenerateDay(t *testing.T) {
	generator := services.NewSlotGeneratorService()

	t.Run("window produces floor(N/D) slots, partial tail dropped", func(t *testing.T) {
		templates := []*entities.AvailabilityTemplate{mondayTemplate("09:00", "12:30")}

		slots := generator.GenerateDay(templates, nil, slotDate, 60, time.UTC)

		require.Len(t, slots, 3)
		assert.Equal(t, 9, slots[0].Start.Hour())
		assert.Equal(t, 10, slots[1].Start.Hour())
		assert.Equal(t, 11, slots[2].Start.Hour())
		for _, slot := range slots {
			assert.True(t, slot.Available)
			assert.Equal(t, 60, slot.DurationMinutes)
			assert.Equal(t, time.Hour, slot.End.Sub(slot.Start))
		}
	})

	t.Run("exact window yields full coverage", func(t *testing.T) {
		templates := []*entities.AvailabilityTemplate{mondayTemplate("09:00", "12:00")}

		slots := generator.GenerateDay(templates, nil, slotDate, 60, time.UTC)

		require.Len(t, slots, 3)
		assert.Equal(t, time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC), slots[2].Start)
		assert.Equal(t, time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC), slots[2].End)
	})

	t.Run("blackout exception yields zero slots", func(t *testing.T) {
		templates := []*entities.AvailabilityTemplate{mondayTemplate("09:00", "17:00")}
		exception := &entities.AvailabilityException{
			ProviderID: "prov-1",
			Date:       slotDate,
			Blackout:   true,
		}

		slots := generator.GenerateDay(templates, exception, slotDate, 60, time.UTC)

		assert.Empty(t, slots)
	})

	t.Run("replacement window fully replaces templates", func(t *testing.T) {
		templates := []*entities.AvailabilityTemplate{
			mondayTemplate("09:00", "12:00"),
			mondayTemplate("13:00", "17:00"),
		}
		exception := &entities.AvailabilityException{
			ProviderID: "prov-1",
			Date:       slotDate,
			StartTime:  "14:00",
			EndTime:    "16:00",
		}

		slots := generator.GenerateDay(templates, exception, slotDate, 60, time.UTC)

		require.Len(t, slots, 2)
		assert.Equal(t, 14, slots[0].Start.Hour())
		assert.Equal(t, 15, slots[1].Start.Hour())
	})

	t.Run("split shifts generate independent runs", func(t *testing.T) {
		templates := []*entities.AvailabilityTemplate{
			mondayTemplate("13:00", "15:00"),
			mondayTemplate("09:00", "11:00"),
		}

		slots := generator.GenerateDay(templates, nil, slotDate, 60, time.UTC)

		require.Len(t, slots, 4)
		// sorted by start regardless of template order
		assert.Equal(t, 9, slots[0].Start.Hour())
		assert.Equal(t, 10, slots[1].Start.Hour())
		assert.Equal(t, 13, slots[2].Start.Hour())
		assert.Equal(t, 14, slots[3].Start.Hour())
	})

	t.Run("overlapping templates may yield overlapping candidates", func(t *testing.T) {
		templates := []*entities.AvailabilityTemplate{
			mondayTemplate("09:00", "11:00"),
			mondayTemplate("09:30", "10:30"),
		}

		slots := generator.GenerateDay(templates, nil, slotDate, 60, time.UTC)

		require.Len(t, slots, 3)
		assert.Equal(t, time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC), slots[0].Start)
		assert.Equal(t, time.Date(2026, 3, 9, 9, 30, 0, 0, time.UTC), slots[1].Start)
		assert.Equal(t, time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC), slots[2].Start)
	})

	t.Run("templates for other weekdays are ignored", func(t *testing.T) {
		tuesday := mondayTemplate("09:00", "12:00")
		tuesday.DayOfWeek = 2

		slots := generator.GenerateDay([]*entities.AvailabilityTemplate{tuesday}, nil, slotDate, 60, time.UTC)

		assert.Empty(t, slots)
	})

	t.Run("no slot crosses midnight", func(t *testing.T) {
		templates := []*entities.AvailabilityTemplate{mondayTemplate("22:00", "23:59")}

		slots := generator.GenerateDay(templates, nil, slotDate, 60, time.UTC)

		require.Len(t, slots, 1)
		assert.Equal(t, 22, slots[0].Start.Hour())
		assert.True(t, slots[0].End.Day() == slotDate.Day())
	})

	t.Run("slots are evaluated in the provider's local zone", func(t *testing.T) {
		loc, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)
		templates := []*entities.AvailabilityTemplate{mondayTemplate("09:00", "11:00")}

		slots := generator.GenerateDay(templates, nil, slotDate, 60, loc)

		require.Len(t, slots, 2)
		assert.Equal(t, 9, slots[0].Start.In(loc).Hour())
		assert.Equal(t, loc.String(), slots[0].Start.Location().String())
	})
}

func TestSlotGeneratorService_MarkConflicts(t *testing.T) {
	generator := services.NewSlotGeneratorService()
	templates := []*entities.AvailabilityTemplate{mondayTemplate("09:00", "12:00")}
	slots := generator.GenerateDay(templates, nil, slotDate, 60, time.UTC)

	t.Run("conflicting slot is flagged, not removed", func(t *testing.T) {
		appointments := []*entities.Appointment{
			{
				ProviderID: "prov-1",
				Start:      time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
				End:        time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC),
				Status:     entities.AppointmentStatusScheduled,
			},
		}

		marked := generator.MarkConflicts(slots, appointments)

		require.Len(t, marked, 3)
		assert.True(t, marked[0].Available)
		assert.False(t, marked[1].Available)
		assert.True(t, marked[2].Available)
	})

	t.Run("cancelled appointments never block", func(t *testing.T) {
		appointments := []*entities.Appointment{
			{
				ProviderID: "prov-1",
				Start:      time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
				End:        time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC),
				Status:     entities.AppointmentStatusCancelled,
			},
		}

		marked := generator.MarkConflicts(slots, appointments)

		for _, slot := range marked {
			assert.True(t, slot.Available)
		}
	})

	t.Run("partial overlap flags the slot", func(t *testing.T) {
		appointments := []*entities.Appointment{
			{
				ProviderID: "prov-1",
				Start:      time.Date(2026, 3, 9, 10, 30, 0, 0, time.UTC),
				End:        time.Date(2026, 3, 9, 11, 30, 0, 0, time.UTC),
				Status:     entities.AppointmentStatusScheduled,
			},
		}

		marked := generator.MarkConflicts(slots, appointments)

		assert.True(t, marked[0].Available)
		assert.False(t, marked[1].Available)
		assert.False(t, marked[2].Available)
	})

	t.Run("back-to-back appointment does not flag the adjacent slot", func(t *testing.T) {
		appointments := []*entities.Appointment{
			{
				ProviderID: "prov-1",
				Start:      time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC),
				End:        time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC),
				Status:     entities.AppointmentStatusScheduled,
			},
		}

		marked := generator.MarkConflicts(slots, appointments)

		for _, slot := range marked {
			assert.True(t, slot.Available)
		}
	})

	t.Run("input slice is not mutated", func(t *testing.T) {
		appointments := []*entities.Appointment{
			{
				Start:  time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC),
				End:    time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC),
				Status: entities.AppointmentStatusScheduled,
			},
		}

		_ = generator.MarkConflicts(slots, appointments)

		for _, slot := range slots {
			assert.True(t, slot.Available)
		}
	})
}
