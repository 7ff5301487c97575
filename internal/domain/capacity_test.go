package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to BookingStatus
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestTimeSlotReserveAndRelease(t *testing.T) {
	slot := TimeSlot{MaxCapacity: 10, Available: 10}

	require.NoError(t, slot.Reserve(4))
	assert.Equal(t, 6, slot.Available)
	assert.Equal(t, 4, slot.Booked())

	assert.ErrorIs(t, slot.Reserve(7), ErrInsufficientCapacity)
	assert.ErrorIs(t, slot.Reserve(0), ErrInvalidParticipants)
	assert.Equal(t, 6, slot.Available)

	slot.Release(4)
	assert.Equal(t, 10, slot.Available)

	slot.Release(3)
	assert.Equal(t, 10, slot.Available, "release never exceeds max capacity")
}

func TestTimeSlotAdjust(t *testing.T) {
	slot := TimeSlot{MaxCapacity: 5, Available: 2}

	assert.ErrorIs(t, slot.Adjust(3), ErrInsufficientCapacity)
	assert.Equal(t, 2, slot.Available)

	require.NoError(t, slot.Adjust(-1))
	assert.Equal(t, 3, slot.Available)

	require.NoError(t, slot.Adjust(3))
	assert.Equal(t, 0, slot.Available)
}

func TestTimeSlotApplyUpdate(t *testing.T) {
	base := TimeSlot{ID: "slot_1", Date: "2025-03-01", Time: "10:00", MaxCapacity: 10, Available: 6}

	tests := []struct {
		name      string
		update    SlotUpdate
		wantErr   error
		wantMax   int
		wantAvail int
	}{
		{
			name:      "grow capacity keeps booked seats",
			update:    SlotUpdate{MaxCapacity: Some(12)},
			wantMax:   12,
			wantAvail: 8,
		},
		{
			name:    "shrink below booked",
			update:  SlotUpdate{MaxCapacity: Some(3)},
			wantErr: ErrCapacityBelowBooked,
		},
		{
			name:    "zero capacity",
			update:  SlotUpdate{MaxCapacity: Some(0)},
			wantErr: ErrInvalidCapacity,
		},
		{
			name:      "capacity with explicit booked override",
			update:    SlotUpdate{MaxCapacity: Some(8), InitialBooked: Some(2)},
			wantMax:   8,
			wantAvail: 6,
		},
		{
			name:      "only initial booked",
			update:    SlotUpdate{InitialBooked: Some(7)},
			wantMax:   10,
			wantAvail: 3,
		},
		{
			name:    "initial booked above capacity",
			update:  SlotUpdate{InitialBooked: Some(11)},
			wantErr: ErrCapacityBelowBooked,
		},
		{
			name:      "same capacity is not a change",
			update:    SlotUpdate{MaxCapacity: Some(10)},
			wantMax:   10,
			wantAvail: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := base
			err := slot.ApplyUpdate(tt.update)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, base, slot)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMax, slot.MaxCapacity)
			assert.Equal(t, tt.wantAvail, slot.Available)
		})
	}
}

func TestApplyUpdateFields(t *testing.T) {
	slot := TimeSlot{Date: "2025-03-01", Time: "10:00", EndTime: "12:00", MaxCapacity: 4, Available: 4, EventType: EventNormal}

	require.NoError(t, slot.ApplyUpdate(SlotUpdate{
		Date:      Some("2025-03-02"),
		EndTime:   Some(""),
		EventType: Some(EventStammtisch),
	}))

	assert.Equal(t, "2025-03-02", slot.Date)
	assert.Equal(t, "10:00", slot.Time)
	assert.Empty(t, slot.EndTime)
	assert.Equal(t, EventStammtisch, slot.EventType)
}

func TestRemainingSpots(t *testing.T) {
	w := Workshop{ID: "ws_1", MaxParticipants: 8}
	bookings := []WorkshopBooking{
		{WorkshopID: "ws_1", Participants: 3, Status: StatusPending},
		{WorkshopID: "ws_1", Participants: 2, Status: StatusConfirmed},
		{WorkshopID: "ws_1", Participants: 4, Status: StatusCancelled},
		{WorkshopID: "ws_2", Participants: 5, Status: StatusPending},
	}

	assert.Equal(t, 3, RemainingSpots(w, bookings))
	assert.Equal(t, 0, RemainingSpots(Workshop{ID: "ws_2", MaxParticipants: 4}, bookings))
}

func TestActiveParticipants(t *testing.T) {
	bookings := []Booking{
		{SlotID: "a", Participants: 2, Status: StatusPending},
		{SlotID: "a", Participants: 1, Status: StatusCancelled},
		{SlotID: "a", Participants: 3, Status: StatusConfirmed},
		{SlotID: "b", Participants: 9, Status: StatusPending},
	}

	assert.Equal(t, 5, ActiveParticipants(bookings, "a"))
}

func TestOptionalJSON(t *testing.T) {
	var body struct {
		EndTime     Optional[string] `json:"endTime"`
		MaxCapacity Optional[int]    `json:"maxCapacity"`
		Date        Optional[string] `json:"date"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"endTime":null,"maxCapacity":6}`), &body))

	assert.True(t, body.EndTime.Set)
	assert.Empty(t, body.EndTime.Value)
	assert.Equal(t, Some(6), body.MaxCapacity)
	assert.False(t, body.Date.Set)
	assert.Equal(t, "x", body.Date.Or("x"))
}
