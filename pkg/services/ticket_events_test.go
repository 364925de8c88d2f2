package services

import (
	"errors"
	"testing"

	"github.com/dukex/careflow/pkg/mocks"
	"github.com/dukex/careflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestParseTicketEventsMode(t *testing.T) {
	tests := []struct {
		value   string
		want    TicketEventsMode
		wantErr bool
	}{
		{value: "", want: TicketEventsOff},
		{value: "off", want: TicketEventsOff},
		{value: "inline", want: TicketEventsInline},
		{value: "bus", want: TicketEventsBus},
		{value: "kafka", wantErr: true},
		{value: "INLINE", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			mode, err := ParseTicketEventsMode(tt.value)

			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidEventsMode)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, mode)
		})
	}
}

func TestTicketEvents_Emit(t *testing.T) {
	t.Run("off mode does nothing", func(t *testing.T) {
		dispatcher := &mocks.MockDispatcher{}
		ticketEvents := NewTicketEvents(TicketEventsOff, dispatcher, nil, newTestLogger())

		result, err := ticketEvents.Emit(t.Context(), "ticket_created", "ticket-1", nil)

		require.NoError(t, err)
		assert.Nil(t, result)
		dispatcher.AssertNotCalled(t, "Dispatch")
	})

	t.Run("inline mode dispatches", func(t *testing.T) {
		dispatcher := &mocks.MockDispatcher{}
		expected := &workflow.DispatchResult{Matched: []string{"wf-1"}}
		dispatcher.On("Dispatch", mock.Anything, "ticket_created", "ticket-1", map[string]any{}).Return(expected, nil)

		ticketEvents := NewTicketEvents(TicketEventsInline, dispatcher, nil, newTestLogger())

		result, err := ticketEvents.Emit(t.Context(), "ticket_created", "ticket-1", nil)

		require.NoError(t, err)
		assert.Equal(t, expected, result)
		dispatcher.AssertExpectations(t)
	})
}

func TestTicketEvents_Submit(t *testing.T) {
	t.Run("off mode still dispatches explicit events", func(t *testing.T) {
		dispatcher := &mocks.MockDispatcher{}
		dispatcher.On("Dispatch", mock.Anything, "ticket_updated", "ticket-1", map[string]any{"by": "nurse"}).
			Return(&workflow.DispatchResult{}, nil)

		ticketEvents := NewTicketEvents(TicketEventsOff, dispatcher, nil, newTestLogger())

		_, err := ticketEvents.Submit(t.Context(), "ticket_updated", "ticket-1", map[string]any{"by": "nurse"})

		require.NoError(t, err)
		dispatcher.AssertExpectations(t)
	})

	t.Run("bus mode publishes keyed by ticket", func(t *testing.T) {
		bus := &mocks.MockEventBus{}
		bus.On("Publish", mock.Anything, "ticket-1", mock.Anything).Return(nil)

		ticketEvents := NewTicketEvents(TicketEventsBus, nil, bus, newTestLogger())

		result, err := ticketEvents.Submit(t.Context(), "ticket_updated", "ticket-1", nil)

		require.NoError(t, err)
		assert.Nil(t, result)
		bus.AssertExpectations(t)
	})

	t.Run("bus publish failure", func(t *testing.T) {
		bus := &mocks.MockEventBus{}
		bus.On("Publish", mock.Anything, "ticket-1", mock.Anything).Return(errors.New("broker down"))

		ticketEvents := NewTicketEvents(TicketEventsBus, nil, bus, newTestLogger())

		_, err := ticketEvents.Submit(t.Context(), "ticket_updated", "ticket-1", nil)

		require.ErrorContains(t, err, "broker down")
	})

	t.Run("requires event and ticket", func(t *testing.T) {
		ticketEvents := NewTicketEvents(TicketEventsInline, &mocks.MockDispatcher{}, nil, newTestLogger())

		_, err := ticketEvents.Submit(t.Context(), "", "ticket-1", nil)
		require.ErrorIs(t, err, ErrEventNameRequired)

		_, err = ticketEvents.Submit(t.Context(), "ticket_updated", "", nil)
		require.ErrorIs(t, err, ErrTicketIDRequired)
		assert.True(t, IsValidationError(err))
	})
}
