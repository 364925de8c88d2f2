package schedule_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/dukex/careflow/pkg/mocks"
	"github.com/dukex/careflow/pkg/models"
	"github.com/dukex/careflow/pkg/persistence/file"
	"github.com/dukex/careflow/pkg/receivers/schedule"
	"github.com/dukex/careflow/pkg/testutil"
	"github.com/dukex/careflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestNewReceiver_ValidatesSpec(t *testing.T) {
	tickets := &mocks.MockTicketRepository{}
	dispatcher := &mocks.MockDispatcher{}

	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{name: "default", spec: schedule.DefaultSpec},
		{name: "descriptor", spec: "@hourly"},
		{name: "empty", spec: "", wantErr: true},
		{name: "garbage", spec: "every now and then", wantErr: true},
		{name: "six fields", spec: "0 */5 * * * *", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receiver, err := schedule.NewReceiver(tt.spec, tickets, dispatcher, newLogger())

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, receiver)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, receiver)
		})
	}
}

func TestSweep_DispatchesUnresolvedTickets(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())

	open := testutil.CreateTestTicket()
	inProgress := testutil.CreateTestTicket(testutil.WithStatus(models.TicketStatusInProgress))
	closed := testutil.CreateTestTicket(testutil.WithStatus(models.TicketStatusClosed))

	for _, ticket := range []*models.Ticket{open, inProgress, closed} {
		require.NoError(t, p.TicketRepository().Save(ctx, ticket))
	}

	dispatcher := &mocks.MockDispatcher{}
	dispatcher.On("Dispatch", mock.Anything, models.EventScheduledCheck, mock.Anything, mock.Anything).
		Return(&workflow.DispatchResult{}, nil)

	receiver, err := schedule.NewReceiver(schedule.DefaultSpec, p.TicketRepository(), dispatcher, newLogger())
	require.NoError(t, err)

	dispatched, err := receiver.Sweep(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, dispatched)
	dispatcher.AssertCalled(t, "Dispatch", mock.Anything, models.EventScheduledCheck, open.ID, mock.Anything)
	dispatcher.AssertCalled(t, "Dispatch", mock.Anything, models.EventScheduledCheck, inProgress.ID, mock.Anything)
	dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, closed.ID, mock.Anything)

	eventContext := dispatcher.Calls[0].Arguments.Get(3).(map[string]any)
	assert.Equal(t, models.EventScheduledCheck, eventContext["trigger_type"])
	assert.NotEmpty(t, eventContext["swept_at"])
}

func TestSweep_ContinuesAfterDispatchError(t *testing.T) {
	ctx := context.Background()
	first := testutil.CreateTestTicket()
	second := testutil.CreateTestTicket()

	tickets := &mocks.MockTicketRepository{}
	tickets.On("ListByStatus", mock.Anything, schedule.SweepStatuses).Return([]*models.Ticket{first, second}, nil)

	dispatcher := &mocks.MockDispatcher{}
	dispatcher.On("Dispatch", mock.Anything, mock.Anything, first.ID, mock.Anything).Return(nil, errors.New("boom"))
	dispatcher.On("Dispatch", mock.Anything, mock.Anything, second.ID, mock.Anything).Return(&workflow.DispatchResult{}, nil)

	receiver, err := schedule.NewReceiver("@every 1h", tickets, dispatcher, newLogger())
	require.NoError(t, err)

	dispatched, err := receiver.Sweep(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, dispatched)
	dispatcher.AssertNumberOfCalls(t, "Dispatch", 2)
}

func TestSweep_ListError(t *testing.T) {
	tickets := &mocks.MockTicketRepository{}
	tickets.On("ListByStatus", mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))

	receiver, err := schedule.NewReceiver(schedule.DefaultSpec, tickets, &mocks.MockDispatcher{}, newLogger())
	require.NoError(t, err)

	_, err = receiver.Sweep(context.Background())

	require.Error(t, err)
}

func TestReceiver_StartStop(t *testing.T) {
	ctx := context.Background()

	receiver, err := schedule.NewReceiver(schedule.DefaultSpec, &mocks.MockTicketRepository{}, &mocks.MockDispatcher{}, newLogger())
	require.NoError(t, err)

	require.NoError(t, receiver.Start(ctx))
	require.NoError(t, receiver.Stop(ctx))
}
