package workflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countEndConversation(states []State) int {
	n := 0
	for _, s := range states {
		if s.Name == StateEndConversation {
			n++
		}
	}
	return n
}

func TestMapStatesFullBookingFlow(t *testing.T) {
	inputs := []StateInput{
		{Name: StateIntroduction, StatePrompt: "Greet the caller.", Description: "caller greeted"},
		{Name: StateInformationCollection, StatePrompt: "Collect name and reason."},
		{Name: StateCheckAvailability, StatePrompt: "Find a slot.", CalAPIKey: "cal_key", EventTypeID: 42, Timezone: "Asia/Hong_Kong"},
		{Name: StateAppointmentBooking, StatePrompt: "Book it.", CalAPIKey: "cal_key", EventTypeID: 42, Timezone: "Asia/Hong_Kong"},
	}

	states := MapStates(inputs)
	require.Len(t, states, 5)

	assert.Equal(t, StateIntroduction, states[0].Name)
	assert.Equal(t, StateInformationCollection, states[0].Edges[0].DestinationStateName)

	avail := states[2]
	require.Len(t, avail.Tools, 1)
	assert.Equal(t, "check_availability_cal", avail.Tools[0].Type)
	require.NotNil(t, avail.Tools[0].CalAPIKey)
	assert.Equal(t, "cal_key", *avail.Tools[0].CalAPIKey)
	require.NotNil(t, avail.Tools[0].EventTypeID)
	assert.Equal(t, 42, *avail.Tools[0].EventTypeID)

	booking := states[3]
	require.Len(t, booking.Tools, 1)
	assert.Equal(t, "book_appointment_cal", booking.Tools[0].Type)
	assert.Equal(t, StateEndConversation, booking.Edges[0].DestinationStateName)

	// default terminal state appended
	terminal := states[4]
	assert.Equal(t, StateEndConversation, terminal.Name)
	assert.NotEmpty(t, terminal.StatePrompt)
	assert.Empty(t, terminal.Edges)
	require.Len(t, terminal.Tools, 1)
	assert.Equal(t, "end_call", terminal.Tools[0].Type)
}

func TestMapStatesAlwaysExactlyOneTerminalState(t *testing.T) {
	cases := map[string][]StateInput{
		"empty input": {},
		"no terminal supplied": {
			{Name: StateIntroduction, StatePrompt: "hello"},
		},
		"terminal supplied": {
			{Name: StateIntroduction, StatePrompt: "hello"},
			{Name: StateEndConversation, StatePrompt: "bye"},
		},
		"terminal in the middle": {
			{Name: StateEndConversation, StatePrompt: "bye"},
			{Name: "custom_followup", StatePrompt: "follow up"},
		},
	}

	for name, inputs := range cases {
		t.Run(name, func(t *testing.T) {
			states := MapStates(inputs)
			assert.Equal(t, 1, countEndConversation(states), "expected exactly one end_conversation state")
		})
	}
}

func TestMapStatesClientTerminalPromptWins(t *testing.T) {
	states := MapStates([]StateInput{
		{Name: StateEndConversation, StatePrompt: "Thanks for calling Propest, goodbye."},
	})

	require.Len(t, states, 1)
	assert.Equal(t, "Thanks for calling Propest, goodbye.", states[0].StatePrompt)
	require.Len(t, states[0].Tools, 1)
	assert.Equal(t, "end_call", states[0].Tools[0].Type)
}

func TestMapStatesPreservesUnknownStates(t *testing.T) {
	states := MapStates([]StateInput{
		{Name: "qualification", StatePrompt: "Qualify the lead."},
		{Name: "  ", StatePrompt: "nameless"},
	})

	require.Len(t, states, 3)
	assert.Equal(t, "qualification", states[0].Name)
	assert.Equal(t, "Qualify the lead.", states[0].StatePrompt)
	assert.Equal(t, "unknown_state", states[1].Name)
	assert.Equal(t, StateEndConversation, states[2].Name)
}

func TestMapStatesPreservesInputOrder(t *testing.T) {
	states := MapStates([]StateInput{
		{Name: StateAppointmentBooking},
		{Name: StateIntroduction},
		{Name: "custom"},
	})

	require.Len(t, states, 4)
	assert.Equal(t, StateAppointmentBooking, states[0].Name)
	assert.Equal(t, StateIntroduction, states[1].Name)
	assert.Equal(t, "custom", states[2].Name)
}

func TestStartingStateIsFirstElement(t *testing.T) {
	states := MapStates([]StateInput{
		{Name: "custom_opening"},
		{Name: StateIntroduction},
	})
	assert.Equal(t, "custom_opening", StartingState(states))

	assert.Equal(t, "", StartingState(nil))
}

func TestStateSerializesEmptyCollectionsAsArrays(t *testing.T) {
	states := MapStates(nil)
	require.Len(t, states, 1)

	data, err := json.Marshal(states[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"edges":[]`)
	assert.NotContains(t, string(data), "null")
}
