package workflow

import "strings"

// Known state names with dedicated builders. Any other name is preserved as
// a generic state so no client-supplied state is silently lost.
const (
	StateIntroduction          = "introduction"
	StateInformationCollection = "information_collection"
	StateCheckAvailability     = "check_availability"
	StateAppointmentBooking    = "appointment_booking"
	StateEndConversation       = "end_conversation"
)

// StateInput is one entry of the simplified workflow description supplied by
// clients.
type StateInput struct {
	Name        string `json:"name"`
	StatePrompt string `json:"state_prompt,omitempty"`
	Description string `json:"description,omitempty"`
	CalAPIKey   string `json:"cal_api_key,omitempty"`
	EventTypeID int    `json:"event_type_id,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
}

// Edge is a directed transition to another state by name.
type Edge struct {
	DestinationStateName string `json:"destination_state_name"`
	Description          string `json:"description"`
}

// Tool is a tool invocation attached to a state. The Cal.com fields are only
// set on calendar tools; the response engine rejects nulls, so strings are
// always present once set.
type Tool struct {
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CalAPIKey   *string `json:"cal_api_key,omitempty"`
	EventTypeID *int    `json:"event_type_id,omitempty"`
	Timezone    *string `json:"timezone,omitempty"`
}

// State is one fully-specified state in the graph pushed to the response
// engine. Edges and Tools are always non-nil so they serialize as [] and
// never as null.
type State struct {
	Name        string `json:"name"`
	StatePrompt string `json:"state_prompt"`
	Edges       []Edge `json:"edges"`
	Tools       []Tool `json:"tools"`
}

const endConversationPrompt = "Confirm the booking details one last time, thank the user for choosing us, and say goodbye professionally. Then hang up."

func buildIntroductionState(in StateInput) State {
	return State{
		Name:        StateIntroduction,
		StatePrompt: in.StatePrompt,
		Edges: []Edge{
			{DestinationStateName: StateInformationCollection, Description: in.Description},
		},
		Tools: []Tool{},
	}
}

func buildInformationCollectionState(in StateInput) State {
	return State{
		Name:        StateInformationCollection,
		StatePrompt: in.StatePrompt,
		Edges: []Edge{
			{DestinationStateName: StateCheckAvailability, Description: in.Description},
		},
		Tools: []Tool{},
	}
}

func buildCheckAvailabilityState(in StateInput) State {
	desc := in.Description
	if desc == "" {
		desc = "Check availability."
	}
	return State{
		Name:        StateCheckAvailability,
		StatePrompt: in.StatePrompt,
		Edges: []Edge{
			{DestinationStateName: StateAppointmentBooking, Description: in.Description},
		},
		Tools: []Tool{
			{
				Type:        "check_availability_cal",
				Name:        "check_availability",
				Description: desc,
				CalAPIKey:   &in.CalAPIKey,
				EventTypeID: &in.EventTypeID,
				Timezone:    &in.Timezone,
			},
		},
	}
}

func buildAppointmentBookingState(in StateInput) State {
	desc := in.Description
	if desc == "" {
		desc = "Book the appointment."
	}
	return State{
		Name:        StateAppointmentBooking,
		StatePrompt: in.StatePrompt,
		Edges: []Edge{
			{DestinationStateName: StateEndConversation, Description: in.Description},
		},
		Tools: []Tool{
			{
				Type:        "book_appointment_cal",
				Name:        "book_appointment",
				Description: desc,
				CalAPIKey:   &in.CalAPIKey,
				EventTypeID: &in.EventTypeID,
				Timezone:    &in.Timezone,
			},
		},
	}
}

// buildEndConversationState builds the terminal state: a farewell prompt, a
// call-termination tool and no outgoing edges. A client-supplied prompt
// overrides the default farewell.
func buildEndConversationState(prompt string) State {
	if prompt == "" {
		prompt = endConversationPrompt
	}
	return State{
		Name:        StateEndConversation,
		StatePrompt: prompt,
		Edges:       []Edge{},
		Tools: []Tool{
			{
				Type:        "end_call",
				Name:        "hang_up_call",
				Description: "End the call.",
			},
		},
	}
}

func buildGenericState(in StateInput) State {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = "unknown_state"
	}
	return State{
		Name:        name,
		StatePrompt: in.StatePrompt,
		Edges:       []Edge{},
		Tools:       []Tool{},
	}
}

// MapStates converts a simplified client-supplied workflow into the fully
// specified state list the response engine requires. Input order is
// preserved; the first produced state is the engine's starting state. The
// output always contains exactly one terminal end_conversation state: if the
// input omits it, a default one is appended.
func MapStates(inputs []StateInput) []State {
	states := make([]State, 0, len(inputs)+1)

	for _, in := range inputs {
		switch strings.TrimSpace(in.Name) {
		case StateIntroduction:
			states = append(states, buildIntroductionState(in))
		case StateInformationCollection:
			states = append(states, buildInformationCollectionState(in))
		case StateCheckAvailability:
			states = append(states, buildCheckAvailabilityState(in))
		case StateAppointmentBooking:
			states = append(states, buildAppointmentBookingState(in))
		case StateEndConversation:
			states = append(states, buildEndConversationState(in.StatePrompt))
		default:
			states = append(states, buildGenericState(in))
		}
	}

	if !hasEndConversation(states) {
		states = append(states, buildEndConversationState(""))
	}

	return states
}

// StartingState returns the name of the engine's starting state, always the
// first element of the mapped list.
func StartingState(states []State) string {
	if len(states) == 0 {
		return ""
	}
	return states[0].Name
}

func hasEndConversation(states []State) bool {
	for _, s := range states {
		if s.Name == StateEndConversation {
			return true
		}
	}
	return false
}
