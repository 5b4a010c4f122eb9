package chat

// State is the orchestrator's position in the chat/booking flow.
type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
	StateTriageReceived
	StateScheduling
	StateConfirmingBooking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateTriageReceived:
		return "triage_received"
	case StateScheduling:
		return "scheduling"
	case StateConfirmingBooking:
		return "confirming_booking"
	default:
		return "unknown"
	}
}

// Sender identifies which side of the conversation produced a message.
type Sender int

const (
	SenderUser Sender = iota
	SenderBot
)

// Message is one transcript entry.
type Message struct {
	Sender Sender
	Text   string
}

// AdviceScheduleAppointment is the triage signal that unlocks the
// scheduling sub-flow.
const AdviceScheduleAppointment = "schedule_appointment"
