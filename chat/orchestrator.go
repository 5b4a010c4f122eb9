// Package chat orchestrates a chat session: the message transcript, room
// numbering, history pagination, and the scheduling sub-flow whose
// BookingCoordinator it creates and destroys.
package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/healthsyncai/healthsync-go/api"
	"github.com/healthsyncai/healthsync-go/booking"
	"github.com/healthsyncai/healthsync-go/core"
	"github.com/healthsyncai/healthsync-go/session"
)

const greeting = "Hello, how can I help you?"

var (
	// ErrEmptyMessage rejects blank input.
	ErrEmptyMessage = errors.New("chat: message is empty")
	// ErrBusy rejects an action while a response or booking is in flight.
	ErrBusy = errors.New("chat: another operation is in flight")
	// ErrNoTriage rejects opening the scheduler before triage advised it.
	ErrNoTriage = errors.New("chat: no triage advice to schedule from")
	// ErrNotScheduling rejects confirmation outside the scheduling flow.
	ErrNotScheduling = errors.New("chat: scheduling is not open")
	// ErrCannotConfirm rejects confirmation while the booking gate is closed.
	ErrCannotConfirm = errors.New("chat: booking is not ready to confirm")
	// ErrSessionExpired is terminal: the session was torn down after an
	// unauthorized response.
	ErrSessionExpired = errors.New("chat: session expired, please log in again")
)

// Orchestrator drives one chat session. All state lives behind one mutex;
// network calls run outside it.
type Orchestrator struct {
	mu             sync.Mutex
	state          State
	transcript     []Message
	history        []api.ChatRoomHistory
	historyLoading bool
	nextRoom       int
	activeRoom     int
	advice         string
	coordinator    *booking.Coordinator
	lastErr        error

	client   *api.Client
	sessions *session.Store
	log      *zap.Logger
}

// NewOrchestrator builds an idle orchestrator seeded with the greeting.
func NewOrchestrator(client *api.Client, sessions *session.Store, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		state:      StateIdle,
		transcript: []Message{{Sender: SenderBot, Text: greeting}},
		nextRoom:   1,
		client:     client,
		sessions:   sessions,
		log:        log,
	}
}

// FetchHistory loads all chat rooms, newest first, and derives the next
// free room number from the highest seen.
func (o *Orchestrator) FetchHistory(ctx context.Context) error {
	o.mu.Lock()
	if o.historyLoading {
		o.mu.Unlock()
		return nil
	}
	o.historyLoading = true
	o.mu.Unlock()

	rooms, err := o.client.ChatHistory(ctx)

	o.mu.Lock()
	o.historyLoading = false
	o.mu.Unlock()

	if err != nil {
		if core.IsUnauthorized(err) {
			return o.expire()
		}
		return err
	}
	if !o.sessions.Authenticated() {
		return ErrSessionExpired
	}

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].RoomNumber > rooms[j].RoomNumber })

	o.mu.Lock()
	o.history = rooms
	if len(rooms) > 0 {
		o.nextRoom = rooms[0].RoomNumber + 1
	} else {
		o.nextRoom = 1
	}
	next := o.nextRoom
	o.mu.Unlock()

	o.log.Debug("chat history loaded", zap.Int("rooms", len(rooms)), zap.Int("next_room", next))
	return nil
}

// SendMessage appends text optimistically, submits it, and folds the
// reply back into the transcript. The first message of a brand-new room
// claims the next free room number; a successful first exchange bumps the
// counter and refreshes history once if the room was not already cached.
func (o *Orchestrator) SendMessage(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyMessage
	}

	o.mu.Lock()
	if o.state != StateIdle && o.state != StateTriageReceived {
		o.mu.Unlock()
		return ErrBusy
	}
	if o.activeRoom == 0 {
		o.activeRoom = o.nextRoom
	}
	room := o.activeRoom
	newRoom := room == o.nextRoom
	o.transcript = append(o.transcript, Message{Sender: SenderUser, Text: trimmed})
	o.state = StateAwaitingResponse
	o.advice = ""
	o.lastErr = nil
	o.mu.Unlock()

	resp, err := o.client.SendChatMessage(ctx, api.ChatSymptomRequest{SymptomText: trimmed, RoomNumber: room})
	if err != nil {
		if core.IsUnauthorized(err) {
			return o.expire()
		}
		o.mu.Lock()
		o.state = StateIdle
		o.lastErr = err
		o.transcript = append(o.transcript, Message{Sender: SenderBot, Text: "Sorry, something went wrong. " + core.UserMessage(err)})
		o.mu.Unlock()
		return err
	}
	if !o.sessions.Authenticated() {
		// A logout raced the reply; the result is discarded.
		o.mu.Lock()
		o.state = StateIdle
		o.mu.Unlock()
		return ErrSessionExpired
	}

	var refresh bool
	o.mu.Lock()
	reply := resp.Analysis
	if reply == "" {
		reply = "Sorry, I couldn't process that."
	}
	o.transcript = append(o.transcript, Message{Sender: SenderBot, Text: reply})
	if resp.TriageAdvice != "" {
		o.advice = resp.TriageAdvice
		o.state = StateTriageReceived
	} else {
		o.state = StateIdle
	}
	if newRoom {
		refresh = !o.roomCachedLocked(room)
		o.nextRoom = room + 1
	}
	o.mu.Unlock()

	if refresh {
		if err := o.FetchHistory(ctx); err != nil {
			o.log.Warn("history refresh after first exchange failed", zap.Error(err))
		}
	}
	return nil
}

// OpenScheduling instantiates the booking sub-flow. Only one coordinator
// exists at a time; re-entering while one is live is a no-op.
func (o *Orchestrator) OpenScheduling() (*booking.Coordinator, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.coordinator != nil {
		return o.coordinator, nil
	}
	if o.state != StateTriageReceived {
		return nil, ErrNoTriage
	}
	o.coordinator = booking.NewCoordinator(o.client, o.log)
	o.state = StateScheduling
	return o.coordinator, nil
}

// CloseScheduling discards the coordinator without booking. Retained
// triage advice brings the schedule prompt back.
func (o *Orchestrator) CloseScheduling() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.coordinator == nil {
		return
	}
	o.coordinator = nil
	if o.advice != "" {
		o.state = StateTriageReceived
	} else {
		o.state = StateIdle
	}
}

// ConfirmBooking submits the drafted appointment. Success discards the
// coordinator and the advice; failure stays in scheduling with the
// selections intact so the user can retry.
func (o *Orchestrator) ConfirmBooking(ctx context.Context) (api.Appointment, error) {
	o.mu.Lock()
	if o.state != StateScheduling || o.coordinator == nil {
		o.mu.Unlock()
		return api.Appointment{}, ErrNotScheduling
	}
	coord := o.coordinator
	if !coord.CanConfirm() {
		o.mu.Unlock()
		return api.Appointment{}, ErrCannotConfirm
	}
	o.state = StateConfirmingBooking
	o.mu.Unlock()

	appointment, err := coord.Submit(ctx)
	if err != nil {
		if core.IsUnauthorized(err) {
			return api.Appointment{}, o.expire()
		}
		o.mu.Lock()
		o.state = StateScheduling
		o.lastErr = err
		o.mu.Unlock()
		return api.Appointment{}, err
	}
	if !o.sessions.Authenticated() {
		o.mu.Lock()
		o.coordinator = nil
		o.advice = ""
		o.state = StateIdle
		o.mu.Unlock()
		return api.Appointment{}, ErrSessionExpired
	}

	o.mu.Lock()
	o.coordinator = nil
	o.advice = ""
	o.state = StateIdle
	o.mu.Unlock()
	o.log.Info("booking confirmed", zap.Int("appointment_id", appointment.ID))
	return appointment, nil
}

// StartNewChat resets the transcript and sub-flow state. The room counter
// survives so the next chat gets a fresh room.
func (o *Orchestrator) StartNewChat() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateAwaitingResponse || o.state == StateConfirmingBooking {
		return ErrBusy
	}
	o.transcript = []Message{{Sender: SenderBot, Text: greeting}}
	o.activeRoom = 0
	o.advice = ""
	o.coordinator = nil
	o.lastErr = nil
	o.state = StateIdle
	return nil
}

// State returns the current machine state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Transcript returns a copy of the current conversation.
func (o *Orchestrator) Transcript() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.transcript))
	copy(out, o.transcript)
	return out
}

// History returns the cached rooms, newest first.
func (o *Orchestrator) History() []api.ChatRoomHistory {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]api.ChatRoomHistory, len(o.history))
	copy(out, o.history)
	return out
}

// RoomTranscript replays a cached room as transcript messages, ordered by
// exchange id.
func (o *Orchestrator) RoomTranscript(roomNumber int) []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, room := range o.history {
		if room.RoomNumber != roomNumber {
			continue
		}
		chats := make([]api.ChatMessage, len(room.Chats))
		copy(chats, room.Chats)
		sort.Slice(chats, func(i, j int) bool { return chats[i].ID < chats[j].ID })
		out := make([]Message, 0, 2*len(chats))
		for _, msg := range chats {
			out = append(out,
				Message{Sender: SenderUser, Text: msg.InputText},
				Message{Sender: SenderBot, Text: msg.ModelResponse})
		}
		return out
	}
	return nil
}

// TriageAdvice returns the retained advice, if any.
func (o *Orchestrator) TriageAdvice() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.advice
}

// ShowSchedulePrompt reports whether the scheduling prompt should be
// offered to the user.
func (o *Orchestrator) ShowSchedulePrompt() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == StateTriageReceived && o.advice == AdviceScheduleAppointment
}

// NextRoom returns the room number the next new chat will claim.
func (o *Orchestrator) NextRoom() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.nextRoom
}

// LastError returns the most recent retained failure.
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

func (o *Orchestrator) roomCachedLocked(roomNumber int) bool {
	for _, room := range o.history {
		if room.RoomNumber == roomNumber {
			return true
		}
	}
	return false
}

// expire tears the session down after an unauthorized response,
// regardless of current state.
func (o *Orchestrator) expire() error {
	o.mu.Lock()
	o.coordinator = nil
	o.advice = ""
	o.state = StateIdle
	o.lastErr = ErrSessionExpired
	o.mu.Unlock()

	o.sessions.Logout()
	o.log.Warn("session expired, logged out")
	return ErrSessionExpired
}
