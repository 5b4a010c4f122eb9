package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/healthsyncai/healthsync-go/api"
	"github.com/healthsyncai/healthsync-go/booking"
	"github.com/healthsyncai/healthsync-go/session"
	"github.com/healthsyncai/healthsync-go/vault"
)

type roundTrip func(*http.Request) (*http.Response, error)

func (r roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return r(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

// backend fakes the two chatbot endpoints. Successful symptom posts grow
// the served history, the way the real service records each exchange.
type backend struct {
	historyCalls int32
	historyBody  string
	reply        api.ChatSymptomResponse
	symptomErr   *http.Response
	lastRequest  api.ChatSymptomRequest
	rooms        []api.ChatRoomHistory
}

func (b *backend) record(req api.ChatSymptomRequest) {
	for i := range b.rooms {
		if b.rooms[i].RoomNumber == req.RoomNumber {
			b.rooms[i].Chats = append(b.rooms[i].Chats, api.ChatMessage{
				ID:            len(b.rooms[i].Chats) + 1,
				InputText:     req.SymptomText,
				ModelResponse: b.reply.Analysis,
				RoomNumber:    req.RoomNumber,
			})
			return
		}
	}
	b.rooms = append(b.rooms, api.ChatRoomHistory{
		RoomNumber: req.RoomNumber,
		Chats: []api.ChatMessage{{
			ID: 1, InputText: req.SymptomText,
			ModelResponse: b.reply.Analysis, RoomNumber: req.RoomNumber,
		}},
	})
}

func (b *backend) transport(t *testing.T) roundTrip {
	return func(req *http.Request) (*http.Response, error) {
		switch req.URL.Path {
		case "/api/chatbot/chats":
			atomic.AddInt32(&b.historyCalls, 1)
			if b.historyBody != "" {
				return jsonResponse(200, b.historyBody), nil
			}
			out, _ := json.Marshal(b.rooms)
			if b.rooms == nil {
				out = []byte(`[]`)
			}
			return jsonResponse(200, string(out)), nil
		case "/api/chatbot/symptom":
			if err := json.NewDecoder(req.Body).Decode(&b.lastRequest); err != nil {
				t.Fatalf("decode symptom request: %v", err)
			}
			if b.symptomErr != nil {
				return b.symptomErr, nil
			}
			b.record(b.lastRequest)
			out, _ := json.Marshal(b.reply)
			return jsonResponse(200, string(out)), nil
		case "/api/appointment/":
			return jsonResponse(201, `{"id":10,"patient_id":7,"doctor_id":3,"start_time":"s","end_time":"e","status":"scheduled","telemedicine_url":"u"}`), nil
		case "/api/appointment/doctors":
			return jsonResponse(200, `[{"id":3,"first_name":"Ada","last_name":"Wong"}]`), nil
		default:
			t.Fatalf("unexpected request to %s", req.URL.Path)
			return nil, nil
		}
	}
}

func newOrchestrator(t *testing.T, b *backend) (*Orchestrator, *session.Store, vault.Vault) {
	t.Helper()
	v := vault.NewMemory()
	if err := vault.Save(v, vault.Credentials{Token: "tok", UserID: "7", Role: "patient", DisplayName: "sam"}); err != nil {
		t.Fatalf("seed vault: %v", err)
	}
	client, err := api.New(
		api.WithBaseURL("http://backend.test"),
		api.WithVault(v),
		api.WithHTTPClient(&http.Client{Transport: b.transport(t)}),
	)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	sessions := session.New(v, nil)
	if err := sessions.Init(); err != nil {
		t.Fatalf("session init: %v", err)
	}
	return NewOrchestrator(client, sessions, nil), sessions, v
}

func TestTranscriptStartsWithGreeting(t *testing.T) {
	o, _, _ := newOrchestrator(t, &backend{})
	msgs := o.Transcript()
	if len(msgs) != 1 || msgs[0].Sender != SenderBot || msgs[0].Text != "Hello, how can I help you?" {
		t.Fatalf("unexpected opening transcript %+v", msgs)
	}
	if o.State() != StateIdle {
		t.Fatalf("expected idle state, got %v", o.State())
	}
}

func TestSendMessageRejectsBlank(t *testing.T) {
	o, _, _ := newOrchestrator(t, &backend{})
	if err := o.SendMessage(context.Background(), "   "); err != ErrEmptyMessage {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestFirstExchangeClaimsRoomAndRefreshesOnce(t *testing.T) {
	b := &backend{reply: api.ChatSymptomResponse{Analysis: "Sounds like a cold."}}
	o, _, _ := newOrchestrator(t, b)

	if o.NextRoom() != 1 {
		t.Fatalf("fresh orchestrator must start at room 1, got %d", o.NextRoom())
	}
	if err := o.SendMessage(context.Background(), "I have a cough"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if b.lastRequest.RoomNumber != 1 {
		t.Fatalf("first message must claim room 1, got %d", b.lastRequest.RoomNumber)
	}
	if o.NextRoom() != 2 {
		t.Fatalf("successful first exchange must bump the counter, got %d", o.NextRoom())
	}
	if got := atomic.LoadInt32(&b.historyCalls); got != 1 {
		t.Fatalf("first exchange of an uncached room must refresh history once, got %d calls", got)
	}

	// Second message in the same room: no refresh, same room.
	if err := o.SendMessage(context.Background(), "and a fever"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if b.lastRequest.RoomNumber != 1 {
		t.Fatalf("follow-up must stay in room 1, got %d", b.lastRequest.RoomNumber)
	}
	if got := atomic.LoadInt32(&b.historyCalls); got != 1 {
		t.Fatalf("follow-up messages must not refresh history, got %d calls", got)
	}

	msgs := o.Transcript()
	if len(msgs) != 5 {
		t.Fatalf("expected greeting plus two exchanges, got %d messages", len(msgs))
	}
	if msgs[2].Sender != SenderBot || msgs[2].Text != "Sounds like a cold." {
		t.Fatalf("reply missing from transcript: %+v", msgs[2])
	}
}

func TestFetchHistoryDerivesNextRoom(t *testing.T) {
	b := &backend{historyBody: `[{"room_number":2,"chats":[]},{"room_number":7,"chats":[]},{"room_number":4,"chats":[]}]`}
	o, _, _ := newOrchestrator(t, b)

	if err := o.FetchHistory(context.Background()); err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}
	if o.NextRoom() != 8 {
		t.Fatalf("next room must be highest+1, got %d", o.NextRoom())
	}
	rooms := o.History()
	if len(rooms) != 3 || rooms[0].RoomNumber != 7 || rooms[2].RoomNumber != 2 {
		t.Fatalf("history must be sorted newest first: %+v", rooms)
	}
}

func TestFetchHistoryEmptyResetsToOne(t *testing.T) {
	o, _, _ := newOrchestrator(t, &backend{historyBody: `[]`})
	if err := o.FetchHistory(context.Background()); err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}
	if o.NextRoom() != 1 {
		t.Fatalf("empty history must yield room 1, got %d", o.NextRoom())
	}
}

func TestCachedRoomSkipsRefresh(t *testing.T) {
	b := &backend{
		historyBody: `[{"room_number":1,"chats":[]}]`,
		reply:       api.ChatSymptomResponse{Analysis: "noted"},
	}
	o, _, _ := newOrchestrator(t, b)
	if err := o.FetchHistory(context.Background()); err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}
	// History says room 1 exists, so nextRoom is 2; the first message
	// claims room 2 which is uncached and triggers one refresh.
	calls := atomic.LoadInt32(&b.historyCalls)
	if err := o.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if b.lastRequest.RoomNumber != 2 {
		t.Fatalf("expected room 2, got %d", b.lastRequest.RoomNumber)
	}
	if got := atomic.LoadInt32(&b.historyCalls); got != calls+1 {
		t.Fatalf("expected exactly one refresh, got %d extra", got-calls)
	}
}

func TestTriageAdviceOpensSchedulePrompt(t *testing.T) {
	b := &backend{reply: api.ChatSymptomResponse{Analysis: "See a doctor.", TriageAdvice: AdviceScheduleAppointment}}
	o, _, _ := newOrchestrator(t, b)

	if err := o.SendMessage(context.Background(), "chest pain"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if o.State() != StateTriageReceived {
		t.Fatalf("expected triage state, got %v", o.State())
	}
	if !o.ShowSchedulePrompt() {
		t.Fatalf("schedule prompt must show after schedule_appointment advice")
	}
}

func TestOtherAdviceDoesNotPrompt(t *testing.T) {
	b := &backend{reply: api.ChatSymptomResponse{Analysis: "Rest.", TriageAdvice: "self_care"}}
	o, _, _ := newOrchestrator(t, b)

	if err := o.SendMessage(context.Background(), "mild headache"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if o.State() != StateTriageReceived {
		t.Fatalf("expected triage state, got %v", o.State())
	}
	if o.ShowSchedulePrompt() {
		t.Fatalf("non-scheduling advice must not prompt")
	}
}

func TestSendFailureAppendsApology(t *testing.T) {
	b := &backend{symptomErr: jsonResponse(500, `{"detail":"boom"}`)}
	o, _, _ := newOrchestrator(t, b)

	err := o.SendMessage(context.Background(), "hello")
	if err == nil {
		t.Fatalf("expected error")
	}
	if o.State() != StateIdle {
		t.Fatalf("failure must return to idle, got %v", o.State())
	}
	msgs := o.Transcript()
	last := msgs[len(msgs)-1]
	if last.Sender != SenderBot || !strings.Contains(last.Text, "Sorry, something went wrong.") {
		t.Fatalf("expected bot apology, got %+v", last)
	}
	// A failed first exchange must not claim the room number.
	if o.NextRoom() != 1 {
		t.Fatalf("failed exchange must not bump the counter, got %d", o.NextRoom())
	}
	if o.LastError() == nil {
		t.Fatalf("failure must be retained")
	}
}

func TestSchedulingLifecycle(t *testing.T) {
	b := &backend{reply: api.ChatSymptomResponse{Analysis: "See a doctor.", TriageAdvice: AdviceScheduleAppointment}}
	o, _, _ := newOrchestrator(t, b)

	if _, err := o.OpenScheduling(); err != ErrNoTriage {
		t.Fatalf("scheduling before triage must fail, got %v", err)
	}
	if err := o.SendMessage(context.Background(), "chest pain"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	coord, err := o.OpenScheduling()
	if err != nil {
		t.Fatalf("OpenScheduling: %v", err)
	}
	if o.State() != StateScheduling {
		t.Fatalf("expected scheduling state, got %v", o.State())
	}
	again, err := o.OpenScheduling()
	if err != nil || again != coord {
		t.Fatalf("re-entry must return the live coordinator, got %v %v", again, err)
	}

	// Closing without booking returns to the triage state; the advice and
	// prompt survive.
	o.CloseScheduling()
	if o.State() != StateTriageReceived || !o.ShowSchedulePrompt() {
		t.Fatalf("closing must restore the prompt, state=%v", o.State())
	}
}

func TestConfirmBookingSuccessResetsFlow(t *testing.T) {
	b := &backend{reply: api.ChatSymptomResponse{Analysis: "See a doctor.", TriageAdvice: AdviceScheduleAppointment}}
	o, _, _ := newOrchestrator(t, b)
	if err := o.SendMessage(context.Background(), "chest pain"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	coord, err := o.OpenScheduling()
	if err != nil {
		t.Fatalf("OpenScheduling: %v", err)
	}

	if _, err := o.ConfirmBooking(context.Background()); err != ErrCannotConfirm {
		t.Fatalf("confirming an empty draft must fail, got %v", err)
	}

	coord.SelectDoctor(api.Doctor{ID: 3, FirstName: "Ada", LastName: "Wong"})
	coord.SelectTime("10:30 AM")
	appt, err := o.ConfirmBooking(context.Background())
	if err != nil {
		t.Fatalf("ConfirmBooking: %v", err)
	}
	if appt.ID != 10 {
		t.Fatalf("unexpected appointment %+v", appt)
	}
	if o.State() != StateIdle {
		t.Fatalf("success must return to idle, got %v", o.State())
	}
	if o.TriageAdvice() != "" || o.ShowSchedulePrompt() {
		t.Fatalf("success must discard the advice")
	}
	if _, err := o.ConfirmBooking(context.Background()); err != ErrNotScheduling {
		t.Fatalf("confirming after the flow ended must fail, got %v", err)
	}
}

func TestConfirmBookingFailureRetainsSelections(t *testing.T) {
	b := &backend{reply: api.ChatSymptomResponse{Analysis: "See a doctor.", TriageAdvice: AdviceScheduleAppointment}}
	o, _, _ := newOrchestrator(t, b)
	if err := o.SendMessage(context.Background(), "chest pain"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	coord, err := o.OpenScheduling()
	if err != nil {
		t.Fatalf("OpenScheduling: %v", err)
	}
	coord.SelectDoctor(api.Doctor{ID: 3})
	coord.SelectTime("10:30 AM")

	// An impossible date makes the submission fail before any network call.
	coord.SelectDate(booking.Date{})
	if _, err := o.ConfirmBooking(context.Background()); err == nil {
		t.Fatalf("expected failure")
	}
	if o.State() != StateScheduling {
		t.Fatalf("failure must stay in scheduling, got %v", o.State())
	}
	snap := coord.Snapshot()
	if snap.Doctor == nil || snap.TimeSlot != "10:30 AM" {
		t.Fatalf("failure must retain the selections: %+v", snap)
	}
	if o.LastError() == nil {
		t.Fatalf("failure must be retained")
	}
}

func TestUnauthorizedTearsDownSession(t *testing.T) {
	b := &backend{symptomErr: jsonResponse(401, `{"detail":"Could not validate credentials"}`)}
	o, sessions, v := newOrchestrator(t, b)

	err := o.SendMessage(context.Background(), "hello")
	if err != ErrSessionExpired {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if sessions.Authenticated() {
		t.Fatalf("session must be torn down after a 401")
	}
	if _, err := v.Get(vault.KeyToken); !errors.Is(err, vault.ErrNotFound) {
		t.Fatalf("token must be cleared after a 401")
	}
	if o.State() != StateIdle {
		t.Fatalf("teardown must reset to idle, got %v", o.State())
	}
}

func TestStartNewChatKeepsRoomCounter(t *testing.T) {
	b := &backend{reply: api.ChatSymptomResponse{Analysis: "ok", TriageAdvice: AdviceScheduleAppointment}}
	o, _, _ := newOrchestrator(t, b)
	if err := o.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if _, err := o.OpenScheduling(); err != nil {
		t.Fatalf("OpenScheduling: %v", err)
	}

	if err := o.StartNewChat(); err != nil {
		t.Fatalf("StartNewChat: %v", err)
	}
	if o.State() != StateIdle || o.TriageAdvice() != "" {
		t.Fatalf("new chat must reset the flow")
	}
	msgs := o.Transcript()
	if len(msgs) != 1 || msgs[0].Text != "Hello, how can I help you?" {
		t.Fatalf("new chat must reseed the greeting: %+v", msgs)
	}
	if o.NextRoom() != 2 {
		t.Fatalf("room counter must survive a new chat, got %d", o.NextRoom())
	}

	// The next message opens a fresh room.
	if err := o.SendMessage(context.Background(), "new topic"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if b.lastRequest.RoomNumber != 2 {
		t.Fatalf("new chat must claim room 2, got %d", b.lastRequest.RoomNumber)
	}
}

func TestRoomTranscriptOrdersByExchangeID(t *testing.T) {
	b := &backend{historyBody: `[{"room_number":1,"chats":[
		{"id":2,"input_text":"and this","model_response":"second"},
		{"id":1,"input_text":"say this","model_response":"first"}]}]`}
	o, _, _ := newOrchestrator(t, b)
	if err := o.FetchHistory(context.Background()); err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}

	msgs := o.RoomTranscript(1)
	want := []Message{
		{Sender: SenderUser, Text: "say this"},
		{Sender: SenderBot, Text: "first"},
		{Sender: SenderUser, Text: "and this"},
		{Sender: SenderBot, Text: "second"},
	}
	if len(msgs) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(msgs))
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Fatalf("message %d = %+v, want %+v", i, msgs[i], want[i])
		}
	}
	if o.RoomTranscript(99) != nil {
		t.Fatalf("unknown room must yield nil")
	}
}
