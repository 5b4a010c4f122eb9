package api

import (
	"context"
	"fmt"
	"net/http"
)

// Typed operations over the backend surface. Every JSON endpoint requires
// auth except registration; login is the one multipart endpoint.

// Login exchanges credentials for a token. The auth endpoint only accepts
// form-encoded credentials.
func (c *Client) Login(ctx context.Context, username, password string) (AuthResponse, error) {
	return Do[AuthResponse](ctx, c, RequestSpec{
		Path:     "/api/auth/login",
		Method:   http.MethodPost,
		Fields:   map[string]string{"username": username, "password": password},
		Encoding: EncodingMultipart,
	})
}

// RegisterPatient creates a patient account.
func (c *Client) RegisterPatient(ctx context.Context, reg PatientRegistration) (AuthResponse, error) {
	return Do[AuthResponse](ctx, c, RequestSpec{
		Path:   "/api/auth/register",
		Method: http.MethodPost,
		Body:   reg,
	})
}

// RegisterDoctor creates a doctor account.
func (c *Client) RegisterDoctor(ctx context.Context, reg DoctorRegistration) (AuthResponse, error) {
	reg.Role = "doctor"
	return Do[AuthResponse](ctx, c, RequestSpec{
		Path:   "/api/auth/register",
		Method: http.MethodPost,
		Body:   reg,
	})
}

// ListDoctors returns the bookable doctors.
func (c *Client) ListDoctors(ctx context.Context) ([]Doctor, error) {
	return Do[[]Doctor](ctx, c, RequestSpec{
		Path:         "/api/appointment/doctors",
		Method:       http.MethodGet,
		RequiresAuth: true,
	})
}

// CreateAppointment books an appointment. The trailing slash is load
// bearing: the server redirects /api/appointment to /api/appointment/ and
// the redirected request loses the Authorization header.
func (c *Client) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (Appointment, error) {
	return Do[Appointment](ctx, c, RequestSpec{
		Path:         "/api/appointment/",
		Method:       http.MethodPost,
		Body:         req,
		RequiresAuth: true,
	})
}

// MyAppointments returns the appointments of the authenticated user; the
// backend scopes the result by the token's role.
func (c *Client) MyAppointments(ctx context.Context) ([]Appointment, error) {
	return Do[[]Appointment](ctx, c, RequestSpec{
		Path:         "/api/appointment/my-appointments",
		Method:       http.MethodGet,
		RequiresAuth: true,
	})
}

// PatientHealthRecords returns all records for one patient.
func (c *Client) PatientHealthRecords(ctx context.Context, patientID int) ([]HealthRecord, error) {
	return Do[[]HealthRecord](ctx, c, RequestSpec{
		Path:         fmt.Sprintf("/api/health-record/patient/%d", patientID),
		Method:       http.MethodGet,
		RequiresAuth: true,
	})
}

// CreateDoctorNote files a doctor note against a patient record.
func (c *Client) CreateDoctorNote(ctx context.Context, req DoctorNoteRequest) (HealthRecord, error) {
	return Do[HealthRecord](ctx, c, RequestSpec{
		Path:         "/api/health-record/doctor-note",
		Method:       http.MethodPost,
		Body:         req,
		RequiresAuth: true,
	})
}

// ChatHistory returns every chat room of the authenticated user.
func (c *Client) ChatHistory(ctx context.Context) ([]ChatRoomHistory, error) {
	return Do[[]ChatRoomHistory](ctx, c, RequestSpec{
		Path:         "/api/chatbot/chats",
		Method:       http.MethodGet,
		RequiresAuth: true,
	})
}

// SendChatMessage submits a symptom description and returns the model's
// analysis.
func (c *Client) SendChatMessage(ctx context.Context, req ChatSymptomRequest) (ChatSymptomResponse, error) {
	return Do[ChatSymptomResponse](ctx, c, RequestSpec{
		Path:         "/api/chatbot/symptom",
		Method:       http.MethodPost,
		Body:         req,
		RequiresAuth: true,
	})
}

// Statistics returns the aggregate counters for the dashboard.
func (c *Client) Statistics(ctx context.Context) (Statistics, error) {
	return Do[Statistics](ctx, c, RequestSpec{
		Path:         "/api/statistics",
		Method:       http.MethodGet,
		RequiresAuth: true,
	})
}
