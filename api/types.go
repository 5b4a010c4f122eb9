package api

// Wire models for the HealthSync backend. Field names on the wire are
// snake_case; every field carries an explicit tag because some response
// shapes mix conventions.

// Empty marks operations whose 2xx response carries no body. Decoding any
// other type from an empty body is a domain error.
type Empty struct{}

// AuthResponse is returned by the login and register endpoints.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      int    `json:"user_id"`
}

// Doctor describes a bookable doctor. Read-only; fetched, never mutated
// locally.
type Doctor struct {
	ID              int      `json:"id"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Specialization  string   `json:"specialization"`
	Qualifications  string   `json:"qualifications"`
	Email           string   `json:"email"`
	IsAvailable     bool     `json:"is_available"`
	YearsExperience *int     `json:"years_experience"`
	Bio             string   `json:"bio"`
	Rating          *float64 `json:"rating"`
}

// CreateAppointmentRequest is the booking submission payload.
type CreateAppointmentRequest struct {
	DoctorID        int    `json:"doctor_id"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	TelemedicineURL string `json:"telemedicine_url"`
}

// Appointment is a created or fetched appointment.
type Appointment struct {
	ID              int    `json:"id"`
	PatientID       int    `json:"patient_id"`
	DoctorID        int    `json:"doctor_id"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Status          string `json:"status"`
	TelemedicineURL string `json:"telemedicine_url"`
}

// ChatMessage is a single exchange within a room: the user's input and the
// model's response, with optional triage advice.
type ChatMessage struct {
	ID            int    `json:"id"`
	InputText     string `json:"input_text"`
	ModelResponse string `json:"model_response"`
	TriageAdvice  string `json:"triage_advice"`
	CreatedAt     string `json:"created_at"`
	RoomNumber    int    `json:"room_number"`
}

// ChatRoomHistory is the append-only exchange log of one room.
type ChatRoomHistory struct {
	RoomNumber int           `json:"room_number"`
	Chats      []ChatMessage `json:"chats"`
}

// ChatSymptomRequest sends a message to the chatbot. RoomNumber is omitted
// for the first message of a brand-new chat only when unknown.
type ChatSymptomRequest struct {
	SymptomText string `json:"symptom_text"`
	RoomNumber  int    `json:"room_number,omitempty"`
}

// ChatSymptomResponse is the chatbot's reply.
type ChatSymptomResponse struct {
	Analysis     string `json:"analysis"`
	TriageAdvice string `json:"triage_advice"`
}

/// HealthRecord is a patient record: triage output or a doctor note.
type HealthRecord struct {
	ID                   int             `json:"id"`
	PatientID            int             `json:"patient_id"`
	DoctorID             int             `json:"doctor_id"`
	Title                string          `json:"title"`
	Summary              string          `json:"summary"`
	RecordType           string          `json:"record_type"`
	Symptoms             []Symptom       `json:"symptoms"`
	Diagnosis            []Diagnosis     `json:"diagnosis"`
	TreatmentPlan        []TreatmentPlan `json:"treatment_plan"`
	Medication           []Medication    `json:"medication"`
	TriageRecommendation string          `json:"triage_recommendation"`
	ConfidenceScore      *float64        `json:"confidence_score"`
	CreatedAt            string          `json:"created_at"`
	UpdatedAt            string          `json:"updated_at"`
}

type Symptom struct {
	Name        string `json:"name"`
	Severity    *int   `json:"severity,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Description string `json:"description,omitempty"`
}

type Diagnosis struct {
	Name        string   `json:"name"`
	ICD10Code   string   `json:"icd10_code,omitempty"`
	Description string   `json:"description,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

type TreatmentPlan struct {
	Description string `json:"description"`
	Duration    string `json:"duration,omitempty"`
	FollowUp    string `json:"follow_up,omitempty"`
}

type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// DoctorNoteRequest creates a doctor note against a patient's record. The
// backend sets record_type from the endpoint.
type DoctorNoteRequest struct {
	Title         string          `json:"title"`
	Summary       string          `json:"summary"`
	PatientID     int             `json:"patient_id"`
	Symptoms      []Symptom       `json:"symptoms"`
	Diagnosis     []Diagnosis     `json:"diagnosis"`
	TreatmentPlan []TreatmentPlan `json:"treatment_plan"`
	Medication    []Medication    `json:"medication"`
}

// PatientRegistration is the flat patient signup payload.
type PatientRegistration struct {
	Username           string  `json:"username"`
	Email              string  `json:"email"`
	Password           string  `json:"password"`
	FirstName          string  `json:"first_name"`
	LastName           string  `json:"last_name"`
	DateOfBirth        string  `json:"date_of_birth"`
	Gender             string  `json:"gender"`
	HeightCm           float64 `json:"height_cm"`
	WeightKg           float64 `json:"weight_kg"`
	BloodType          string  `json:"blood_type"`
	Allergies          string  `json:"allergies,omitempty"`
	ExistingConditions string  `json:"existing_conditions,omitempty"`
}

// DoctorRegistration is the flat doctor signup payload. Role is always
// "doctor".
type DoctorRegistration struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Role           string `json:"role"`
	Specialization string `json:"specialization"`
	Qualifications string `json:"qualifications"`
	IsAvailable    bool   `json:"is_available"`
}

// Statistics is the aggregate counters endpoint payload shown on the
// doctor dashboard.
type Statistics struct {
	TotalUsers         int `json:"total_users"`
	TotalDoctors       int `json:"total_doctors"`
	TotalPatients      int `json:"total_patients"`
	TotalAppointments  int `json:"total_appointments"`
	TotalChatSessions  int `json:"total_chat_sessions"`
	TotalHealthRecords int `json:"total_health_records"`
	TotalTriageRecords int `json:"total_triage_records"`
	TotalDoctorNotes   int `json:"total_doctor_notes"`
}
