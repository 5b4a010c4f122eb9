// Package booking owns the appointment draft and its derived confirmation
// gate. One Coordinator exists per scheduling sub-flow and dies with it.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthsyncai/healthsync-go/api"
)

var (
	// ErrSubmitInFlight rejects a second submission while one is running.
	ErrSubmitInFlight = errors.New("booking: a submission is already in flight")
	// ErrIncompleteDraft rejects confirmation before doctor and time slot
	// are both chosen.
	ErrIncompleteDraft = errors.New("booking: select a doctor, date, and time first")
)

// Draft is the booking-in-progress value set.
type Draft struct {
	Doctor     *api.Doctor
	Date       Date
	TimeSlot   string
	Submitting bool
}

// Coordinator guards a Draft behind one mutex so the confirmation gate is
// always derived from a consistent snapshot of its three inputs.
type Coordinator struct {
	mu      sync.Mutex
	draft   Draft
	doctors []api.Doctor

	client *api.Client
	log    *zap.Logger
	loc    *time.Location
}

// NewCoordinator builds a coordinator with the draft dated today.
func NewCoordinator(client *api.Client, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		client: client,
		log:    log,
		loc:    time.Local,
		draft:  Draft{Date: DateOf(time.Now())},
	}
}

// LoadDoctors fetches the bookable doctors and auto-selects the first.
func (c *Coordinator) LoadDoctors(ctx context.Context) ([]api.Doctor, error) {
	doctors, err := c.client.ListDoctors(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.doctors = doctors
	if c.draft.Doctor == nil && len(doctors) > 0 {
		first := doctors[0]
		c.draft.Doctor = &first
	}
	c.mu.Unlock()
	c.log.Debug("doctors loaded", zap.Int("count", len(doctors)))
	return doctors, nil
}

// Doctors returns the last fetched doctor list.
func (c *Coordinator) Doctors() []api.Doctor {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]api.Doctor, len(c.doctors))
	copy(out, c.doctors)
	return out
}

// SelectDoctor sets the chosen doctor.
func (c *Coordinator) SelectDoctor(d api.Doctor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Doctor = &d
}

// SelectDate sets the chosen calendar date.
func (c *Coordinator) SelectDate(d Date) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Date = d
}

// SelectTime sets the chosen time slot.
func (c *Coordinator) SelectTime(slot string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.TimeSlot = slot
}

// Snapshot returns a consistent copy of the draft.
func (c *Coordinator) Snapshot() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// CanConfirm derives the confirmation gate from one consistent snapshot:
// a time slot and doctor are chosen and no submission is in flight.
func (c *Coordinator) CanConfirm() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canConfirmLocked()
}

func (c *Coordinator) canConfirmLocked() bool {
	return c.draft.TimeSlot != "" && c.draft.Doctor != nil && !c.draft.Submitting
}

// AppointmentTimes converts the draft's date and slot into ISO-8601 start
// and end instants (one hour apart).
func (c *Coordinator) AppointmentTimes() (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft.TimeSlot == "" {
		return "", "", ErrIncompleteDraft
	}
	return appointmentTimes(c.draft.Date, c.draft.TimeSlot, c.loc)
}

// Submit books the drafted appointment. The in-flight guard is taken
// inside the same critical section as the gate check, so a second Submit
// is rejected rather than raced; Submitting is cleared on every exit path.
func (c *Coordinator) Submit(ctx context.Context) (api.Appointment, error) {
	c.mu.Lock()
	if c.draft.Submitting {
		c.mu.Unlock()
		return api.Appointment{}, ErrSubmitInFlight
	}
	if !c.canConfirmLocked() {
		c.mu.Unlock()
		return api.Appointment{}, ErrIncompleteDraft
	}
	start, end, err := appointmentTimes(c.draft.Date, c.draft.TimeSlot, c.loc)
	if err != nil {
		c.mu.Unlock()
		return api.Appointment{}, fmt.Errorf("booking: cannot format appointment time: %w", err)
	}
	doctor := *c.draft.Doctor
	c.draft.Submitting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.draft.Submitting = false
		c.mu.Unlock()
	}()

	req := api.CreateAppointmentRequest{
		DoctorID:        doctor.ID,
		StartTime:       start,
		EndTime:         end,
		TelemedicineURL: "https://example.com/meeting/" + uuid.NewString()[:8],
	}
	appointment, err := c.client.CreateAppointment(ctx, req)
	if err != nil {
		c.log.Warn("appointment submission failed", zap.Error(err))
		return api.Appointment{}, err
	}
	c.log.Info("appointment created", zap.Int("id", appointment.ID), zap.Int("doctor_id", doctor.ID))
	return appointment, nil
}
