// Command healthsync is a small terminal client over the SDK: login,
// chat, booking, and record lookups against a HealthSync backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/healthsyncai/healthsync-go/api"
	"github.com/healthsyncai/healthsync-go/auth"
	"github.com/healthsyncai/healthsync-go/booking"
	"github.com/healthsyncai/healthsync-go/chat"
	"github.com/healthsyncai/healthsync-go/config"
	"github.com/healthsyncai/healthsync-go/core"
	"github.com/healthsyncai/healthsync-go/internal/logging"
	"github.com/healthsyncai/healthsync-go/session"
	"github.com/healthsyncai/healthsync-go/vault"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	store := vault.Vault(vault.NewKeyring(cfg.VaultService))
	if os.Getenv("HEALTHSYNC_NO_KEYRING") != "" {
		store = vault.NewMemory()
	}

	client, err := api.New(
		api.WithBaseURL(cfg.BaseURL),
		api.WithTimeout(cfg.RequestTimeout),
		api.WithVault(store),
		api.WithLogger(logger),
	)
	if err != nil {
		log.Fatalf("init client: %v", err)
	}

	sessions := session.New(store, logger)
	if err := sessions.Init(); err != nil {
		log.Fatalf("restore session: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if len(os.Args) < 2 {
		usage()
	}
	switch os.Args[1] {
	case "login":
		runLogin(ctx, client, store, sessions, logger, os.Args[2:])
	case "logout":
		sessions.Logout()
		fmt.Println("logged out")
	case "doctors":
		runDoctors(ctx, client)
	case "chat":
		runChat(ctx, client, sessions, logger, os.Args[2:])
	case "history":
		runHistory(ctx, client, sessions, logger)
	case "appointments":
		runAppointments(ctx, client)
	case "records":
		runRecords(ctx, client, sessions)
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: healthsync <login|logout|doctors|chat|history|appointments|records> [flags]")
	os.Exit(2)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, core.UserMessage(err))
	os.Exit(1)
}

func runLogin(ctx context.Context, client *api.Client, store vault.Vault, sessions *session.Store, logger *zap.Logger, args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	role := fs.String("role", "patient", "patient or doctor")
	fs.Parse(args)

	svc := auth.New(client, store, sessions, logger)
	if err := svc.Login(ctx, *username, *password, session.ParseRole(*role)); err != nil {
		fail(err)
	}
	snap := sessions.Snapshot()
	fmt.Printf("logged in as %s (user %d)\n", snap.Role, snap.UserID)
}

func runDoctors(ctx context.Context, client *api.Client) {
	doctors, err := client.ListDoctors(ctx)
	if err != nil {
		fail(err)
	}
	for _, d := range doctors {
		fmt.Printf("%3d  Dr. %s %s  %s\n", d.ID, d.FirstName, d.LastName, d.Specialization)
	}
}

func runChat(ctx context.Context, client *api.Client, sessions *session.Store, logger *zap.Logger, args []string) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	message := fs.String("m", "", "message to send")
	doctorID := fs.Int("book", 0, "doctor id to book with when triage advises scheduling")
	slot := fs.String("slot", "", "time slot, e.g. \"10:30 AM\"")
	fs.Parse(args)
	if *message == "" {
		fmt.Fprintln(os.Stderr, "chat: -m is required")
		os.Exit(2)
	}

	orch := chat.NewOrchestrator(client, sessions, logger)
	if err := orch.FetchHistory(ctx); err != nil {
		fail(err)
	}
	if err := orch.SendMessage(ctx, *message); err != nil {
		fail(err)
	}
	for _, msg := range orch.Transcript() {
		prefix := "you"
		if msg.Sender == chat.SenderBot {
			prefix = "bot"
		}
		fmt.Printf("%s> %s\n", prefix, msg.Text)
	}

	if !orch.ShowSchedulePrompt() || *doctorID == 0 || *slot == "" {
		return
	}
	coord, err := orch.OpenScheduling()
	if err != nil {
		fail(err)
	}
	doctors, err := coord.LoadDoctors(ctx)
	if err != nil {
		fail(err)
	}
	for _, d := range doctors {
		if d.ID == *doctorID {
			coord.SelectDoctor(d)
		}
	}
	coord.SelectDate(booking.DateOf(time.Now().AddDate(0, 0, 1)))
	coord.SelectTime(*slot)
	appt, err := orch.ConfirmBooking(ctx)
	if err != nil {
		fail(err)
	}
	fmt.Printf("booked appointment %d (%s – %s)\n", appt.ID, appt.StartTime, appt.EndTime)
}

func runHistory(ctx context.Context, client *api.Client, sessions *session.Store, logger *zap.Logger) {
	orch := chat.NewOrchestrator(client, sessions, logger)
	if err := orch.FetchHistory(ctx); err != nil {
		fail(err)
	}
	for _, room := range orch.History() {
		fmt.Printf("room %d (%d exchanges)\n", room.RoomNumber, len(room.Chats))
	}
}

func runAppointments(ctx context.Context, client *api.Client) {
	appointments, err := client.MyAppointments(ctx)
	if err != nil {
		fail(err)
	}
	for _, a := range appointments {
		fmt.Printf("%3d  doctor %d  %s – %s  [%s]\n", a.ID, a.DoctorID, a.StartTime, a.EndTime, a.Status)
	}
}

func runRecords(ctx context.Context, client *api.Client, sessions *session.Store) {
	snap := sessions.Snapshot()
	if !snap.Authenticated {
		fail(core.NewError(core.ErrUnauthorized, "not logged in"))
	}
	patientID := snap.UserID
	if len(os.Args) > 2 {
		if id, err := strconv.Atoi(os.Args[2]); err == nil {
			patientID = id
		}
	}
	records, err := client.PatientHealthRecords(ctx, patientID)
	if err != nil {
		fail(err)
	}
	for _, r := range records {
		fmt.Printf("%3d  %-12s %s\n", r.ID, r.RecordType, r.Title)
	}
}
