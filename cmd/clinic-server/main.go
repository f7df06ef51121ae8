package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicdesk/clinicdesk/internal/config"
	"github.com/clinicdesk/clinicdesk/internal/domain/appointments"
	"github.com/clinicdesk/clinicdesk/internal/domain/dashboard"
	"github.com/clinicdesk/clinicdesk/internal/domain/forms"
	"github.com/clinicdesk/clinicdesk/internal/domain/insurance"
	"github.com/clinicdesk/clinicdesk/internal/domain/patients"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/internal/platform/middleware"
	"github.com/clinicdesk/clinicdesk/internal/platform/reminder"
)

// ReminderAdapter adapts a reminder.Scheduler to the appointments.Notifier
// interface, avoiding circular imports between the appointments and reminder
// packages.
type ReminderAdapter struct {
	sched *reminder.Scheduler
}

// NewReminderAdapter creates a new adapter.
func NewReminderAdapter(sched *reminder.Scheduler) *ReminderAdapter {
	return &ReminderAdapter{sched: sched}
}

func toReminderAppointment(a *appointments.Appointment) reminder.Appointment {
	return reminder.Appointment{ID: a.ID, Date: a.Date, Slot: a.Slot}
}

// ScheduleReminders implements appointments.Notifier.
func (r *ReminderAdapter) ScheduleReminders(a *appointments.Appointment, email string) {
	r.sched.Schedule(toReminderAppointment(a), email)
}

// SendReminder implements appointments.Notifier.
func (r *ReminderAdapter) SendReminder(ctx context.Context, a *appointments.Appointment, email, kind string) error {
	return r.sched.SendNow(ctx, toReminderAppointment(a), email, kind)
}

// CancelReminders implements appointments.Notifier.
func (r *ReminderAdapter) CancelReminders(appointmentID int64) {
	r.sched.Cancel(appointmentID)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token signed with AUTH_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			roles, _ := cmd.Flags().GetStringSlice("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AuthSecret == "" {
				return fmt.Errorf("AUTH_SECRET is not configured")
			}

			token, err := auth.IssueToken(cfg.AuthSecret, subject, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().String("subject", "front-desk", "Token subject")
	cmd.Flags().StringSlice("role", []string{"staff"}, "Token roles")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Repositories
	patientRepo := patients.NewJSONRepository(cfg.DataDir)
	apptRepo := appointments.NewJSONRepository(cfg.DataDir)
	formRepo := forms.NewJSONRepository(cfg.DataDir)
	policyRepo := insurance.NewJSONRepository(cfg.DataDir)

	// Services. Patients and appointments reference each other (auto-booking
	// one way, email lookup the other), so the directory is wired after both
	// exist.
	apptSvc := appointments.NewService(apptRepo, nil, logger)
	patientSvc := patients.NewService(patientRepo, apptSvc, logger)
	apptSvc.SetPatients(patientSvc)
	formSvc := forms.NewService(formRepo, cfg.UploadDir, logger)
	policySvc := insurance.NewService(policyRepo, logger)
	dashSvc := dashboard.NewService(patientSvc, apptSvc, formSvc, policySvc, logger)

	// Reminder delivery
	var sched *reminder.Scheduler
	if cfg.RemindersEnabled {
		mailer := &reminder.SMTPMailer{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			From:     cfg.SMTPFrom,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		}
		sched = reminder.NewScheduler(mailer, apptSvc, logger)
		apptSvc.SetNotifier(NewReminderAdapter(sched))
		defer sched.Stop()

		rearmReminders(context.Background(), logger, apptSvc, patientSvc, sched)
		logger.Info().Str("smtp", cfg.SMTPHost).Msg("reminder delivery enabled")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit(cfg.MaxUploadBytes))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// API group
	api := e.Group("/api/v1")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))
	api.Use(auth.Middleware(cfg.AuthSecret))

	// Routes
	patients.NewHandler(patientSvc).RegisterRoutes(api)
	appointments.NewHandler(apptSvc).RegisterRoutes(api)
	forms.NewHandler(formSvc).RegisterRoutes(api)
	insurance.NewHandler(policySvc).RegisterRoutes(api)
	dashboard.NewHandler(dashSvc).RegisterRoutes(api)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// rearmReminders re-arms timers for upcoming appointments after a restart.
// Already-sent kinds stay suppressed through the reminders_sent record.
func rearmReminders(ctx context.Context, logger zerolog.Logger, apptSvc *appointments.Service, patientSvc *patients.Service, sched *reminder.Scheduler) {
	upcoming, err := apptSvc.List(ctx, appointments.Filter{Status: appointments.StatusUpcoming})
	if err != nil {
		logger.Error().Err(err).Msg("could not load upcoming appointments for reminders")
		return
	}
	for _, a := range upcoming {
		email, err := patientSvc.EmailFor(ctx, a.PatientID)
		if err != nil {
			logger.Warn().Err(err).Int64("appointment_id", a.ID).Msg("no patient email for reminder")
			email = ""
		}
		sched.Schedule(reminder.Appointment{ID: a.ID, Date: a.Date, Slot: a.Slot}, email)
	}
	logger.Info().Int("count", len(upcoming)).Msg("reminders re-armed")
}
