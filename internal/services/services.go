package services

import (
	"net/http"
	"time"

	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/identity"
	"github.com/arzan03/coursehub/internal/logger"
	"github.com/arzan03/coursehub/internal/mailer"
)

// Options carries the collaborators the services share. Identity, Objects,
// Gateway and Mailer are optional.
type Options struct {
	Store      *db.Store
	JWTSecret  string
	SessionTTL time.Duration
	Identity   identity.Verifier
	Objects    ObjectStore
	Gateway    PaymentGateway
	Mailer     mailer.Mailer
	Logger     logger.Logger

	Currency      string
	CallbackURL   string
	MediaMaxBytes int64

	NotifyWebhookURL string
	NotifyWorkers    int
	HTTPClient       *http.Client
}

// Services is every business service of the API.
type Services struct {
	Auth          *AuthService
	Users         *UserService
	Courses       *CourseService
	Categories    *CategoryService
	Tracks        *TrackService
	Announcements *AnnouncementService
	Notifications *NotificationService
	Dispatcher    *Dispatcher
	Audit         *Auditor
	Cart          *CartService
	Checkout      *CheckoutService
	Enrollments   *EnrollmentService
	Media         *MediaService
	Dashboard     *DashboardService
}

// New builds every service from opts.
func New(opts Options) *Services {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	store := opts.Store

	dispatcher := NewDispatcher(store.Notifications, store.Users, DispatcherOptions{
		WebhookURL: opts.NotifyWebhookURL,
		Workers:    opts.NotifyWorkers,
		HTTPClient: opts.HTTPClient,
		Mailer:     opts.Mailer,
		Logger:     log,
	})
	audit := NewAuditor(store.AuditLogs, dispatcher, log)
	auth := NewAuthService(store.Users, store.Sessions, NewTokenIssuer(opts.JWTSecret), opts.Identity, opts.SessionTTL, log)
	enroll := NewEnrollmentService(store.Enrollments, store.Courses)
	checkout := NewCheckoutService(store, enroll, dispatcher, audit, log, CheckoutOptions{
		Gateway:     opts.Gateway,
		Currency:    opts.Currency,
		CallbackURL: opts.CallbackURL,
	})

	return &Services{
		Auth:          auth,
		Users:         NewUserService(store.Users, store.Carts, auth, dispatcher, audit, log),
		Courses:       NewCourseService(store.Courses, store.Categories, store.Users, audit),
		Categories:    NewCategoryService(store.Categories, store.Courses, audit),
		Tracks:        NewTrackService(store.Tracks, store.Courses, store.Categories, audit),
		Announcements: NewAnnouncementService(store.Announcements, store.Courses, store.Enrollments, dispatcher, audit, log),
		Notifications: NewNotificationService(store.Notifications, dispatcher, audit),
		Dispatcher:    dispatcher,
		Audit:         audit,
		Cart:          NewCartService(store.Carts, store.Courses, store.Enrollments, opts.Currency),
		Checkout:      checkout,
		Enrollments:   enroll,
		Media:         NewMediaService(store.Media, opts.Objects, opts.MediaMaxBytes, log),
		Dashboard:     NewDashboardService(store, opts.Currency),
	}
}

// Close drains pending notification deliveries.
func (s *Services) Close() {
	s.Dispatcher.Close()
}
