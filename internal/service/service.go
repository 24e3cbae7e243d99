// Package service provides the business logic behind the edap API and CLI
package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/edap/edap-server/internal/alert"
	"github.com/edap/edap-server/internal/connector"
	"github.com/edap/edap-server/internal/credentials"
	"github.com/edap/edap-server/internal/kv"
	"github.com/edap/edap-server/internal/model"
	"github.com/edap/edap-server/internal/notify"
	"github.com/edap/edap-server/internal/profile"
	"github.com/edap/edap-server/internal/sync"
	"github.com/edap/edap-server/internal/telemetry"
)

var (
	// ErrTokenNotFound is returned when a token, or a class or subject under it, does not exist
	ErrTokenNotFound = errors.New("token not found")
	// ErrInvalidRequest is returned when the caller supplied malformed input
	ErrInvalidRequest = errors.New("invalid request")
	// ErrWrongCredentials is returned when the portal rejected the username or password
	ErrWrongCredentials = errors.New("wrong credentials")
	// ErrUpstream is returned when the portal could not be reached or answered nonsense
	ErrUpstream = errors.New("upstream failure")
	// ErrNonExistentSetting is returned for an unknown settings action
	ErrNonExistentSetting = model.ErrNonExistentSetting
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go Service

// Service defines the operations exposed to clients and operators
type Service interface {
	// CheckReadiness checks whether the backing store answers
	CheckReadiness(ctx context.Context) error

	// Login returns the token for a username and password, fetching the
	// profile from the portal the first time the pair is seen
	Login(ctx context.Context, username, password, ip string) (*LoginResult, error)

	// NewEvents returns and clears the pending change events of a token
	NewEvents(ctx context.Context, token string) ([]model.ChangeEvent, error)

	// GetSetting reads a notification setting
	GetSetting(ctx context.Context, token, action string) (any, error)

	// ApplySetting changes a notification setting and returns the resulting settings
	ApplySetting(ctx context.Context, token, action string, value json.RawMessage) (*model.NotificationSettings, error)

	// Logout stops syncing and deletes everything stored for a token
	Logout(ctx context.Context, token string) error

	// RecordStats stores device details reported by the app
	RecordStats(ctx context.Context, token string, stats Stats) error

	// RegisterDevice stores the push notification token of the app
	RegisterDevice(ctx context.Context, token, deviceToken string) error

	// Info returns the personal information of the user
	Info(ctx context.Context, token string) (map[string]string, error)

	// Classes lists the classes of the user without their subjects
	Classes(ctx context.Context, token string) ([]ClassSummary, error)

	// Subjects lists the subjects of a class
	Subjects(ctx context.Context, token string, classID int) ([]model.SubjectRecord, error)

	// Subject returns one subject of a class
	Subject(ctx context.Context, token string, classID, subjectID int) (*model.SubjectRecord, error)

	// Tests lists the tests of a class
	Tests(ctx context.Context, token string, classID int) ([]model.TestRecord, error)

	// Absences returns the absences of a class
	Absences(ctx context.Context, token string, classID int) (*model.Absences, error)

	// Workers lists the running sync workers
	Workers() []sync.WorkerInfo

	// Counters returns the persistent usage counters
	Counters(ctx context.Context) (map[string]int64, error)

	// SendNotification pushes an operator-written message to the device of a token
	SendNotification(ctx context.Context, token, title, body string) error

	// Simulate applies a supplied snapshot to a token as if it had been fetched
	Simulate(ctx context.Context, token string, snap *model.ProfileSnapshot) ([]model.ChangeEvent, error)

	// CheckInactiveDevices finds tokens whose device no longer exists and
	// optionally purges them
	CheckInactiveDevices(ctx context.Context, autoDelete bool) (*DeviceReport, error)

	// CreateTestUser stores a synthetic user that is never synced
	CreateTestUser(ctx context.Context) (*TestUser, error)
}

// LoginResult is the outcome of a successful login
type LoginResult struct {
	Token string `json:"token"`
	// Fast is true when the token was already known and nothing was fetched
	Fast bool `json:"-"`
}

// Stats are the device details reported by the app
type Stats struct {
	Platform   string `json:"platform"`
	Device     string `json:"device"`
	Language   string `json:"language"`
	Resolution string `json:"resolution"`
}

// ClassSummary is a class without its subjects
type ClassSummary struct {
	ID              int     `json:"id"`
	Name            string  `json:"class"`
	Year            string  `json:"year,omitempty"`
	School          string  `json:"school,omitempty"`
	Full            bool    `json:"full"`
	CompleteAverage float64 `json:"complete_avg"`
}

// DeviceReport lists the tokens found by CheckInactiveDevices
type DeviceReport struct {
	Inactive []string `json:"inactive_tokens"`
	Deleted  []string `json:"deleted_tokens"`
}

// TestUser is a synthetic account created for app store reviews and testing
type TestUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

// Scheduler is the part of sync.Scheduler the service drives
type Scheduler interface {
	Start(token string) bool
	Purge(ctx context.Context, token string) error
	List() []sync.WorkerInfo
}

// Simulator applies snapshots without contacting the portal
type Simulator interface {
	Simulate(ctx context.Context, token string, snap *model.ProfileSnapshot) ([]model.ChangeEvent, error)
}

// Dependencies are the collaborators of the service
type Dependencies struct {
	Store       kv.Store
	Profiles    profile.Store
	Credentials credentials.Store
	Connector   connector.Connector
	Scheduler   Scheduler
	Simulator   Simulator
	Sink        notify.Sink
	Dispatcher  *notify.Dispatcher
}

type edapService struct {
	Dependencies

	alerts       alert.Notifier
	loginMetrics *telemetry.LoginMetrics
	fetchTimeout time.Duration
	now          func() time.Time

	logins singleflight.Group
}

// ServiceOption configures the service
type ServiceOption func(*edapService)

// WithAlerts forwards credential store and connector failures to the operator
func WithAlerts(n alert.Notifier) ServiceOption {
	return func(s *edapService) {
		s.alerts = n
	}
}

// WithLoginMetrics counts logins by path
func WithLoginMetrics(m *telemetry.LoginMetrics) ServiceOption {
	return func(s *edapService) {
		s.loginMetrics = m
	}
}

// WithFetchTimeout bounds the portal fetch of a first login
func WithFetchTimeout(d time.Duration) ServiceOption {
	return func(s *edapService) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) ServiceOption {
	return func(s *edapService) {
		s.now = now
	}
}

// New creates the service
func New(deps Dependencies, opts ...ServiceOption) (Service, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("service: key-value store is required")
	case deps.Profiles == nil:
		return nil, errors.New("service: profile store is required")
	case deps.Credentials == nil:
		return nil, errors.New("service: credentials store is required")
	case deps.Connector == nil:
		return nil, errors.New("service: connector is required")
	case deps.Scheduler == nil:
		return nil, errors.New("service: scheduler is required")
	case deps.Sink == nil || deps.Dispatcher == nil:
		return nil, errors.New("service: notification sink and dispatcher are required")
	}

	s := &edapService{
		Dependencies: deps,
		alerts:       alert.Noop{},
		fetchTimeout: sync.DefaultFetchTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CheckReadiness implements Service
func (s *edapService) CheckReadiness(ctx context.Context) error {
	return s.Store.Ping(ctx)
}

// Workers implements Service
func (s *edapService) Workers() []sync.WorkerInfo {
	return s.Scheduler.List()
}
