package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edap/edap-server/internal/credentials"
	"github.com/edap/edap-server/internal/model"
	"github.com/edap/edap-server/internal/notify"
	"github.com/edap/edap-server/internal/profile"
	"github.com/edap/edap-server/internal/token"
)

// TestUserMarker is stored in GeneratedWith of synthetic users.
const TestUserMarker = "testUser"

// Counters implements Service
func (s *edapService) Counters(ctx context.Context) (map[string]int64, error) {
	keys, err := s.Store.Keys(ctx, CounterPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list counters: %w", err)
	}
	out := make(map[string]int64, len(keys))
	for _, k := range keys {
		raw, err := s.Store.Get(ctx, k)
		if err != nil {
			continue
		}
		n, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			slog.Warn("Ignoring malformed counter", "key", k, "error", err)
			continue
		}
		out[strings.TrimPrefix(k, CounterPrefix)] = n
	}
	return out, nil
}

// SendNotification implements Service
func (s *edapService) SendNotification(ctx context.Context, tok, title, body string) error {
	if title == "" || body == "" {
		return fmt.Errorf("%w: title and body are required", ErrInvalidRequest)
	}
	p, err := s.load(ctx, tok)
	if err != nil {
		return err
	}
	err = s.Dispatcher.SendDirect(ctx, p, title, body)
	if errors.Is(err, notify.ErrNoDevice) {
		return fmt.Errorf("%w: no device registered", ErrInvalidRequest)
	}
	return err
}

// Simulate implements Service
func (s *edapService) Simulate(ctx context.Context, tok string, snap *model.ProfileSnapshot) ([]model.ChangeEvent, error) {
	if s.Simulator == nil {
		return nil, errors.New("simulation is not available")
	}
	if snap == nil || len(snap.Classes) == 0 {
		return nil, fmt.Errorf("%w: snapshot has no classes", ErrInvalidRequest)
	}
	events, err := s.Simulator.Simulate(ctx, tok, snap)
	if errors.Is(err, profile.ErrNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.ChangeEvent{}
	}
	return events, nil
}

// CheckInactiveDevices implements Service. A profile without a device token
// is reported as inactive but never deleted.
func (s *edapService) CheckInactiveDevices(ctx context.Context, autoDelete bool) (*DeviceReport, error) {
	tokens, err := s.Profiles.Tokens(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("Verifying device tokens", "count", len(tokens))

	report := &DeviceReport{Inactive: []string{}, Deleted: []string{}}
	for _, tok := range tokens {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		p, err := s.Profiles.Get(ctx, tok)
		if errors.Is(err, profile.ErrNotFound) {
			continue
		}
		if err != nil {
			return report, err
		}

		if p.DeviceToken == "" {
			slog.Debug("No device registered", "token", token.Short(tok))
			report.Inactive = append(report.Inactive, tok)
			continue
		}

		active, err := s.Sink.CheckLiveness(ctx, p.DeviceToken)
		if err != nil {
			slog.Warn("Device liveness check failed", "token", token.Short(tok), "error", err)
			continue
		}
		if active {
			continue
		}
		report.Inactive = append(report.Inactive, tok)
		if autoDelete {
			if err := s.Scheduler.Purge(ctx, tok); err != nil {
				slog.Error("Failed to purge inactive token", "token", token.Short(tok), "error", err)
				continue
			}
			report.Deleted = append(report.Deleted, tok)
		}
	}

	slog.Info("Device verification finished", "inactive", len(report.Inactive), "deleted", len(report.Deleted))
	return report, nil
}

// CreateTestUser implements Service
func (s *edapService) CreateTestUser(ctx context.Context) (*TestUser, error) {
	username := "test-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	password := uuid.NewString()
	tok := token.Derive(username, password)

	now := s.now().UTC()
	p := &model.UserProfile{
		Token:         tok,
		Data:          sampleSnapshot(now),
		New:           []model.ChangeEvent{},
		LastIP:        "0.0.0.0",
		SyncIgnored:   true,
		GeneratedWith: TestUserMarker,
		CreatedAt:     now,
	}
	if err := s.Profiles.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}
	cred := credentials.Credential{Token: tok, Username: username, Secret: password}
	if err := s.Credentials.Set(ctx, cred); err != nil {
		_ = s.Profiles.Delete(ctx, tok)
		return nil, fmt.Errorf("failed to store test user credentials: %w", err)
	}

	slog.Info("Created test user", "token", token.Short(tok))
	return &TestUser{Username: username, Password: password, Token: tok}, nil
}

// sampleSnapshot is the fixed record set shown to synthetic users. One test
// lies in the past and one three days ahead.
func sampleSnapshot(now time.Time) model.ProfileSnapshot {
	c := model.ClassRecord{
		ID:     0,
		Name:   "1.a",
		Year:   "2018./2019.",
		School: "Ime škole, Grad",
		Full:   true,
		Subjects: []model.SubjectRecord{
			{ID: 0, Name: "Hrvatski jezik", Professors: []string{"Netko Netkić", "Nitko Nitkić"},
				Grades: []model.GradeRecord{{Date: now.Add(-48 * time.Hour).Unix(), Note: "esej", Grade: 5}, {Date: now.Add(-24 * time.Hour).Unix(), Note: "usmeno", Grade: 4}}},
			{ID: 1, Name: "Engleski jezik", Professors: []string{"Netko Netkić"},
				Grades: []model.GradeRecord{{Date: now.Add(-72 * time.Hour).Unix(), Grade: 5}}},
			{ID: 2, Name: "Latinski jezik", Professors: []string{"Nitko Nitkić"},
				Grades: []model.GradeRecord{{Date: now.Add(-96 * time.Hour).Unix(), Grade: 4}}},
			{ID: 3, Name: "Fizika", Professors: []string{"Ivan Ivanović"},
				Grades: []model.GradeRecord{{Date: now.Add(-24 * time.Hour).Unix(), Grade: 5}}},
		},
		Tests: []model.TestRecord{
			{ID: 0, Subject: "Hrvatski", Test: "Prvi ispit znanja", Date: now.Add(-2 * time.Minute).Unix()},
			{ID: 1, Subject: "Hrvatski", Test: "Drugi ispit znanja", Date: now.Add(72*time.Hour + 2*time.Minute).Unix(), Current: true},
		},
		Absences: model.Absences{Overview: &model.AbsenceOverview{}, Full: []model.AbsenceDay{}},
		Info: map[string]string{
			"name":       "Netko Netkić",
			"address":    "Ulica, Mjesto",
			"birthdate":  "1. 1. 2000.",
			"birthplace": "Grad, Država",
			"program":    "Program",
		},
	}
	for i := range c.Subjects {
		if c.Subjects[i].Notes == nil {
			c.Subjects[i].Notes = []model.NoteRecord{}
		}
	}
	c.ComputeAverages()
	return model.ProfileSnapshot{Classes: []model.ClassRecord{c}}
}
