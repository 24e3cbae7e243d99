package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edap/edap-server/internal/model"
	"github.com/edap/edap-server/internal/profile"
	"github.com/edap/edap-server/internal/token"
)

func (s *edapService) load(ctx context.Context, tok string) (*model.UserProfile, error) {
	p, err := s.Profiles.Get(ctx, tok)
	if errors.Is(err, profile.ErrNotFound) {
		return nil, ErrTokenNotFound
	}
	return p, err
}

func (s *edapService) update(ctx context.Context, tok string, fn profile.MutateFunc) (*model.UserProfile, error) {
	p, err := s.Profiles.Update(ctx, tok, fn)
	if errors.Is(err, profile.ErrNotFound) {
		return nil, ErrTokenNotFound
	}
	return p, err
}

// class resolves classID against the profile. Unknown classes are reported
// like unknown tokens.
func class(p *model.UserProfile, classID int) (*model.ClassRecord, error) {
	if classID < 0 || classID >= len(p.Data.Classes) {
		return nil, fmt.Errorf("%w: class %d", ErrTokenNotFound, classID)
	}
	return &p.Data.Classes[classID], nil
}

// NewEvents implements Service
func (s *edapService) NewEvents(ctx context.Context, tok string) ([]model.ChangeEvent, error) {
	var pending []model.ChangeEvent
	_, err := s.update(ctx, tok, func(p *model.UserProfile) error {
		pending = p.New
		if len(p.New) == 0 {
			return profile.ErrNoChange
		}
		p.New = []model.ChangeEvent{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if pending == nil {
		pending = []model.ChangeEvent{}
	}
	return pending, nil
}

// GetSetting implements Service
func (s *edapService) GetSetting(ctx context.Context, tok, action string) (any, error) {
	p, err := s.load(ctx, tok)
	if err != nil {
		return nil, err
	}
	return model.ReadSetting(p.Settings, action)
}

// ApplySetting implements Service
func (s *edapService) ApplySetting(
	ctx context.Context, tok, action string, value json.RawMessage,
) (*model.NotificationSettings, error) {
	op, err := model.ParseSettingOp(action, value)
	if err != nil {
		if errors.Is(err, model.ErrInvalidSettingValue) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return nil, err
	}

	p, err := s.update(ctx, tok, func(p *model.UserProfile) error {
		return op.Apply(&p.Settings)
	})
	if err != nil {
		return nil, err
	}
	return &p.Settings, nil
}

// Logout implements Service
func (s *edapService) Logout(ctx context.Context, tok string) error {
	ok, err := s.Profiles.Exists(ctx, tok)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTokenNotFound
	}
	if err := s.Scheduler.Purge(ctx, tok); err != nil {
		return fmt.Errorf("failed to purge token: %w", err)
	}
	slog.Info("User logged out", "token", token.Short(tok))
	return nil
}

// RecordStats implements Service
func (s *edapService) RecordStats(ctx context.Context, tok string, stats Stats) error {
	_, err := s.update(ctx, tok, func(p *model.UserProfile) error {
		p.Device = model.DeviceInfo{
			Platform:   stats.Platform,
			Model:      stats.Device,
			Resolution: stats.Resolution,
		}
		if stats.Language != "" {
			p.Lang = stats.Language
		}
		return nil
	})
	return err
}

// RegisterDevice implements Service
func (s *edapService) RegisterDevice(ctx context.Context, tok, deviceToken string) error {
	if deviceToken == "" {
		return fmt.Errorf("%w: device token is empty", ErrInvalidRequest)
	}
	_, err := s.update(ctx, tok, func(p *model.UserProfile) error {
		if p.DeviceToken == deviceToken {
			return profile.ErrNoChange
		}
		p.DeviceToken = deviceToken
		return nil
	})
	return err
}

// Info implements Service
func (s *edapService) Info(ctx context.Context, tok string) (map[string]string, error) {
	p, err := s.load(ctx, tok)
	if err != nil {
		return nil, err
	}
	current := p.Data.Current()
	if current == nil || current.Info == nil {
		return map[string]string{}, nil
	}
	return current.Info, nil
}

// Classes implements Service
func (s *edapService) Classes(ctx context.Context, tok string) ([]ClassSummary, error) {
	p, err := s.load(ctx, tok)
	if err != nil {
		return nil, err
	}
	out := make([]ClassSummary, 0, len(p.Data.Classes))
	for _, c := range p.Data.Classes {
		out = append(out, ClassSummary{
			ID:              c.ID,
			Name:            c.Name,
			Year:            c.Year,
			School:          c.School,
			Full:            c.Full,
			CompleteAverage: c.CompleteAverage,
		})
	}
	return out, nil
}

// Subjects implements Service
func (s *edapService) Subjects(ctx context.Context, tok string, classID int) ([]model.SubjectRecord, error) {
	p, err := s.load(ctx, tok)
	if err != nil {
		return nil, err
	}
	c, err := class(p, classID)
	if err != nil {
		return nil, err
	}
	if c.Subjects == nil {
		return []model.SubjectRecord{}, nil
	}
	return c.Subjects, nil
}

// Subject implements Service
func (s *edapService) Subject(ctx context.Context, tok string, classID, subjectID int) (*model.SubjectRecord, error) {
	p, err := s.load(ctx, tok)
	if err != nil {
		return nil, err
	}
	c, err := class(p, classID)
	if err != nil {
		return nil, err
	}
	if subjectID < 0 || subjectID >= len(c.Subjects) {
		return nil, fmt.Errorf("%w: subject %d", ErrTokenNotFound, subjectID)
	}
	return &c.Subjects[subjectID], nil
}

// Tests implements Service
func (s *edapService) Tests(ctx context.Context, tok string, classID int) ([]model.TestRecord, error) {
	p, err := s.load(ctx, tok)
	if err != nil {
		return nil, err
	}
	c, err := class(p, classID)
	if err != nil {
		return nil, err
	}
	if c.Tests == nil {
		return []model.TestRecord{}, nil
	}
	return c.Tests, nil
}

// Absences implements Service
func (s *edapService) Absences(ctx context.Context, tok string, classID int) (*model.Absences, error) {
	p, err := s.load(ctx, tok)
	if err != nil {
		return nil, err
	}
	c, err := class(p, classID)
	if err != nil {
		return nil, err
	}
	return &c.Absences, nil
}
