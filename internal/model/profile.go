package model

import (
	"slices"
	"time"
)

// UserProfile is everything the server keeps about one token besides its
// credentials.
type UserProfile struct {
	Token    string               `json:"token"`
	Data     ProfileSnapshot      `json:"data"`
	New      []ChangeEvent        `json:"new"`
	Settings NotificationSettings `json:"settings"`

	DeviceToken string     `json:"firebase_device_token,omitempty"`
	LastIP      string     `json:"last_ip,omitempty"`
	Device      DeviceInfo `json:"device"`
	Lang        string     `json:"lang,omitempty"`

	// SyncIgnored marks profiles no worker should be started for, such as
	// synthetic test users.
	SyncIgnored   bool   `json:"ignore_updating,omitempty"`
	GeneratedWith string `json:"generated_with,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	LastSync  time.Time `json:"last_sync,omitzero"`

	// Version increases on every successful write and backs optimistic updates.
	Version int64 `json:"version"`
}

// DeviceInfo is reported by the client app.
type DeviceInfo struct {
	Platform   string `json:"platform,omitempty"`
	Model      string `json:"model,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

// SubjectName resolves the name of a subject by class and subject position.
func (p *UserProfile) SubjectName(classID, subjectID int) (string, bool) {
	if classID < 0 || classID >= len(p.Data.Classes) {
		return "", false
	}
	subjects := p.Data.Classes[classID].Subjects
	if subjectID < 0 || subjectID >= len(subjects) {
		return "", false
	}
	return subjects[subjectID].Name, true
}

// NotificationSettings are the per-user mute rules.
type NotificationSettings struct {
	DisableAll bool        `json:"disableAll"`
	Ignore     []EventKind `json:"ignore"`
}

// Ignores reports whether notifications of kind k are muted.
func (s NotificationSettings) Ignores(k EventKind) bool {
	return slices.Contains(s.Ignore, k)
}
