// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package models

import (
	"github.com/google/uuid"
)

// SyncSource identifies which side last wrote a document.
type SyncSource string

const (
	// SyncSourceLocal marks documents written by this client.
	SyncSourceLocal SyncSource = "local"

	// SyncSourceRemote marks documents written by another client or by a
	// server-side migration.
	SyncSourceRemote SyncSource = "remote"
)

// SyncMeta is appended to every record written to the remote store.
type SyncMeta struct {
	Source    SyncSource `json:"source" validate:"omitempty,oneof=local remote"`
	UpdatedBy string     `json:"updatedBy"`
	UpdatedAt Millis     `json:"updatedAt"`
}

// SubTask is a checklist item attached to a single record.
type SubTask struct {
	ID        string `json:"id" validate:"required"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Attachment describes a file uploaded for a record. The bytes live behind URL.
type Attachment struct {
	ID         string `json:"id" validate:"required"`
	Name       string `json:"name"`
	URL        string `json:"url" validate:"omitempty,url"`
	MimeType   string `json:"mimeType"`
	Size       int64  `json:"size" validate:"gte=0"`
	UploadedAt Millis `json:"uploadedAt"`
}

// Record is one patient encounter, the synchronized entity.
//
// UpdatedAt is the only input to conflict resolution. A record without it
// compares as timestamp zero and loses to any dated copy of the same id.
//
// Optional fields are pointers without omitempty so that a serialized record
// always carries every key, with null standing in for "not set".
type Record struct {
	ID          string       `json:"id" validate:"required,max=128"`
	Name        string       `json:"name" validate:"max=512"`
	Bed         *string      `json:"bed"`
	PatientType *string      `json:"patientType"`
	Diagnosis   *string      `json:"diagnosis"`
	Notes       string       `json:"notes"`
	Date        *string      `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Tasks       []SubTask    `json:"tasks" validate:"dive"`
	Attachments []Attachment `json:"attachments" validate:"dive"`
	CreatedAt   Millis       `json:"createdAt"`
	UpdatedAt   Millis       `json:"updatedAt"`
	SyncMeta    *SyncMeta    `json:"syncMeta"`
}

// NewID returns a fresh client-side identifier.
func NewID() string {
	return uuid.New().String()
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	out.Bed = cloneString(r.Bed)
	out.PatientType = cloneString(r.PatientType)
	out.Diagnosis = cloneString(r.Diagnosis)
	out.Date = cloneString(r.Date)
	if r.Tasks != nil {
		out.Tasks = append([]SubTask(nil), r.Tasks...)
	}
	if r.Attachments != nil {
		out.Attachments = append([]Attachment(nil), r.Attachments...)
	}
	if r.SyncMeta != nil {
		meta := *r.SyncMeta
		out.SyncMeta = &meta
	}
	return out
}

// StringPtr returns a pointer to s. Handy for optional record fields.
func StringPtr(s string) *string {
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
