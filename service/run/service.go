// Package run keeps records of completed and failed workflow runs so callers
// can list past sessions after the client process has moved on.
package run

import (
	"context"
	"time"

	"github.com/nyayaflow/lexflow/internal/clock"
	"github.com/nyayaflow/lexflow/service/dao"
	"github.com/nyayaflow/lexflow/service/dao/store"
)

// Run statuses.  Abandoned marks runs whose context was cancelled while a
// review was still pending.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

// Record summarises a finished workflow run.
type Record struct {
	SessionID     string    `json:"sessionID"`
	Domain        string    `json:"domain"`
	Grievance     string    `json:"grievance"`
	FinalDocument string    `json:"finalDocument,omitempty"`
	Iterations    int       `json:"iterations"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
}

// Service persists run records.
type Service struct {
	store dao.Service[string, Record]
}

// New creates a run record service backed by an in-memory store.
func New() *Service {
	return &Service{
		store: store.NewMemoryStore[string, Record](func(r *Record) string { return r.SessionID }),
	}
}

// Save stamps the record's finish time and persists it.
func (s *Service) Save(ctx context.Context, record *Record) error {
	if record == nil {
		return dao.ErrNilEntity
	}
	if record.SessionID == "" {
		return dao.ErrInvalidID
	}
	if record.FinishedAt.IsZero() {
		record.FinishedAt = clock.Now()
	}
	return s.store.Save(ctx, record)
}

// Lookup returns the record for the given session.
func (s *Service) Lookup(ctx context.Context, sessionID string) (*Record, error) {
	if sessionID == "" {
		return nil, dao.ErrInvalidID
	}
	record, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, dao.ErrNotFound
	}
	return record, nil
}

// List returns stored run records, filtered by the supplied parameters.
// Recognised parameter names are "domain" and "status"; multi-valued
// parameters match any of their values.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*Record, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(parameters) == 0 {
		return records, nil
	}
	filtered := make([]*Record, 0, len(records))
	for _, record := range records {
		if matches(record, parameters) {
			filtered = append(filtered, record)
		}
	}
	return filtered, nil
}

// ByDomain builds a List parameter matching the record domain.
func ByDomain(domain string) *dao.Parameter { return dao.NewParameter("domain", domain) }

// ByStatus builds a List parameter matching any of the supplied statuses.
func ByStatus(statuses ...string) *dao.Parameter { return dao.NewParameter("status", statuses...) }

func matches(record *Record, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		var actual string
		switch parameter.Name {
		case "domain":
			actual = record.Domain
		case "status":
			actual = record.Status
		default:
			continue
		}
		switch expect := parameter.Value.(type) {
		case string:
			if actual != expect {
				return false
			}
		case []string:
			var found bool
			for _, candidate := range expect {
				if actual == candidate {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}
