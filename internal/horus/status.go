package horus

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Status is the review state of one version of a department's work.
type Status string

const (
	StatusWIP      Status = "wip"
	StatusSubmit   Status = "submit"
	StatusApproved Status = "approved"
	StatusNeedFix  Status = "need_fix"
	StatusOnHold   Status = "on_hold"
)

// DefaultStatus is reported for keys that were never written.
const DefaultStatus = StatusWIP

// Statuses lists every valid status in workflow order.
var Statuses = []Status{StatusWIP, StatusSubmit, StatusApproved, StatusNeedFix, StatusOnHold}

func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, s)
}

// StatusKey identifies one version of a department's work on a shot.
type StatusKey struct {
	Episode    string
	Sequence   string
	Shot       string
	Department string
	Version    string
}

func (k StatusKey) validate() error {
	if k.Episode == "" || k.Sequence == "" || k.Shot == "" || k.Department == "" || k.Version == "" {
		return fmt.Errorf("%w: incomplete status key %+v", ErrInvalidArgument, k)
	}
	return nil
}

// documentKey is the form used inside a status document: shot_dept_version.
func (k StatusKey) documentKey() string {
	return k.Shot + "_" + k.Department + "_" + k.Version
}

func (k StatusKey) String() string {
	return strings.Join([]string{k.Episode, k.Sequence, k.Shot, k.Department, k.Version}, "/")
}

// parseDocumentKey splits shot_dept_version from the right, so shot names may
// themselves contain underscores.
func parseDocumentKey(episode, sequence, s string) (StatusKey, bool) {
	parts := strings.Split(s, "_")
	if len(parts) < 3 {
		return StatusKey{}, false
	}
	n := len(parts)
	return StatusKey{
		Episode:    episode,
		Sequence:   sequence,
		Shot:       strings.Join(parts[:n-2], "_"),
		Department: parts[n-2],
		Version:    parts[n-1],
	}, true
}

// StatusChange is one entry of a record's audit history.
type StatusChange struct {
	Status    Status    `json:"status"`
	ChangedAt Timestamp `json:"changed_at"`
	ChangedBy string    `json:"changed_by"`
}

// StatusRecord holds the current status of a key and every change that led
// to it. History is only ever appended to.
type StatusRecord struct {
	CurrentStatus Status         `json:"current_status"`
	LastChanged   Timestamp      `json:"last_changed"`
	LastChangedBy string         `json:"last_changed_by"`
	History       []StatusChange `json:"history"`
}

// StatusDocumentVersion is written into every status document.
const StatusDocumentVersion = "1.0"

// StatusDocument is the per-sequence status file.
type StatusDocument struct {
	Version     string                   `json:"version"`
	Episode     string                   `json:"episode"`
	Sequence    string                   `json:"sequence"`
	LastUpdated Timestamp                `json:"last_updated"`
	Statuses    map[string]*StatusRecord `json:"statuses"`
}

func newStatusDocument(episode, sequence string) *StatusDocument {
	return &StatusDocument{
		Version:  StatusDocumentVersion,
		Episode:  episode,
		Sequence: sequence,
		Statuses: map[string]*StatusRecord{},
	}
}

// Record looks up the record for key.
func (d *StatusDocument) Record(key StatusKey) (*StatusRecord, bool) {
	r, ok := d.Statuses[key.documentKey()]
	return r, ok && r != nil
}

func (d *StatusDocument) clone() *StatusDocument {
	out := *d
	out.Statuses = make(map[string]*StatusRecord, len(d.Statuses))
	for k, r := range d.Statuses {
		if r == nil {
			out.Statuses[k] = nil
			continue
		}
		rc := *r
		rc.History = append([]StatusChange(nil), r.History...)
		out.Statuses[k] = &rc
	}
	return &out
}

// StatusEntry pairs a decoded key with its record.
type StatusEntry struct {
	Key    StatusKey
	Record StatusRecord
}

// StatusStore reads and writes review statuses through a FileSystem.
type StatusStore struct {
	fs     *FileSystem
	clock  Clock
	logger Logger
}

func NewStatusStore(fs *FileSystem, clock Clock, logger Logger) *StatusStore {
	return &StatusStore{fs: fs, clock: clock, logger: logger}
}

// Get returns the current status for key, or DefaultStatus when the key has
// never been written.
func (s *StatusStore) Get(key StatusKey) (Status, error) {
	if err := key.validate(); err != nil {
		return "", err
	}
	doc, err := s.fs.LoadStatusDocument(key.Episode, key.Sequence)
	if err != nil {
		return "", fmt.Errorf("loading statuses for %s/%s: %w", key.Episode, key.Sequence, err)
	}
	r, ok := doc.Record(key)
	if !ok {
		return DefaultStatus, nil
	}
	return r.CurrentStatus, nil
}

// Set appends a history entry for key and makes status current. The whole
// sequence document is written back; a concurrent writer in another process
// is silently overwritten.
func (s *StatusStore) Set(key StatusKey, status Status, user string) (*StatusRecord, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}
	if user == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}

	doc, err := s.fs.LoadStatusDocument(key.Episode, key.Sequence)
	if err != nil {
		return nil, fmt.Errorf("loading statuses for %s/%s: %w", key.Episode, key.Sequence, err)
	}

	now := NewTimestamp(s.clock.Now())
	r, ok := doc.Record(key)
	if !ok {
		r = &StatusRecord{History: []StatusChange{}}
		doc.Statuses[key.documentKey()] = r
	}
	r.History = append(r.History, StatusChange{Status: status, ChangedAt: now, ChangedBy: user})
	r.CurrentStatus = status
	r.LastChanged = now
	r.LastChangedBy = user
	doc.LastUpdated = now

	if err := s.fs.SaveStatusDocument(doc); err != nil {
		return nil, fmt.Errorf("saving status for %s: %w", key, err)
	}

	s.logger.Info("status set", "key", key.String(), "status", string(status), "user", user)
	out := *r
	out.History = append([]StatusChange(nil), r.History...)
	return &out, nil
}

// Record returns the full record for key, or ErrNotFound.
func (s *StatusStore) Record(key StatusKey) (*StatusRecord, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}
	doc, err := s.fs.LoadStatusDocument(key.Episode, key.Sequence)
	if err != nil {
		return nil, fmt.Errorf("loading statuses for %s/%s: %w", key.Episode, key.Sequence, err)
	}
	r, ok := doc.Record(key)
	if !ok {
		return nil, fmt.Errorf("%w: no status recorded for %s", ErrNotFound, key)
	}
	return r, nil
}

// History returns the audit trail for key, oldest first. A key that was
// never written has an empty history.
func (s *StatusStore) History(key StatusKey) ([]StatusChange, error) {
	r, err := s.Record(key)
	if errors.Is(err, ErrNotFound) {
		return []StatusChange{}, nil
	}
	if err != nil {
		return nil, err
	}
	return r.History, nil
}

// Sequence returns every record of one sequence, ordered by key.
func (s *StatusStore) Sequence(episode, sequence string) ([]StatusEntry, error) {
	doc, err := s.fs.LoadStatusDocument(episode, sequence)
	if err != nil {
		return nil, fmt.Errorf("loading statuses for %s/%s: %w", episode, sequence, err)
	}

	names := make([]string, 0, len(doc.Statuses))
	for k, r := range doc.Statuses {
		if r != nil {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	entries := make([]StatusEntry, 0, len(names))
	for _, name := range names {
		key, ok := parseDocumentKey(episode, sequence, name)
		if !ok {
			s.logger.Warn("skipping unrecognized status key", "key", name, "sequence", sequence)
			continue
		}
		entries = append(entries, StatusEntry{Key: key, Record: *doc.Statuses[name]})
	}
	return entries, nil
}
