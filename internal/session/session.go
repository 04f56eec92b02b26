// Package session implements the on-disk scratchpad layout: one
// single-writer directory per scrape session holding the raw record
// accumulator, the three classification groups, run metadata, and a
// legacy flat affected-laws accumulator.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sertantai/lrt-engine/internal/models"
)

const (
	rawFile        = "raw.json"
	incWithSI      = "inc_w_si.json"
	incWithoutSI   = "inc_wo_si.json"
	excludedFile   = "exc.json"
	metadataFile   = "metadata.json"
	affectedLaws   = "affected_laws.json"

	// GroupIncludedWithSI, GroupIncludedWithoutSI, and GroupExcluded name
	// the three classification groups AppendGroup accepts.
	GroupIncludedWithSI    = "inc_w_si"
	GroupIncludedWithoutSI = "inc_wo_si"
	GroupExcluded          = "exc"
)

var groupFiles = map[string]string{
	GroupIncludedWithSI:    incWithSI,
	GroupIncludedWithoutSI: incWithoutSI,
	GroupExcluded:          excludedFile,
}

// Store manages the scratchpad directories under rootDir. Each session
// directory is single-writer; Store
// serializes concurrent writers to the same session with a per-session
// mutex rather than relying on the caller.
type Store struct {
	rootDir string
	mu      sync.Map // sessionID -> *sync.Mutex
}

// New creates a Store rooted at rootDir, creating it if necessary.
func New(rootDir string) (*Store, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("create sessions root %s: %w", rootDir, err)
	}
	return &Store{rootDir: rootDir}, nil
}

func (s *Store) lockFor(sessionID string) func() {
	val, _ := s.mu.LoadOrStore(sessionID, &sync.Mutex{})
	mutex := val.(*sync.Mutex)
	mutex.Lock()
	return mutex.Unlock
}

func (s *Store) sessionDir(sessionID string) string {
	return filepath.Join(s.rootDir, sessionID)
}

func (s *Store) ensureDir(sessionID string) error {
	return os.MkdirAll(s.sessionDir(sessionID), 0755)
}

// AppendRaw appends record to raw.json's [Record] array.
func (s *Store) AppendRaw(sessionID string, record models.ParsedLaw) error {
	return s.appendToArray(sessionID, rawFile, record)
}

// AppendGroup appends record to the named classification group's array.
// group must be one of GroupIncludedWithSI, GroupIncludedWithoutSI, or
// GroupExcluded.
func (s *Store) AppendGroup(sessionID, group string, record models.ParsedLaw) error {
	filename, ok := groupFiles[group]
	if !ok {
		return fmt.Errorf("unknown session group %q", group)
	}
	if group == GroupExcluded {
		return s.appendToIndexedMap(sessionID, filename, record)
	}
	return s.appendToArray(sessionID, filename, record)
}

// WriteMetadata overwrites metadata.json with the given map, stamping a
// timestamp.
func (s *Store) WriteMetadata(sessionID string, metadata map[string]interface{}) error {
	defer s.lockFor(sessionID)()
	if err := s.ensureDir(sessionID); err != nil {
		return err
	}

	stamped := map[string]interface{}{}
	for k, v := range metadata {
		stamped[k] = v
	}
	stamped["written_at"] = time.Now().UTC().Format(time.RFC3339)

	return writeJSONFile(filepath.Join(s.sessionDir(sessionID), metadataFile), stamped)
}

// AppendAffectedLaw appends lawName to the legacy flat affected_laws.json
// accumulator, deduplicating.
func (s *Store) AppendAffectedLaw(sessionID, lawName string) error {
	defer s.lockFor(sessionID)()
	if err := s.ensureDir(sessionID); err != nil {
		return err
	}

	path := filepath.Join(s.sessionDir(sessionID), affectedLaws)
	var laws []string
	_ = readJSONFile(path, &laws)

	for _, existing := range laws {
		if existing == lawName {
			return nil
		}
	}
	laws = append(laws, lawName)
	return writeJSONFile(path, laws)
}

func (s *Store) appendToArray(sessionID, filename string, record models.ParsedLaw) error {
	defer s.lockFor(sessionID)()
	if err := s.ensureDir(sessionID); err != nil {
		return err
	}

	path := filepath.Join(s.sessionDir(sessionID), filename)
	var records []models.ParsedLaw
	_ = readJSONFile(path, &records)

	records = append(records, record)
	return writeJSONFile(path, records)
}

// appendToIndexedMap appends record to exc.json, indexed by its
// 1-based string position ({"1": ..., "2": ...}).
func (s *Store) appendToIndexedMap(sessionID, filename string, record models.ParsedLaw) error {
	defer s.lockFor(sessionID)()
	if err := s.ensureDir(sessionID); err != nil {
		return err
	}

	path := filepath.Join(s.sessionDir(sessionID), filename)
	indexed := map[string]models.ParsedLaw{}
	_ = readJSONFile(path, &indexed)

	indexed[fmt.Sprintf("%d", len(indexed)+1)] = record
	return writeJSONFile(path, indexed)
}

func readJSONFile(path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func writeJSONFile(path string, data interface{}) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return os.WriteFile(path, encoded, 0644)
}
