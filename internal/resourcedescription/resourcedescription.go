// Package resourcedescription implements the domain's published capability
// document: which controller application implements each requested VNF
// functional capability.
package resourcedescription

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"domain-orchestrator/internal/apperrors"
)

// Capability is one entry of the published document: a functional capability
// name mapped to the controller application that implements it.
type Capability struct {
	Name            string `json:"name"`
	ApplicationName string `json:"application_name"`
}

// Document is the full capability document persisted to disk.
type Document struct {
	Capabilities []Capability `json:"capabilities"`
}

// ResourceDescription guards the capability document with a single-writer
// lock and publishes it with atomic write-temp-then-rename, per the shared
// JSON-file discipline every domain component observes.
type ResourceDescription struct {
	mu   sync.RWMutex
	path string
	doc  Document
	byCapability map[string]string
}

// New loads path if it exists, or starts from an empty document.
func New(path string) (*ResourceDescription, error) {
	rd := &ResourceDescription{path: path, byCapability: make(map[string]string)}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return rd, nil
	}
	if err != nil {
		return nil, apperrors.StorageError("read domain description", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.StorageError("parse domain description", err)
	}
	rd.doc = doc
	rd.reindex()
	return rd, nil
}

func (rd *ResourceDescription) reindex() {
	rd.byCapability = make(map[string]string, len(rd.doc.Capabilities))
	for _, c := range rd.doc.Capabilities {
		rd.byCapability[strings.ToLower(c.Name)] = c.ApplicationName
	}
}

// ApplicationFor returns the controller application implementing capability
// (case-insensitive), and whether one was found.
func (rd *ResourceDescription) ApplicationFor(capability string) (string, bool) {
	rd.mu.RLock()
	defer rd.mu.RUnlock()
	app, ok := rd.byCapability[strings.ToLower(capability)]
	return app, ok
}

// HasCapability reports whether capability is currently offered by the
// domain, the check the validation pipeline's CapabilityStage performs.
func (rd *ResourceDescription) HasCapability(capability string) bool {
	_, ok := rd.ApplicationFor(capability)
	return ok
}

// Capabilities returns a snapshot suitable for seeding a validation
// pipeline's available-capability set.
func (rd *ResourceDescription) Capabilities() map[string]bool {
	rd.mu.RLock()
	defer rd.mu.RUnlock()
	out := make(map[string]bool, len(rd.byCapability))
	for name := range rd.byCapability {
		out[name] = true
	}
	return out
}

// Set replaces the document's capability list and publishes it to disk.
func (rd *ResourceDescription) Set(capabilities []Capability) error {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	rd.doc = Document{Capabilities: capabilities}
	rd.reindex()
	return rd.writeLocked()
}

func (rd *ResourceDescription) writeLocked() error {
	data, err := json.MarshalIndent(rd.doc, "", "  ")
	if err != nil {
		return apperrors.StorageError("marshal domain description", err)
	}
	dir := filepath.Dir(rd.path)
	tmp, err := os.CreateTemp(dir, ".domain-description-*.tmp")
	if err != nil {
		return apperrors.StorageError("create domain description temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return apperrors.StorageError("write domain description temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return apperrors.StorageError("close domain description temp file", err)
	}
	if err := os.Rename(tmpPath, rd.path); err != nil {
		os.Remove(tmpPath)
		return apperrors.StorageError("publish domain description", err)
	}
	return nil
}

// Count returns the number of published capabilities, used in the
// DomainDescriptionPublishedEvent.
func (rd *ResourceDescription) Count() int {
	rd.mu.RLock()
	defer rd.mu.RUnlock()
	return len(rd.doc.Capabilities)
}
