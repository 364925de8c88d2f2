// Package file provides file-based persistence implementation for workflows, executions and tickets.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/careflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
// Every record is a JSON document under <root>/<collection>/<id>.json.
type Persistence struct {
	root  string
	store *store

	workflowRepo     *WorkflowRepository
	stepRepo         *StepRepository
	executionRepo    *ExecutionRepository
	ticketRepo       *TicketRepository
	notificationRepo *NotificationRepository
	technicianRepo   *TechnicianRepository
	templateRepo     *TemplateRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	s := &store{root: cleanRoot}
	steps := &StepRepository{store: s}

	return &Persistence{
		root:             cleanRoot,
		store:            s,
		workflowRepo:     &WorkflowRepository{store: s, steps: steps},
		stepRepo:         steps,
		executionRepo:    &ExecutionRepository{store: s},
		ticketRepo:       &TicketRepository{store: s},
		notificationRepo: &NotificationRepository{store: s},
		technicianRepo:   &TechnicianRepository{store: s},
		templateRepo:     &TemplateRepository{store: s},
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository { return fp.workflowRepo }

func (fp *Persistence) StepRepository() persistence.StepRepository { return fp.stepRepo }

func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository { return fp.executionRepo }

func (fp *Persistence) TicketRepository() persistence.TicketRepository { return fp.ticketRepo }

func (fp *Persistence) NotificationRepository() persistence.NotificationRepository {
	return fp.notificationRepo
}

func (fp *Persistence) TechnicianRepository() persistence.TechnicianRepository {
	return fp.technicianRepo
}

func (fp *Persistence) TemplateRepository() persistence.TemplateRepository { return fp.templateRepo }

// store reads and writes JSON documents. A single lock serializes writers so
// concurrent saves of the same record never interleave partial files.
type store struct {
	root string
	mu   sync.RWMutex
}

// validateID validates that the ID is safe for file operations.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", persistence.ErrInvalidID)
	}

	// Check for path traversal attempts
	if strings.Contains(id, "..") || strings.Contains(id, "/") || strings.Contains(id, "\\") {
		return fmt.Errorf("%w: %q contains invalid characters", persistence.ErrInvalidID, id)
	}

	return nil
}

func (s *store) write(collection, id string, value any) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.root, collection)

	err := os.MkdirAll(dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", collection, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", collection, id, err)
	}

	tmp := filepath.Join(dir, "."+id+".tmp")

	err = os.WriteFile(tmp, data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write %s %s: %w", collection, id, err)
	}

	return os.Rename(tmp, filepath.Join(dir, id+".json"))
}

// read loads the document into value. It returns notFound when the file does not exist.
func (s *store) read(collection, id string, value any, notFound error) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	filePath := filepath.Join(s.root, collection, id+".json")

	data, err := os.ReadFile(filePath) // #nosec G304 -- id is validated and the path is constructed safely
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound
		}

		return fmt.Errorf("failed to read %s %s: %w", collection, id, err)
	}

	err = json.Unmarshal(data, value)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s %s: %w", collection, id, err)
	}

	return nil
}

// each decodes every document of the collection and calls fn on it.
func each[T any](s *store, collection string, fn func(*T) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	root := os.DirFS(filepath.Join(s.root, collection))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return fmt.Errorf("failed to list %s files: %w", collection, err)
	}

	for _, name := range jsonFiles {
		data, err := fs.ReadFile(root, name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return fmt.Errorf("failed to read %s/%s: %w", collection, name, err)
		}

		var value T

		err = json.Unmarshal(data, &value)
		if err != nil {
			return fmt.Errorf("failed to unmarshal %s/%s: %w", collection, name, err)
		}

		err = fn(&value)
		if err != nil {
			return err
		}
	}

	return nil
}
