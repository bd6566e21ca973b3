package notes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/smartpath-ai-go/internal/models"
	"github.com/smartpath-ai-go/internal/services/ai"
	"github.com/smartpath-ai-go/internal/services/storage"
	"github.com/smartpath-ai-go/pkg/markdown"
)

var ErrNoteNotFound = errors.New("note not found")

// GeneratedNotes bundles a stored notes document with its mind map
type GeneratedNotes struct {
	Notes   models.NotesDocument `json:"notes"`
	MindMap models.MindMap       `json:"mind_map"`
}

// Service generates study notes via the AI pipeline, renders them to
// HTML, and persists them per user.
type Service struct {
	orchestrator *ai.Orchestrator
	storage      storage.Storage
	logger       *logrus.Logger

	now func() time.Time
}

func NewService(orchestrator *ai.Orchestrator, store storage.Storage, logger *logrus.Logger) *Service {
	return &Service{
		orchestrator: orchestrator,
		storage:      store,
		logger:       logger,
		now:          time.Now,
	}
}

// Generate creates study notes plus a mind map for a topic and saves
// the document to the user's notes list.
func (s *Service) Generate(ctx context.Context, userKey, subject, topic string, opts models.GenerationOptions) (*GeneratedNotes, error) {
	opts.Subject = subject

	result, err := s.orchestrator.CreateNotes(ctx, userKey, topic, opts)
	if err != nil {
		return nil, err
	}

	doc := result.Notes
	doc.ID = uuid.NewString()
	doc.Subject = subject
	doc.Topic = topic
	doc.HTML = markdown.ToNotesHTML(result.Raw)
	doc.CreatedAt = s.now()

	list, err := s.List(ctx, userKey)
	if err != nil {
		return nil, err
	}
	list = append([]models.NotesDocument{doc}, list...)

	if err := s.storage.SaveNotes(ctx, userKey, list); err != nil {
		return nil, fmt.Errorf("save notes: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"note_id":  doc.ID,
		"subject":  subject,
		"topic":    topic,
		"sections": len(doc.Sections),
	}).Info("Notes generated")

	return &GeneratedNotes{Notes: doc, MindMap: result.MindMap}, nil
}

// List returns the user's saved notes, most recent first
func (s *Service) List(ctx context.Context, userKey string) ([]models.NotesDocument, error) {
	list, err := s.storage.ListNotes(ctx, userKey)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	if list == nil {
		list = []models.NotesDocument{}
	}
	return list, nil
}

// Get returns one saved notes document by ID
func (s *Service) Get(ctx context.Context, userKey, noteID string) (*models.NotesDocument, error) {
	list, err := s.List(ctx, userKey)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == noteID {
			return &list[i], nil
		}
	}
	return nil, ErrNoteNotFound
}

// Delete removes a saved notes document
func (s *Service) Delete(ctx context.Context, userKey, noteID string) error {
	list, err := s.List(ctx, userKey)
	if err != nil {
		return err
	}

	kept := list[:0]
	removed := false
	for _, doc := range list {
		if doc.ID == noteID {
			removed = true
			continue
		}
		kept = append(kept, doc)
	}
	if !removed {
		return ErrNoteNotFound
	}

	return s.storage.SaveNotes(ctx, userKey, kept)
}
