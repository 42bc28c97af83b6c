package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/cloo-solutions/kbman/internal/pagination"
	"github.com/cloo-solutions/kbman/internal/telemetry"
)

// DocumentObjectStore persists raw uploads.
type DocumentObjectStore interface {
	PutBytes(ctx context.Context, key string, data []byte, contentType string) (string, error)
	GetBytes(ctx context.Context, key string) ([]byte, error)
}

// DocumentService manages uploaded documents and their parsed versions.
type DocumentService struct {
	repo        DocumentRepositoryInterface
	projectRepo ProjectRepositoryInterface
	objectStore DocumentObjectStore
	txRunner    TxRunner
	uuidGen     UUIDGenerator

	pageDefault int
	pageMax     int
}

func NewDocumentService(repo DocumentRepositoryInterface, projectRepo ProjectRepositoryInterface, objectStore DocumentObjectStore) *DocumentService {
	return &DocumentService{
		repo:        repo,
		projectRepo: projectRepo,
		objectStore: objectStore,
		uuidGen:     &DefaultUUIDGenerator{},
		pageDefault: pagination.DefaultPageSize,
		pageMax:     pagination.MaxPageSize,
	}
}

// NewDocumentServiceWithUUIDGen creates the service with a custom UUID
// generator (for testing)
func NewDocumentServiceWithUUIDGen(repo DocumentRepositoryInterface, projectRepo ProjectRepositoryInterface, objectStore DocumentObjectStore, uuidGen UUIDGenerator) *DocumentService {
	s := NewDocumentService(repo, projectRepo, objectStore)
	s.uuidGen = uuidGen
	return s
}

// NewDocumentServiceWithTx creates the service with a transaction runner,
// making Upload write the document and its first version atomically.
func NewDocumentServiceWithTx(repo DocumentRepositoryInterface, projectRepo ProjectRepositoryInterface, objectStore DocumentObjectStore, txRunner TxRunner) *DocumentService {
	s := NewDocumentService(repo, projectRepo, objectStore)
	s.txRunner = txRunner
	return s
}

type UploadDocumentInput struct {
	ProjectID string
	Filename  string
	Mime      string
	Content   []byte
	Metadata  map[string]any
}

// Upload stores the payload, records the document, and cuts its first
// version. The version becomes active immediately.
func (s *DocumentService) Upload(ctx context.Context, input UploadDocumentInput) (*domain.Document, *domain.DocumentVersion, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Upload", telemetry.SpanAttributes{
		ProjectID: input.ProjectID,
		Operation: "upload",
	})
	defer span.End()

	if strings.TrimSpace(input.Filename) == "" {
		return nil, nil, domain.NewDomainError(domain.ErrCodeValidation, "filename is required")
	}
	if len(input.Content) == 0 {
		return nil, nil, domain.NewDomainError(domain.ErrCodeValidation, "document content is empty")
	}
	if _, err := s.projectRepo.GetByID(ctx, input.ProjectID); err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:        s.uuidGen.NewString(),
		ProjectID: input.ProjectID,
		Filename:  input.Filename,
		Mime:      input.Mime,
		Metadata:  input.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if s.objectStore != nil {
		key := fmt.Sprintf("projects/%s/documents/%s/%s", input.ProjectID, doc.ID, input.Filename)
		uri, err := s.objectStore.PutBytes(ctx, key, input.Content, input.Mime)
		if err != nil {
			span.SetError(err)
			return nil, nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to store document payload", err)
		}
		doc.StorageURI = uri
	} else {
		log.Printf("document upload: no object store configured, %s kept unstored", doc.ID)
	}

	version := s.newVersion(doc, input.Content, nil)

	if s.txRunner != nil {
		err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			docs := repos.Documents()
			if err := docs.Create(ctx, doc); err != nil {
				return err
			}
			return docs.CreateVersion(ctx, version)
		})
		if err != nil {
			span.SetError(err)
			return nil, nil, err
		}
		return doc, version, nil
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		span.SetError(err)
		return nil, nil, err
	}
	if err := s.repo.CreateVersion(ctx, version); err != nil {
		span.SetError(err)
		return nil, nil, err
	}
	return doc, version, nil
}

// CreateVersion cuts a new parsed version for an existing document. The
// repository deactivates the previous active version in the same
// transaction.
func (s *DocumentService) CreateVersion(ctx context.Context, projectID, documentID string, content []byte, params map[string]any) (*domain.DocumentVersion, error) {
	doc, err := s.getVisibleDocument(ctx, projectID, documentID)
	if err != nil {
		return nil, err
	}
	return s.createVersion(ctx, doc, content, params)
}

func (s *DocumentService) createVersion(ctx context.Context, doc *domain.Document, content []byte, params map[string]any) (*domain.DocumentVersion, error) {
	version := s.newVersion(doc, content, params)
	if err := s.repo.CreateVersion(ctx, version); err != nil {
		return nil, err
	}
	return version, nil
}

func (s *DocumentService) newVersion(doc *domain.Document, content []byte, params map[string]any) *domain.DocumentVersion {
	sum := sha256.Sum256(content)
	return &domain.DocumentVersion{
		ID:          s.uuidGen.NewString(),
		DocumentID:  doc.ID,
		ContentHash: hex.EncodeToString(sum[:]),
		Params:      params,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
}

func (s *DocumentService) Get(ctx context.Context, projectID, documentID string) (*domain.Document, error) {
	return s.getVisibleDocument(ctx, projectID, documentID)
}

func (s *DocumentService) List(ctx context.Context, projectID string, limit int, cursor string) ([]*domain.Document, string, bool, int, error) {
	page := pagination.Paginate(limit, cursor, s.pageDefault, s.pageMax)

	total, err := s.repo.CountByProject(ctx, projectID)
	if err != nil {
		return nil, "", false, 0, err
	}
	docs, err := s.repo.ListByProject(ctx, projectID, page.Limit, page.Offset)
	if err != nil {
		return nil, "", false, 0, err
	}

	next := ""
	hasMore := page.Offset+len(docs) < total
	if hasMore {
		next = pagination.EncodeCursor(page.Offset + len(docs))
	}
	return docs, next, hasMore, total, nil
}

func (s *DocumentService) ListVersions(ctx context.Context, projectID, documentID string) ([]*domain.DocumentVersion, error) {
	if _, err := s.getVisibleDocument(ctx, projectID, documentID); err != nil {
		return nil, err
	}
	return s.repo.ListVersions(ctx, documentID)
}

func (s *DocumentService) GetActiveVersion(ctx context.Context, projectID, documentID string) (*domain.DocumentVersion, error) {
	if _, err := s.getVisibleDocument(ctx, projectID, documentID); err != nil {
		return nil, err
	}
	return s.repo.GetActiveVersion(ctx, documentID)
}

// Delete soft-deletes a document. Versions and derived sets keep their
// rows; the active segment set of each version stays resolvable until the
// caller deletes it too.
func (s *DocumentService) Delete(ctx context.Context, projectID, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Delete", telemetry.SpanAttributes{
		ProjectID: projectID,
		Operation: "delete",
	})
	defer span.End()

	if _, err := s.getVisibleDocument(ctx, projectID, documentID); err != nil {
		return err
	}
	return s.repo.SetDeleted(ctx, documentID, true)
}

func (s *DocumentService) getVisibleDocument(ctx context.Context, projectID, documentID string) (*domain.Document, error) {
	doc, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.ProjectID != projectID || doc.IsDeleted {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}
