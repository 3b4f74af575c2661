package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/studyvault-server/internal/logger"
	"github.com/dtroode/studyvault-server/internal/model"
)

// Documents is the document registry. Any authenticated profile may upload;
// only administrators may delete. Listing has no role gate.
type Documents struct {
	tx     model.Transactor
	store  model.DocumentStore
	blobs  model.BlobStore
	ledger *Ledger
	logger *logger.Logger
	opts   Options
	now    func() time.Time
}

func NewDocuments(
	tx model.Transactor,
	store model.DocumentStore,
	blobs model.BlobStore,
	ledger *Ledger,
	logger *logger.Logger,
	opts Options,
) *Documents {
	return &Documents{
		tx:     tx,
		store:  store,
		blobs:  blobs,
		ledger: ledger,
		logger: logger,
		opts:   opts,
		now:    time.Now,
	}
}

func validateMetadata(meta model.DocumentMetadata) (model.DocumentMetadata, error) {
	meta.Title = strings.TrimSpace(meta.Title)
	meta.FileName = strings.TrimSpace(meta.FileName)
	if meta.Title == "" {
		return meta, fmt.Errorf("%w: title is required", model.ErrInvalidInput)
	}
	if meta.FileName == "" {
		return meta, fmt.Errorf("%w: file name is required", model.ErrInvalidInput)
	}
	if meta.SizeBytes < 0 {
		return meta, fmt.Errorf("%w: negative size", model.ErrInvalidInput)
	}
	meta.Subject = normalizeOptional(meta.Subject)
	meta.Semester = normalizeOptional(meta.Semester)
	return meta, nil
}

func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Create registers a document whose contents already live at storagePointer
// and records document_created in the same transaction.
func (d *Documents) Create(ctx context.Context, uploader model.Profile, meta model.DocumentMetadata, storagePointer string) (model.DocumentRecord, error) {
	if uploader.ID == uuid.Nil {
		return model.DocumentRecord{}, model.ErrUnauthorized
	}
	meta, err := validateMetadata(meta)
	if err != nil {
		return model.DocumentRecord{}, err
	}
	if strings.TrimSpace(storagePointer) == "" {
		return model.DocumentRecord{}, fmt.Errorf("%w: storage pointer is required", model.ErrInvalidInput)
	}

	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	return d.create(ctx, uploader, meta, storagePointer)
}

func (d *Documents) create(ctx context.Context, uploader model.Profile, meta model.DocumentMetadata, storagePointer string) (model.DocumentRecord, error) {
	doc := model.DocumentRecord{
		ID:             uuid.New(),
		Title:          meta.Title,
		Description:    meta.Description,
		FileName:       meta.FileName,
		ContentType:    meta.ContentType,
		SizeBytes:      meta.SizeBytes,
		StoragePointer: storagePointer,
		UploadedBy:     uploader.ID,
		UploadedByName: uploader.Name,
		UploadedAt:     d.now().UTC(),
		Subject:        meta.Subject,
		Semester:       meta.Semester,
	}

	var record model.ActivityRecord
	err := d.tx.WithinTx(ctx, func(ctx context.Context, tx model.Tx) error {
		saved, err := tx.Documents().Create(ctx, doc)
		if err != nil {
			return err
		}
		doc = saved

		record, err = d.ledger.appendTo(ctx, tx.Activity(), model.ActivityRecord{
			ActionType:   model.ActionDocumentCreated,
			ActorID:      uploader.ID,
			ActorEmail:   uploader.Email,
			ActorName:    uploader.Name,
			DocumentName: ptr(doc.Title),
			Message:      fmt.Sprintf("%s - %s created document \"%s\"", uploader.Email, uploader.Name, doc.Title),
		})
		if err != nil {
			return fmt.Errorf("failed to append document record: %w: %w", model.ErrUpstreamFailure, err)
		}
		return nil
	})
	if err != nil {
		d.logger.Error("Documents service: failed to create document",
			"user_id", uploader.ID,
			"error", err.Error())
		return model.DocumentRecord{}, upstream("create document", err)
	}

	d.ledger.announce(ctx, record)
	d.logger.Info("Documents service: document created",
		"user_id", uploader.ID,
		"document_id", doc.ID)

	return doc, nil
}

// Upload stores the contents in the blob store and registers the document.
// The blob is removed again when registration fails.
func (d *Documents) Upload(ctx context.Context, uploader model.Profile, meta model.DocumentMetadata, contents io.Reader) (model.DocumentRecord, error) {
	if uploader.ID == uuid.Nil {
		return model.DocumentRecord{}, model.ErrUnauthorized
	}
	meta, err := validateMetadata(meta)
	if err != nil {
		return model.DocumentRecord{}, err
	}

	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	pointer, err := d.blobs.Store(ctx, d.objectName(meta.FileName), contents, meta.SizeBytes, meta.ContentType)
	if err != nil {
		d.logger.Error("Documents service: failed to store contents",
			"user_id", uploader.ID,
			"error", err.Error())
		return model.DocumentRecord{}, fmt.Errorf("failed to store document contents: %w: %w", model.ErrUpstreamFailure, err)
	}

	doc, err := d.create(ctx, uploader, meta, pointer)
	if err != nil {
		d.removeBlob(ctx, pointer)
		return model.DocumentRecord{}, err
	}

	return doc, nil
}

// objectName prefixes the base file name with the upload time in unix milliseconds.
func (d *Documents) objectName(fileName string) string {
	return fmt.Sprintf("%d_%s", d.now().UnixMilli(), path.Base(strings.ReplaceAll(fileName, "\\", "/")))
}

func (d *Documents) removeBlob(ctx context.Context, pointer string) {
	if err := d.blobs.Delete(context.WithoutCancel(ctx), pointer); err != nil {
		d.logger.Warn("Documents service: failed to remove blob",
			"pointer", pointer,
			"error", err.Error())
	}
}

func (d *Documents) Get(ctx context.Context, id uuid.UUID) (model.DocumentRecord, error) {
	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	doc, err := d.store.GetByID(ctx, id)
	if err != nil {
		return model.DocumentRecord{}, upstream("get document", err)
	}
	return doc, nil
}

// DownloadURL returns a URL the caller can fetch the contents from.
func (d *Documents) DownloadURL(ctx context.Context, doc model.DocumentRecord) (string, error) {
	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	url, err := d.blobs.PublicURL(ctx, doc.StoragePointer)
	if err != nil {
		return "", fmt.Errorf("failed to resolve download url: %w: %w", model.ErrUpstreamFailure, err)
	}
	return url, nil
}

// List filters by subject and semester, newest first.
func (d *Documents) List(ctx context.Context, filter model.DocumentFilter) ([]model.DocumentRecord, error) {
	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	docs, err := d.store.List(ctx, filter)
	if err != nil {
		return nil, upstream("list documents", err)
	}
	return docs, nil
}

func (d *Documents) Facets(ctx context.Context) (model.DocumentFacets, error) {
	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	facets, err := d.store.Facets(ctx)
	if err != nil {
		return model.DocumentFacets{}, upstream("list document facets", err)
	}
	return facets, nil
}

// Delete removes a document. The contents are removed from the blob store
// after the metadata is gone; a failure there is logged only.
func (d *Documents) Delete(ctx context.Context, admin model.Profile, id uuid.UUID) error {
	if !admin.IsAdmin {
		return model.ErrUnauthorized
	}

	ctx, cancel := d.opts.withTimeout(ctx)
	defer cancel()

	var (
		doc    model.DocumentRecord
		record *model.ActivityRecord
	)
	err := d.tx.WithinTx(ctx, func(ctx context.Context, tx model.Tx) error {
		var err error
		doc, err = tx.Documents().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Documents().Delete(ctx, id); err != nil {
			return err
		}
		if !d.opts.SymmetricAudit {
			return nil
		}
		rec, err := d.ledger.appendTo(ctx, tx.Activity(), model.ActivityRecord{
			ActionType:   model.ActionDocumentDeleted,
			ActorID:      admin.ID,
			ActorEmail:   admin.Email,
			ActorName:    admin.Name,
			DocumentName: ptr(doc.Title),
			Message:      fmt.Sprintf("%s - %s deleted document \"%s\"", admin.Email, admin.Name, doc.Title),
		})
		if err != nil {
			return fmt.Errorf("failed to append document record: %w: %w", model.ErrUpstreamFailure, err)
		}
		record = &rec
		return nil
	})
	if err != nil {
		return upstream("delete document", err)
	}

	d.removeBlob(ctx, doc.StoragePointer)
	if record != nil {
		d.ledger.announce(ctx, *record)
	}
	d.logger.Info("Documents service: document deleted",
		"actor_id", admin.ID,
		"document_id", id)

	return nil
}
