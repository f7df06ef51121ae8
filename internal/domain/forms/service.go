package forms

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/jsonstore"
)

var pdfMagic = []byte("%PDF-")

// Filter narrows List results. Processed is a tri-state: nil means both.
type Filter struct {
	PatientID int64
	Processed *bool
}

type Service struct {
	repo      Repository
	uploadDir string
	log       zerolog.Logger

	// inspectPDF validates the stored file as a PDF and returns its page
	// count. Swappable so tests don't need real PDF fixtures.
	inspectPDF func(path string) (int, error)
}

func NewService(repo Repository, uploadDir string, log zerolog.Logger) *Service {
	return &Service{repo: repo, uploadDir: uploadDir, log: log, inspectPDF: inspectPDF}
}

// inspectPDF runs a full pdfcpu validation pass before trusting the upload.
func inspectPDF(path string) (int, error) {
	if err := api.ValidateFile(path, nil); err != nil {
		return 0, err
	}
	return api.PageCountFile(path)
}

// sanitizeFileName strips any path components and characters that would be
// awkward on disk.
func sanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	return name
}

// Upload stores a PDF and its metadata record. The file lands in the upload
// directory as "<form id>_<original name>"; a failed validation leaves
// nothing behind.
func (s *Service) Upload(ctx context.Context, patientID int64, fileName string, src io.Reader, notes string) (*Form, error) {
	if patientID <= 0 {
		return nil, &jsonstore.ValidationError{Field: "patient_id", Reason: "must be a positive id"}
	}
	fileName = sanitizeFileName(fileName)
	if fileName == "" || !strings.EqualFold(filepath.Ext(fileName), ".pdf") {
		return nil, &jsonstore.ValidationError{Field: "file", Reason: "must be a .pdf file"}
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, &jsonstore.StorageError{Op: "mkdir", Path: s.uploadDir, Err: err}
	}
	tmp, err := os.CreateTemp(s.uploadDir, ".upload.*.pdf")
	if err != nil {
		return nil, &jsonstore.StorageError{Op: "create temp", Path: s.uploadDir, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	head := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(src, head); err != nil || !bytes.Equal(head, pdfMagic) {
		tmp.Close()
		cleanup()
		return nil, &jsonstore.ValidationError{Field: "file", Reason: "not a PDF document"}
	}
	_, werr := tmp.Write(head)
	if werr == nil {
		_, werr = io.Copy(tmp, src)
	}
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		cleanup()
		return nil, &jsonstore.StorageError{Op: "write", Path: tmpName, Err: werr}
	}

	pages, err := s.inspectPDF(tmpName)
	if err != nil {
		cleanup()
		return nil, &jsonstore.ValidationError{Field: "file", Reason: "PDF failed validation"}
	}

	form := &Form{
		PatientID:  patientID,
		FileName:   fileName,
		PageCount:  pages,
		UploadDate: time.Now().UTC(),
		Notes:      notes,
	}
	if err := s.repo.Create(ctx, form); err != nil {
		cleanup()
		return nil, err
	}

	finalPath := filepath.Join(s.uploadDir, fmt.Sprintf("%d_%s", form.ID, fileName))
	if err := os.Rename(tmpName, finalPath); err != nil {
		cleanup()
		s.repo.Delete(ctx, form.ID)
		return nil, &jsonstore.StorageError{Op: "rename", Path: finalPath, Err: err}
	}
	form.FilePath = finalPath
	if err := s.repo.Update(ctx, form); err != nil {
		os.Remove(finalPath)
		s.repo.Delete(ctx, form.ID)
		return nil, err
	}

	s.log.Info().
		Int64("form_id", form.ID).
		Int64("patient_id", patientID).
		Str("file", fileName).
		Int("pages", pages).
		Msg("form uploaded")
	return form, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Form, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Form, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var matched []*Form
	for _, form := range all {
		if f.PatientID != 0 && form.PatientID != f.PatientID {
			continue
		}
		if f.Processed != nil && form.Processed != *f.Processed {
			continue
		}
		matched = append(matched, form)
	}
	return matched, nil
}

// MarkProcessed flags a form as reviewed. Marking twice is a no-op.
func (s *Service) MarkProcessed(ctx context.Context, id int64) (*Form, error) {
	form, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if form.Processed {
		return form, nil
	}
	form.Processed = true
	if err := s.repo.Update(ctx, form); err != nil {
		return nil, err
	}
	s.log.Info().Int64("form_id", id).Msg("form marked processed")
	return form, nil
}

// UpdateNotes replaces the reviewer notes on a form.
func (s *Service) UpdateNotes(ctx context.Context, id int64, notes string) (*Form, error) {
	form, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	form.Notes = notes
	if err := s.repo.Update(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

// Delete removes the metadata record and the stored PDF. A file already gone
// from disk does not block deletion of the record.
func (s *Service) Delete(ctx context.Context, id int64) error {
	form, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if form.FilePath != "" {
		if err := os.Remove(form.FilePath); err != nil && !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", form.FilePath).Msg("stored PDF could not be removed")
		}
	}
	s.log.Info().Int64("form_id", id).Msg("form deleted")
	return nil
}
