package stage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"crazypanel/internal/poster"
)

const (
	msgSelectFile     = "Select a CSV file first."
	fallbackUpload    = "Upload failed"
	acceptedExtension = ".csv"
)

// Uploader sends an artifact to the backend.
type Uploader interface {
	UploadArtifact(ctx context.Context, content []byte, fileName string) (poster.Upload, error)
}

// ReferenceSink receives the reference of every successful upload.
type ReferenceSink func(ctx context.Context, reference string)

// File is an operator-selected artifact. Contents are never parsed.
type File struct {
	Name    string
	Content []byte
}

// Size returns the content length in bytes.
func (f *File) Size() int {
	if f == nil {
		return 0
	}
	return len(f.Content)
}

// AcceptsName reports whether name carries the advisory .csv extension.
func AcceptsName(name string) bool {
	return strings.EqualFold(filepath.Ext(strings.TrimSpace(name)), acceptedExtension)
}

// UploadStage submits the selected file and publishes the returned reference.
type UploadStage struct {
	machine
	client  Uploader
	publish ReferenceSink

	file      *File
	reference string
	sizeBytes int64
}

// NewUpload constructs the Upload stage. publish may be nil.
func NewUpload(client Uploader, publish ReferenceSink, opts ...Option) *UploadStage {
	s := &UploadStage{
		client:  client,
		publish: publish,
	}
	s.init(KindUpload, fallbackUpload, s.fillSnapshot, opts)
	return s
}

// Select stores the chosen file; nil clears the selection. An idle or settled
// stage returns to Idle with its message cleared.
func (s *UploadStage) Select(file *File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file = file
	if s.state == InFlight {
		return
	}
	s.state, s.outcome, s.message, s.lastErr = Idle, OutcomeNone, "", nil
}

// Begin validates the selection and moves the stage to InFlight.
func (s *UploadStage) Begin(ctx context.Context) (Submission, error) {
	var file File
	ok, err := s.admit(ctx, func() string {
		if s.file == nil {
			return msgSelectFile
		}
		file = *s.file
		return ""
	})
	if err != nil || !ok {
		return nil, err
	}
	return func(ctx context.Context) Snapshot {
		return s.execute(ctx, func(ctx context.Context) (outcomeFn, error) {
			upload, err := s.client.UploadArtifact(ctx, file.Content, file.Name)
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(upload.Reference) == "" {
				return nil, &poster.RequestFailedError{Op: poster.OpUpload, Err: poster.ErrMissingReference}
			}
			if s.publish != nil {
				s.publish(ctx, upload.Reference)
			}
			return func() (string, func()) {
				return uploadedMessage(upload.SizeBytes), func() {
					s.reference = upload.Reference
					s.sizeBytes = upload.SizeBytes
				}
			}, nil
		})
	}, nil
}

// Submit runs Begin and, when admitted, the submission itself.
func (s *UploadStage) Submit(ctx context.Context) Snapshot {
	sub, err := s.Begin(ctx)
	if err != nil || sub == nil {
		return s.Snapshot()
	}
	return sub(ctx)
}

func (s *UploadStage) fillSnapshot(snap *Snapshot) {
	if s.file != nil {
		snap.FileName = s.file.Name
		snap.FileSize = s.file.Size()
	}
	snap.Reference = s.reference
	snap.SizeBytes = s.sizeBytes
	snap.CanSubmit = s.state != InFlight && s.file != nil
}

func uploadedMessage(size int64) string {
	return fmt.Sprintf("Uploaded ✓  (%.1f KB)", float64(size)/1024)
}
