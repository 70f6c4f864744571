// Package media stores uploaded binaries and hands back opaque references.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	gcs "cloud.google.com/go/storage"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// File is one upload. Folder, when set, groups the object under media/<Folder>/.
type File struct {
	Name        string
	Folder      string
	ContentType string
	Data        io.Reader
}

func objectName(f File) string {
	return path.Join("media", f.Folder, uuid.NewString()+path.Ext(f.Name))
}

// InFolder reports whether id was uploaded into folder.
func InFolder(id, folder string) bool {
	return folder != "" && strings.HasPrefix(id, "media/"+folder+"/") && !strings.Contains(id, "..")
}

// Service uploads and deletes media objects keyed by their public id.
type Service interface {
	Upload(ctx context.Context, files []File) ([]models.Media, error)
	Delete(ctx context.Context, ids []string) error
}

const maxParallel = 8

// BucketService keeps media in a Cloud Storage bucket.
type BucketService struct {
	bucket *gcs.BucketHandle
	name   string
}

// NewBucketService creates a BucketService over bucket.
func NewBucketService(bucket *gcs.BucketHandle, name string) *BucketService {
	return &BucketService{bucket: bucket, name: name}
}

func (s *BucketService) Upload(ctx context.Context, files []File) ([]models.Media, error) {
	out := make([]models.Media, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, f := range files {
		g.Go(func() error {
			id := objectName(f)
			w := s.bucket.Object(id).NewWriter(gctx)
			w.ContentType = f.ContentType
			if _, err := io.Copy(w, f.Data); err != nil {
				w.Close()
				return fmt.Errorf("upload %s: %w", f.Name, err)
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("upload %s: %w", f.Name, err)
			}
			out[i] = models.Media{
				PublicID: id,
				URL:      fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.name, id),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var uploaded []string
		for _, m := range out {
			if m.PublicID != "" {
				uploaded = append(uploaded, m.PublicID)
			}
		}
		// best effort, the upload error is what the caller needs
		_ = s.Delete(context.WithoutCancel(ctx), uploaded)
		return nil, err
	}
	return out, nil
}

// Delete removes the objects; ids that no longer exist are ignored.
func (s *BucketService) Delete(ctx context.Context, ids []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for _, id := range ids {
		if id == "" {
			continue
		}
		g.Go(func() error {
			err := s.bucket.Object(id).Delete(gctx)
			if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Fake is an in-memory Service.
type Fake struct {
	mu      sync.Mutex
	Objects map[string]bool
	Deleted []string
	// Err, when set, is returned by every call.
	Err error
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{Objects: make(map[string]bool)}
}

func (f *Fake) Upload(_ context.Context, files []File) ([]models.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([]models.Media, len(files))
	for i, file := range files {
		id := objectName(file)
		f.Objects[id] = true
		out[i] = models.Media{PublicID: id, URL: "https://media.test/" + id}
	}
	return out, nil
}

func (f *Fake) Delete(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	for _, id := range ids {
		delete(f.Objects, id)
		f.Deleted = append(f.Deleted, id)
	}
	return nil
}

// DeletedIDs returns a copy of every id passed to Delete.
func (f *Fake) DeletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Deleted...)
}
