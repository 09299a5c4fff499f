package gcs

import (
	"context"
	"errors"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relgate/pkg/domain/interfaces"
	"github.com/m-mizutani/relgate/pkg/domain/types"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Store is a Google Cloud Storage backed ArtifactStore. Write-once semantics
// come from a DoesNotExist generation precondition: a name collision fails
// the write instead of overwriting.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.ArtifactStore = (*Store)(nil)

// NewStore creates a GCS artifact store for the bucket. Objects are placed
// under the optional prefix.
func NewStore(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*Store, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GCS client")
	}

	return &Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Close releases the underlying client
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) objectName(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *Store) Store(ctx context.Context, name string, data []byte) error {
	obj := s.client.Bucket(s.bucket).Object(s.objectName(name)).
		If(storage.Conditions{DoesNotExist: true})

	w := obj.NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return goerr.Wrap(types.ErrStoreFailure, "failed to write artifact",
			goerr.V("name", name), goerr.V("error", err.Error()))
	}
	if err := w.Close(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
			return goerr.Wrap(types.ErrStoreFailure, "artifact name already written",
				goerr.V("name", name))
		}
		return goerr.Wrap(types.ErrStoreFailure, "failed to finalize artifact",
			goerr.V("name", name), goerr.V("error", err.Error()))
	}
	return nil
}

func (s *Store) Retrieve(ctx context.Context, name string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.objectName(name)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.New("artifact not found", goerr.V("name", name))
		}
		return nil, goerr.Wrap(err, "failed to open artifact", goerr.V("name", name))
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read artifact", goerr.V("name", name))
	}
	return data, nil
}
