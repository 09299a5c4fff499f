package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relgate/pkg/domain/interfaces"
	"github.com/m-mizutani/relgate/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const runCollection = "runs"

// Repository persists run records in Firestore
type Repository struct {
	client *firestore.Client
}

var _ interfaces.RunRepository = (*Repository)(nil)

// NewRepository creates a Firestore-backed run repository
func NewRepository(ctx context.Context, projectID, databaseID string) (*Repository, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Firestore client",
			goerr.V("project_id", projectID), goerr.V("database_id", databaseID))
	}
	return &Repository{client: client}, nil
}

// Close releases the underlying client
func (r *Repository) Close() error {
	return r.client.Close()
}

func (r *Repository) Put(ctx context.Context, record *model.RunRecord) error {
	_, err := r.client.Collection(runCollection).Doc(record.ID).Create(ctx, record)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			// Run IDs are unique per trigger delivery; a duplicate means the
			// same delivery was re-run and the newer outcome wins
			_, err = r.client.Collection(runCollection).Doc(record.ID).Set(ctx, record)
		}
		if err != nil {
			return goerr.Wrap(err, "failed to put run record", goerr.V("run_id", record.ID))
		}
	}
	return nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]*model.RunRecord, error) {
	query := r.client.Collection(runCollection).
		OrderBy("started_at", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var records []*model.RunRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate run records")
		}

		var rec model.RunRecord
		if err := doc.DataTo(&rec); err != nil {
			return nil, goerr.Wrap(err, "failed to decode run record", goerr.V("doc_id", doc.Ref.ID))
		}
		records = append(records, &rec)
	}
	return records, nil
}
