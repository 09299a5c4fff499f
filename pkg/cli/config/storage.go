package config

import (
	"context"

	"github.com/m-mizutani/relgate/pkg/domain/interfaces"
	firestoreinfra "github.com/m-mizutani/relgate/pkg/infra/firestore"
	"github.com/m-mizutani/relgate/pkg/infra/gcs"
	"github.com/m-mizutani/relgate/pkg/infra/memory"
	"github.com/urfave/cli/v3"
)

// Storage holds artifact store and run repository configuration
type Storage struct {
	Bucket            string
	Prefix            string
	FirestoreProject  string
	FirestoreDatabase string
}

// Flags returns CLI flags for storage configuration
func (c *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "artifact-bucket",
			Usage:       "GCS bucket for build artifacts (in-memory store when unset)",
			Destination: &c.Bucket,
			Sources:     cli.EnvVars("RELGATE_ARTIFACT_BUCKET"),
		},
		&cli.StringFlag{
			Name:        "artifact-prefix",
			Usage:       "Object name prefix within the artifact bucket",
			Destination: &c.Prefix,
			Sources:     cli.EnvVars("RELGATE_ARTIFACT_PREFIX"),
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "GCP project for run records (in-memory repository when unset)",
			Destination: &c.FirestoreProject,
			Sources:     cli.EnvVars("RELGATE_FIRESTORE_PROJECT"),
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID for run records",
			Value:       "(default)",
			Destination: &c.FirestoreDatabase,
			Sources:     cli.EnvVars("RELGATE_FIRESTORE_DATABASE"),
		},
	}
}

// ConfigureArtifacts creates the artifact store: GCS when a bucket is
// configured, otherwise in-memory.
func (c *Storage) ConfigureArtifacts(ctx context.Context) (interfaces.ArtifactStore, error) {
	if c.Bucket == "" {
		return memory.NewStore(), nil
	}
	return gcs.NewStore(ctx, c.Bucket, c.Prefix)
}

// ConfigureRuns creates the run repository: Firestore when a project is
// configured, otherwise in-memory.
func (c *Storage) ConfigureRuns(ctx context.Context) (interfaces.RunRepository, error) {
	if c.FirestoreProject == "" {
		return memory.NewRepository(), nil
	}
	return firestoreinfra.NewRepository(ctx, c.FirestoreProject, c.FirestoreDatabase)
}
