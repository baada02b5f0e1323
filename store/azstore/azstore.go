// Package azstore is a meta.Store backend over Azure Blob Storage,
// generalizing the teacher's Azure cloud backend
// (Azure/azure-sdk-for-go/sdk/storage/azblob) the same way s3store
// generalizes the S3 one.
package azstore

import (
	"context"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/compforge/syncmesh/codec/jsoncodec"
	"github.com/compforge/syncmesh/core/meta"
	"github.com/compforge/syncmesh/store"
)

// Store is an Azure-Blob-backed meta.Store. Records are JSON blobs
// named "type/uuid.json" in Container.
type Store struct {
	client    *azblob.Client
	container string
	builders  store.Builders
	filter    *store.ExistenceFilter
	codec     jsoncodec.Codec
}

// Open authenticates against accountURL with the SDK's default
// credential-less client; swap in NewClient with a credential for
// private containers.
func Open(accountURL, container string, builders store.Builders) (*Store, error) {
	client, err := azblob.NewClientWithNoCredential(accountURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "azstore client")
	}
	return &Store{
		client:    client,
		container: container,
		builders:  builders,
		filter:    store.NewExistenceFilter(1 << 16),
		codec:     jsoncodec.New(),
	}, nil
}

func blobName(typeName string, id uuid.UUID) string {
	return typeName + "/" + id.String() + ".json"
}

// Load implements meta.Store.
func (s *Store) Load(ctx context.Context, typeName string, id uuid.UUID) (meta.Record, bool, error) {
	if !s.filter.MightExist(typeName, id) {
		return nil, false, nil
	}

	resp, err := s.client.DownloadStream(ctx, s.container, blobName(typeName, id), nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "azstore download")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, errors.Wrap(err, "azstore read body")
	}

	blank := s.builders.Get(typeName)
	if blank == nil {
		return nil, false, errors.Errorf("azstore: no builder registered for type %q", typeName)
	}
	if err := s.codec.Decode(blank, raw); err != nil {
		return nil, false, errors.Wrap(err, "azstore decode")
	}
	return blank, true, nil
}

// Save uploads record as a blob, overwriting any prior version.
func (s *Store) Save(ctx context.Context, typeName string, record meta.Record) error {
	raw, err := s.codec.Encode(record)
	if err != nil {
		return errors.Wrap(err, "azstore encode")
	}
	id := record.SyncUUID()
	_, err = s.client.UploadBuffer(ctx, s.container, blobName(typeName, id), raw, nil)
	if err != nil {
		return errors.Wrap(err, "azstore upload")
	}
	s.filter.Observe(typeName, id)
	return nil
}

// Delete removes the blob, for symmetry with buntstore.
func (s *Store) Delete(ctx context.Context, typeName string, id uuid.UUID) error {
	_, err := s.client.DeleteBlob(ctx, s.container, blobName(typeName, id), nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return errors.Wrap(err, "azstore delete")
	}
	s.filter.Forget(typeName, id)
	return nil
}

var _ meta.Store = (*Store)(nil)
