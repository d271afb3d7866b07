package gcs

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/rezkam/tasklens/internal/application/todo"
	"github.com/rezkam/tasklens/internal/infrastructure/persistence/compliance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"
)

func TestGCSStore_Compliance(t *testing.T) {
	bucket := os.Getenv("TEST_GCS_BUCKET")
	if bucket == "" {
		t.Skip("TEST_GCS_BUCKET not set, skipping GCS tests")
	}

	compliance.RunTaskStoreComplianceTest(t, func() (todo.Repository, func()) {
		// Each subtest gets its own prefix so runs never see each other's objects.
		// TEST_GCS_ENDPOINT points at an emulator such as fake-gcs-server.
		ctx := context.Background()
		prefix := "test-" + uuid.NewString() + "/"

		store, err := NewStore(ctx, Config{
			Bucket:   bucket,
			Prefix:   prefix,
			Endpoint: os.Getenv("TEST_GCS_ENDPOINT"),
		})
		require.NoError(t, err)

		cleanup := func() {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			it := store.client.Bucket(bucket).Objects(cleanupCtx, &storage.Query{Prefix: prefix})
			for {
				attrs, err := it.Next()
				if errors.Is(err, iterator.Done) {
					break
				}
				if err != nil {
					t.Logf("Warning: failed to list objects during cleanup: %v", err)
					break
				}
				if err := store.client.Bucket(bucket).Object(attrs.Name).Delete(cleanupCtx); err != nil {
					t.Logf("Warning: failed to delete object %s: %v", attrs.Name, err)
				}
			}
			_ = store.Close()
		}

		return store, cleanup
	})
}

func TestNewStore_RequiresBucket(t *testing.T) {
	_, err := NewStore(context.Background(), Config{})
	assert.Error(t, err)
}

func TestObjectName_UsesPrefix(t *testing.T) {
	s := &Store{prefix: DefaultPrefix}
	assert.Equal(t, "tasks/abc.json", s.objectName("abc"))
}
