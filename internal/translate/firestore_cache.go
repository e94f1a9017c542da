package translate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

const DefaultFirestoreCollection = "translation_cache"

// FirestoreCache shares translations between processes through a Firestore collection.
type FirestoreCache struct {
	client     *firestore.Client
	collection string
	owned      bool
}

type firestoreEntry struct {
	Source     string    `firestore:"source"`
	Target     string    `firestore:"target"`
	Translated string    `firestore:"translated"`
	CreatedAt  time.Time `firestore:"created_at"`
}

func NewFirestoreCache(ctx context.Context, projectID, collection string) (*FirestoreCache, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore cache")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	c := NewFirestoreCacheFromClient(client, collection)
	c.owned = true
	return c, nil
}

// NewFirestoreCacheFromClient uses an existing client. Close leaves it open.
func NewFirestoreCacheFromClient(client *firestore.Client, collection string) *FirestoreCache {
	if collection == "" {
		collection = DefaultFirestoreCollection
	}
	return &FirestoreCache{client: client, collection: collection}
}

func firestoreDocID(key Key) string {
	return key.Hash + "_" + key.Source + "_" + key.Target
}

func (c *FirestoreCache) doc(key Key) *firestore.DocumentRef {
	return c.client.Collection(c.collection).Doc(firestoreDocID(key))
}

func (c *FirestoreCache) Get(ctx context.Context, key Key) (string, bool, error) {
	snaps, err := c.client.GetAll(ctx, []*firestore.DocumentRef{c.doc(key)})
	if err != nil {
		return "", false, fmt.Errorf("failed to read translation: %w", err)
	}
	if len(snaps) == 0 || !snaps[0].Exists() {
		return "", false, nil
	}
	var e firestoreEntry
	if err := snaps[0].DataTo(&e); err != nil {
		return "", false, fmt.Errorf("failed to decode translation: %w", err)
	}
	return e.Translated, true, nil
}

func (c *FirestoreCache) Set(ctx context.Context, key Key, value string) error {
	_, err := c.doc(key).Set(ctx, firestoreEntry{
		Source:     key.Source,
		Target:     key.Target,
		Translated: value,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to write translation: %w", err)
	}
	return nil
}

func (c *FirestoreCache) Len(ctx context.Context) (int, error) {
	n := 0
	it := c.client.Collection(c.collection).DocumentRefs(ctx)
	for {
		_, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return n, nil
		}
		if err != nil {
			return 0, fmt.Errorf("failed to count translations: %w", err)
		}
		n++
	}
}

func (c *FirestoreCache) Clear(ctx context.Context) error {
	bw := c.client.BulkWriter(ctx)
	it := c.client.Collection(c.collection).DocumentRefs(ctx)
	for {
		ref, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			bw.End()
			return fmt.Errorf("failed to list translations: %w", err)
		}
		if _, err := bw.Delete(ref); err != nil {
			bw.End()
			return fmt.Errorf("failed to delete translation: %w", err)
		}
	}
	bw.End()
	return nil
}

func (c *FirestoreCache) Close() error {
	if !c.owned {
		return nil
	}
	return c.client.Close()
}
