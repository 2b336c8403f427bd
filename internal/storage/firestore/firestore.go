// Package firestore implements storage.Store on Cloud Firestore, where the
// device uploader writes daily usage documents.
package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/goodtune/timeleak/internal/config"
	"github.com/goodtune/timeleak/internal/storage"
)

// Store implements the storage.Store interface using Cloud Firestore
type Store struct {
	client       *firestore.Client
	location     string
	usageStore   *usageStore
	taglineStore *taglineStore
}

// Open creates a Firestore client for the configured project and database.
// Credentials come from the configured file or Application Default Credentials;
// an emulator host disables authentication.
func Open(ctx context.Context, cfg config.FirestoreConfig) (*Store, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore project_id is required")
	}

	var opts []option.ClientOption
	switch {
	case cfg.EmulatorHost != "":
		opts = append(opts,
			option.WithEndpoint(cfg.EmulatorHost),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	databaseID := cfg.DatabaseID
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, cfg.ProjectID, databaseID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	usageCollection := cfg.UsageCollection
	if usageCollection == "" {
		usageCollection = "usage_data"
	}
	taglineCollection := cfg.TaglineCollection
	if taglineCollection == "" {
		taglineCollection = "taglines"
	}

	return &Store{
		client:       client,
		location:     fmt.Sprintf("projects/%s/databases/%s/documents/%s", cfg.ProjectID, databaseID, usageCollection),
		usageStore:   &usageStore{collection: client.Collection(usageCollection)},
		taglineStore: &taglineStore{client: client, collection: client.Collection(taglineCollection)},
	}, nil
}

// Close closes the Firestore client
func (s *Store) Close() error {
	return s.client.Close()
}

// Backend identifies the store in logs and metrics.
func (s *Store) Backend() string {
	return "firestore"
}

// Usage returns the UsageStore implementation
func (s *Store) Usage() storage.UsageStore {
	return s.usageStore
}

// Taglines returns the TaglineStore implementation
func (s *Store) Taglines() storage.TaglineStore {
	return s.taglineStore
}

// Probe reads up to sample usage documents.
func (s *Store) Probe(ctx context.Context, sample int) (*storage.ProbeResult, error) {
	result := &storage.ProbeResult{
		Backend:  s.Backend(),
		Location: s.location,
	}
	if sample <= 0 {
		sample = 1
	}

	docs, err := s.usageStore.collection.Limit(sample).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.usageStore.collection.ID, err)
	}

	result.SampledDocuments = len(docs)
	if len(docs) > 0 {
		rec := recordFromSnapshot(docs[0])
		result.Sample = &rec
	}
	return result, nil
}

type usageStore struct {
	collection *firestore.CollectionRef
}

// FindByPhoneNumber queries for the first document whose phoneNumber field
// equals phoneNumber.
func (s *usageStore) FindByPhoneNumber(ctx context.Context, phoneNumber string) (*storage.UsageRecord, error) {
	iter := s.collection.
		Where(storage.FieldPhoneNumber, "==", phoneNumber).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.collection.ID, err)
	}

	rec := recordFromSnapshot(doc)
	return &rec, nil
}

// Put writes the record under a document named by its phone number.
func (s *usageStore) Put(ctx context.Context, record storage.UsageRecord) error {
	if record.PhoneNumber == "" {
		return errors.New("usage record has no phone number")
	}
	_, err := s.collection.Doc(record.PhoneNumber).Set(ctx, record.Fields())
	return err
}

type taglineStore struct {
	client     *firestore.Client
	collection *firestore.CollectionRef
}

// List returns the text of every tagline document. Documents without a string
// text field are skipped.
func (s *taglineStore) List(ctx context.Context) ([]string, error) {
	docs, err := s.collection.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.collection.ID, err)
	}

	taglines := make([]string, 0, len(docs))
	for _, doc := range docs {
		if text, ok := doc.Data()[storage.FieldTaglineText].(string); ok && text != "" {
			taglines = append(taglines, text)
		}
	}
	return taglines, nil
}

// Add creates one document per tagline.
func (s *taglineStore) Add(ctx context.Context, taglines ...string) error {
	if len(taglines) == 0 {
		return nil
	}

	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(taglines))
	for _, text := range taglines {
		job, err := bw.Create(s.collection.NewDoc(), map[string]any{storage.FieldTaglineText: text})
		if err != nil {
			bw.End()
			return err
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return err
		}
	}
	return nil
}

func recordFromSnapshot(doc *firestore.DocumentSnapshot) storage.UsageRecord {
	rec := storage.RecordFromFields(doc.Data())
	if rec.PhoneNumber == "" && doc.Ref != nil {
		rec.PhoneNumber = doc.Ref.ID
	}
	return rec
}
