package repository

import (
	"context"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/notewave/notewave/internal/note"
)

// MongoRepo implements Repository backed by a MongoDB collection. Versions are
// embedded in the note document (like the collaborator set), so every content
// update is a single document-level atomic operation. Mongo serializes
// concurrent writers per document, which gives the version log its ordering.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	// index for the collaborator-filtered listing
	idx := mongo.IndexModel{Keys: bson.D{{Key: "collaborators", Value: 1}, {Key: "updatedAt", Value: -1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &MongoRepo{col: col}
}

func (m *MongoRepo) Create(ctx context.Context, n *note.Note) (string, error) {
	if n.ID == "" {
		n.ID = xid.New().String()
	}
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now
	if n.Content == nil {
		n.Content = note.EmptyContent()
	}
	n.Versions = []note.Version{{
		ID:        xid.New().String(),
		Content:   n.Content,
		EditedBy:  n.CreatedBy,
		Timestamp: now,
	}}
	if _, err := m.col.InsertOne(ctx, n); err != nil {
		return "", err
	}
	return n.ID, nil
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*note.Note, error) {
	var n note.Note
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, note.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (m *MongoRepo) List(ctx context.Context, collaboratorID string) ([]*note.Note, error) {
	filter := bson.M{}
	if collaboratorID != "" {
		filter["collaborators"] = collaboratorID
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetProjection(bson.M{"versions": 0})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*note.Note{}
	for cur.Next(ctx) {
		var n note.Note
		if err := cur.Decode(&n); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, cur.Err()
}

func (m *MongoRepo) Update(ctx context.Context, id string, title *string, content interface{}, editorID string) (*note.Note, error) {
	now := time.Now().UTC()
	set := bson.M{"updatedAt": now}
	if title != nil {
		set["title"] = *title
	}
	update := bson.M{"$set": set}
	if content != nil {
		set["content"] = content
		update["$push"] = bson.M{"versions": note.Version{
			ID:        xid.New().String(),
			Content:   content,
			EditedBy:  editorID,
			Timestamp: now,
		}}
	}
	return m.findAndApply(ctx, bson.M{"_id": id}, update)
}

func (m *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return note.ErrNotFound
	}
	return nil
}

func (m *MongoRepo) ListVersions(ctx context.Context, id string) ([]note.Version, error) {
	var n note.Note
	opts := options.FindOne().SetProjection(bson.M{"versions": 1})
	if err := m.col.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&n); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, note.ErrNotFound
		}
		return nil, err
	}
	out := make([]note.Version, len(n.Versions))
	for i, v := range n.Versions {
		out[len(n.Versions)-1-i] = v
	}
	return out, nil
}

func (m *MongoRepo) RestoreVersion(ctx context.Context, id, versionID, editorID string) (*note.Note, error) {
	n, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var snap *note.Version
	for i := range n.Versions {
		if n.Versions[i].ID == versionID {
			snap = &n.Versions[i]
			break
		}
	}
	if snap == nil {
		return nil, note.ErrNotFound
	}
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{"content": snap.Content, "updatedAt": now},
		"$push": bson.M{"versions": note.Version{
			ID:        xid.New().String(),
			Content:   snap.Content,
			EditedBy:  editorID,
			Timestamp: now,
		}},
	}
	return m.findAndApply(ctx, bson.M{"_id": id}, update)
}

func (m *MongoRepo) AddCollaborator(ctx context.Context, id, userID string) (*note.Note, error) {
	filter := bson.M{"_id": id, "collaborators": bson.M{"$ne": userID}}
	update := bson.M{
		"$push": bson.M{"collaborators": userID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	n, err := m.findAndApply(ctx, filter, update)
	if err == note.ErrNotFound {
		// distinguish a missing note from an existing membership
		if _, gerr := m.Get(ctx, id); gerr == nil {
			return nil, note.ErrAlreadyCollaborator
		}
		return nil, note.ErrNotFound
	}
	return n, err
}

func (m *MongoRepo) findAndApply(ctx context.Context, filter, update bson.M) (*note.Note, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var n note.Note
	if err := m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&n); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, note.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}
