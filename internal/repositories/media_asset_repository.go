package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/nano-midea/functions/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MediaAssetRepository keeps the provenance catalog of processed uploads
type MediaAssetRepository interface {
	UpsertAsset(ctx context.Context, asset *models.MediaAsset) error
}

type mongoMediaAssetRepository struct {
	collection *mongo.Collection
}

func NewMongoMediaAssetRepository(db *mongo.Database) MediaAssetRepository {
	return &mongoMediaAssetRepository{collection: db.Collection("media_assets")}
}

// UpsertAsset replaces the record keyed by the original path, so reprocessing
// the same upload never duplicates it.
func (r *mongoMediaAssetRepository) UpsertAsset(ctx context.Context, asset *models.MediaAsset) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": asset.OriginalPath}, asset, opts)
	if err != nil {
		return fmt.Errorf("upsert media asset %s: %w", asset.OriginalPath, err)
	}
	return nil
}
