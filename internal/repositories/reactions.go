package repositories

import (
	"context"

	"github.com/anonto42/circles/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoReactions implements ReactionStore over any collection whose documents
// carry an `owner` and a `reactions.<kind>.{count,users}` map.
type mongoReactions struct {
	collection *mongo.Collection
}

func reactionField(kind models.ReactionKind, leaf string) string {
	return "reactions." + string(kind) + "." + leaf
}

func (m mongoReactions) GetReactable(ctx context.Context, id string) (*models.Reactable, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Owner     string           `bson:"owner"`
		Reactions models.Reactions `bson:"reactions"`
	}
	opts := options.FindOne().SetProjection(bson.M{"owner": 1, "reactions": 1})
	if err := m.collection.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	if doc.Reactions == nil {
		doc.Reactions = models.NewReactions()
	}
	return &models.Reactable{Owner: doc.Owner, Reactions: doc.Reactions}, nil
}

// ApplyReaction asserts the observed state in the filter so the counter and the
// user set of both buckets change in one atomic document update.
func (m mongoReactions) ApplyReaction(ctx context.Context, id, userID string, from, to models.ReactionKind) (bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return false, err
	}
	filter := bson.M{"_id": oid}
	inc := bson.M{}
	update := bson.M{}

	if from == "" {
		for _, k := range models.ReactionKinds {
			filter[reactionField(k, "users")] = bson.M{"$ne": userID}
		}
	} else {
		filter[reactionField(from, "users")] = userID
		inc[reactionField(from, "count")] = -1
		update["$pull"] = bson.M{reactionField(from, "users"): userID}
	}
	if to != "" {
		if from != "" {
			filter[reactionField(to, "users")] = bson.M{"$ne": userID}
		}
		inc[reactionField(to, "count")] = 1
		update["$addToSet"] = bson.M{reactionField(to, "users"): userID}
	}
	if len(inc) == 0 {
		return true, nil
	}
	update["$inc"] = inc

	res, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (m mongoReactions) PullReactor(ctx context.Context, userID string) error {
	for _, k := range models.ReactionKinds {
		_, err := m.collection.UpdateMany(ctx,
			bson.M{reactionField(k, "users"): userID},
			bson.M{
				"$pull": bson.M{reactionField(k, "users"): userID},
				"$inc":  bson.M{reactionField(k, "count"): -1},
			})
		if err != nil {
			return err
		}
	}
	return nil
}
