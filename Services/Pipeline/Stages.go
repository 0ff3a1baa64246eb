package pipeline

import (
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// OwnerSummaryFields is the public-safe projection applied wherever a user
// document is embedded as the owner of some other record.
var OwnerSummaryFields = bson.M{
	"fullname": 1,
	"username": 1,
	"avatar":   1,
}

// Match builds a $match stage.
func Match(filter bson.M) bson.D {
	return bson.D{{Key: "$match", Value: filter}}
}

// TextSearch is a $text filter for use inside a Match stage.
func TextSearch(query string) bson.M {
	return bson.M{"$search": query}
}

// Lookup builds a plain $lookup stage (left join on key equality).
func Lookup(from, localField, foreignField, as string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.M{
		"from":         from,
		"localField":   localField,
		"foreignField": foreignField,
		"as":           as,
	}}}
}

// LookupPipeline builds a $lookup with a sub-pipeline applied to the joined
// documents, used for nested joins like watch-history videos with their
// owner summaries.
func LookupPipeline(from, localField, foreignField, as string, sub mongo.Pipeline) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.M{
		"from":         from,
		"localField":   localField,
		"foreignField": foreignField,
		"as":           as,
		"pipeline":     sub,
	}}}
}

// Unwind deconstructs a joined array field into individual documents.
func Unwind(path string) bson.D {
	return bson.D{{Key: "$unwind", Value: path}}
}

// AddFields builds an $addFields stage.
func AddFields(fields bson.M) bson.D {
	return bson.D{{Key: "$addFields", Value: fields}}
}

// First is a $first accumulator reducing a joined single-element array to
// its one document.
func First(path string) bson.M {
	return bson.M{"$first": path}
}

// Project builds a $project stage.
func Project(fields bson.M) bson.D {
	return bson.D{{Key: "$project", Value: fields}}
}

// ReplaceRoot promotes an embedded document to the root, e.g. turning a
// sequence of like records into the videos they point at.
func ReplaceRoot(path string) bson.D {
	return bson.D{{Key: "$replaceRoot", Value: bson.M{"newRoot": path}}}
}

// Sort builds a $sort stage with _id as an explicit secondary key, so ties
// on non-unique sort fields still page deterministically.
func Sort(field string, descending bool) bson.D {
	direction := 1
	if descending {
		direction = -1
	}
	keys := bson.D{{Key: field, Value: direction}}
	if field != "_id" {
		keys = append(keys, bson.E{Key: "_id", Value: direction})
	}
	return bson.D{{Key: "$sort", Value: keys}}
}

// LookupOwnerSummary joins the owning user and reduces it to a single
// public-safe summary object under the same field.
func LookupOwnerSummary(localField, as string) mongo.Pipeline {
	return mongo.Pipeline{
		LookupPipeline("users", localField, "_id", as, mongo.Pipeline{
			Project(OwnerSummaryFields),
		}),
		AddFields(bson.M{as: First("$" + as)}),
	}
}
