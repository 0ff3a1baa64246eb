// Package pipeline is the aggregation query engine behind every denormalized
// read model: it provides the shared $lookup/$sort/$project stage builders
// and a paginator that turns a pipeline into a stable page envelope.
package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Params are the validated pagination inputs. Parsing is fail-fast: a
// structurally bad page or limit is rejected before any store round trip.
type Params struct {
	Page  int64
	Limit int64
}

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// ParseParams reads page and limit from the query string. Absent values get
// defaults; non-numeric or non-positive values are an error, never silently
// clamped to page 1.
func ParseParams(query url.Values) (Params, error) {
	p := Params{Page: defaultPage, Limit: defaultLimit}

	if raw := query.Get("page"); raw != "" {
		page, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Params{}, fmt.Errorf("page must be a number, got %q", raw)
		}
		if page < 1 {
			return Params{}, fmt.Errorf("page must be >= 1, got %d", page)
		}
		p.Page = page
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Params{}, fmt.Errorf("limit must be a number, got %q", raw)
		}
		if limit < 1 {
			return Params{}, fmt.Errorf("limit must be >= 1, got %d", limit)
		}
		if limit > maxLimit {
			limit = maxLimit
		}
		p.Limit = limit
	}

	return p, nil
}

// Page is the pagination envelope every paginated endpoint responds with.
type Page struct {
	Page       int64    `json:"page"`
	Limit      int64    `json:"limit"`
	TotalPages int64    `json:"totalPages"`
	TotalDocs  int64    `json:"totalDocs"`
	Docs       []bson.M `json:"docs"`
}

type facetResult struct {
	Meta []struct {
		Total int64 `bson:"total"`
	} `bson:"meta"`
	Docs []bson.M `bson:"docs"`
}

// Paginate executes the pipeline with a $facet counting the total matches
// alongside the requested slice, in one round trip. An empty result is a
// valid zero-valued page, not an error.
func Paginate(ctx context.Context, coll *mongo.Collection, stages mongo.Pipeline, p Params) (*Page, error) {
	facet := bson.D{{Key: "$facet", Value: bson.M{
		"meta": bson.A{bson.M{"$count": "total"}},
		"docs": bson.A{
			bson.M{"$skip": (p.Page - 1) * p.Limit},
			bson.M{"$limit": p.Limit},
		},
	}}}

	cursor, err := coll.Aggregate(ctx, append(stages, facet))
	if err != nil {
		return nil, fmt.Errorf("pipeline: aggregation failed: %w", err)
	}
	defer cursor.Close(ctx)

	var results []facetResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("pipeline: failed to decode page: %w", err)
	}

	page := &Page{Page: p.Page, Limit: p.Limit, Docs: []bson.M{}}
	if len(results) == 0 {
		return page, nil
	}

	// $count produces no meta document at all when nothing matched.
	if len(results[0].Meta) > 0 {
		page.TotalDocs = results[0].Meta[0].Total
	}
	page.TotalPages = TotalPages(page.TotalDocs, p.Limit)
	if results[0].Docs != nil {
		page.Docs = results[0].Docs
	}

	return page, nil
}

// TotalPages is ceil(totalDocs / limit).
func TotalPages(totalDocs, limit int64) int64 {
	if totalDocs <= 0 || limit <= 0 {
		return 0
	}
	return (totalDocs + limit - 1) / limit
}

// All executes a non-paginated pipeline and returns every resulting document.
func All(ctx context.Context, coll *mongo.Collection, stages mongo.Pipeline) ([]bson.M, error) {
	cursor, err := coll.Aggregate(ctx, stages)
	if err != nil {
		return nil, fmt.Errorf("pipeline: aggregation failed: %w", err)
	}
	defer cursor.Close(ctx)

	docs := []bson.M{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("pipeline: failed to decode results: %w", err)
	}
	return docs, nil
}
