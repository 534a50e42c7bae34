package main

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/Cici-YuMao/AIris/match"
	"github.com/Cici-YuMao/AIris/store"
)

// DataLoaderContextKey is the key used to store dataloaders in context
type DataLoaderContextKey string

const dataLoaderKey DataLoaderContextKey = "dataloader"

// DataLoaders holds the per-request loaders
type DataLoaders struct {
	ProfileLoader *dataloader.Loader[match.ID, *match.UserProfile]
}

// NewDataLoaders creates loaders that batch lookups collected within wait
func NewDataLoaders(profiles store.ProfileFetcher, wait time.Duration) *DataLoaders {
	return &DataLoaders{
		ProfileLoader: dataloader.NewBatchedLoader(
			profileBatchFn(profiles),
			dataloader.WithWait[match.ID, *match.UserProfile](wait),
		),
	}
}

// GetDataLoadersFromContext retrieves dataloaders from context
func GetDataLoadersFromContext(ctx context.Context) *DataLoaders {
	if dl, ok := ctx.Value(dataLoaderKey).(*DataLoaders); ok {
		return dl
	}
	return nil
}

// WithDataLoaders adds dataloaders to context
func WithDataLoaders(ctx context.Context, dl *DataLoaders) context.Context {
	return context.WithValue(ctx, dataLoaderKey, dl)
}

// profileBatchFn loads every requested profile with one store call. Users
// without a profile resolve to nil without an error.
func profileBatchFn(profiles store.ProfileFetcher) dataloader.BatchFunc[match.ID, *match.UserProfile] {
	return func(ctx context.Context, keys []match.ID) []*dataloader.Result[*match.UserProfile] {
		results := make([]*dataloader.Result[*match.UserProfile], len(keys))
		found, err := profiles.ProfilesByID(ctx, keys)
		for i, key := range keys {
			if err != nil {
				results[i] = &dataloader.Result[*match.UserProfile]{Error: err}
				continue
			}
			results[i] = &dataloader.Result[*match.UserProfile]{Data: found[key]}
		}
		return results
	}
}
