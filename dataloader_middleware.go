package main

import (
	"net/http"
	"time"

	"github.com/Cici-YuMao/AIris/store"
)

// DataLoaderMiddleware creates middleware that injects dataloaders into the request context
func DataLoaderMiddleware(profiles store.ProfileFetcher, wait time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Fresh loaders per request so cached profiles never outlive it
			ctx := WithDataLoaders(r.Context(), NewDataLoaders(profiles, wait))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
