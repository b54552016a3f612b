// Package update checks installed modules against the package registry.
//
// This package handles:
//   - Posting the package-list query to the registry with the world's API key
//   - Indexing the returned package list by package name
//   - Comparing each active module's version with the registry's latest version
//   - Holding the most recent list of available updates for later rendering
//
// The package is designed to be isolated from presentation concerns. It returns
// structured data (Result, Record) that callers turn into chat messages, module
// list badges or terminal output however they want.
//
// Example usage:
//
//	checker := update.NewChecker(update.WithChunkSize(250))
//	res := checker.Check(ctx, update.Request{
//	    APIKey:      key,
//	    CoreVersion: "12.331",
//	    Modules:     modules,
//	})
//	if res.Failed() {
//	    // handle res.Err
//	}
//	for _, rec := range res.Updates {
//	    // rec.Current -> rec.Latest
//	}
package update
