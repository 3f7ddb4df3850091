// Package sdk is a thin HTTP client for a retrievex aggregation service.
//
// Simple usage:
//
//	client, err := sdk.New(
//		sdk.WithApp("search-hub"),
//		sdk.WithToken(jwtToken),
//	)
//	docs, _, err := client.Retrieve(ctx, "How do I reset my credentials?", "")
//
// Advanced usage with per-service controls:
//
//	client, err := sdk.New(
//		sdk.WithApp("search-hub"),
//		sdk.WithToken(jwtToken),
//		sdk.WithServices("KB", "TICKETS"),
//		sdk.WithServiceMaxDocuments(map[string]int{"KB": 5, "TICKETS": 3}),
//		sdk.WithServiceConfidenceThresholds(map[string]float64{"KB": 0.9}),
//		sdk.WithRerank(5, 0.8),
//	)
package sdk
