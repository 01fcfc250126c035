// Package heyloyalty provides a client for the Heyloyalty list and member API.
//
// Heyloyalty is a marketing-automation service that keeps mailing lists and
// the members subscribed to them. This package covers the part of the REST
// API needed to manage subscriptions: fetching lists, looking up a member by
// email, creating members and patching their fields.
//
// # Usage
//
//	logger := zerolog.New(os.Stdout)
//	client, err := heyloyalty.NewClient("api-key", "api-secret", logger,
//		heyloyalty.WithTimeout(15*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	result, err := client.UpsertMember(ctx, "ann@example.com", "Ann", 1234,
//		heyloyalty.Fields{"interests": {"3", "7"}},
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Caching
//
// ListAll caches the complete list collection and ListByID caches each list
// it fetched, both for the lifetime of the Client. Pass forceRefresh to
// ListAll or call Invalidate to drop them.
//
// # Form fields
//
// Member fields are sent form encoded. A field with no value, or with only
// empty values, is sent as the clear marker "name[]=" so Heyloyalty empties
// the field instead of leaving it unchanged.
//
// # Error Handling
//
// Any response body carrying an "error" key is reported as a *RemoteError,
// whatever the HTTP status. Other non-2xx responses become *APIError.
// Lookups that find nothing return a nil value and a nil error.
//
//	var remoteErr *heyloyalty.RemoteError
//	if errors.As(err, &remoteErr) {
//		// Heyloyalty rejected the request
//	}
package heyloyalty
