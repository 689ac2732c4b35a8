// Package client provides a Go SDK for the netquery API of the connection
// record store.
//
// The netquery API accepts structured queries over recorded network
// connections and returns matching rows, or one summarised row per group
// when the query groups. It also serves the active connection chart for a
// condition.
//
// # Quick Start
//
// Create a client and run a query:
//
//	c := client.New()
//	rows, err := c.Query(ctx, &netquery.Query{
//	    Query: netquery.Condition{"domain": netquery.In{"example.com"}},
//	})
//
// Use custom configuration:
//
//	c := client.New(
//	    client.WithBaseURL("http://127.0.0.1:817/api/v1"),
//	    client.WithHTTPClient(customHTTPClient),
//	    client.WithQueryValidation(true),
//	)
//
// # Charts
//
// ActiveConnectionChart returns the number of active connections per time
// bucket for the given condition:
//
//	chart, err := c.ActiveConnectionChart(ctx, netquery.Condition{"country": "AT"})
//
// # Errors
//
// Non-2xx responses are returned as *APIError carrying the status code and
// the message reported by the store.
package client
