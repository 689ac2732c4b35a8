// Package netquery defines the wire model of the netquery record store:
// conditions, selects, queries, result rows and chart buckets.
//
// A Condition maps a connection field to a predicate:
//
//	cond := netquery.Condition{}
//	cond.Merge("domain", netquery.In{"example.com", "example.org"})
//	cond.Merge("domain", netquery.Contains("exam"))
//
// Once a field carries more than one predicate its entry becomes a sequence
// ([]any) in merge order. Queries marshal to the JSON shape accepted by the
// store:
//
//	{
//	  "select":  ["domain", {"$count": {"field": "*", "as": "totalCount"}}],
//	  "query":   {"domain": {"$in": ["example.com"]}},
//	  "groupBy": ["domain"],
//	  "orderBy": [{"field": "totalCount", "desc": true}]
//	}
package netquery
