// Package message defines the notification value routed by notiroute.
//
// A Message carries a severity Level, an optional title, a Detail body, an
// optional hierarchical Component, an Author and a unix timestamp in
// milliseconds. Messages are immutable once built; the router only reads
// them and clones them when it synthesizes failure reports.
package message
