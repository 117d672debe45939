// Package dataprocessing loads raw P2P trade exports and normalizes them
// into domain transactions: CSV ingestion, header mapping, locale-tolerant
// numeric parsing, timezone-aware time features, status classification,
// pre-filtering and data quality patches.
package dataprocessing
