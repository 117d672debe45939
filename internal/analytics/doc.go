// Package analytics computes the per-partition metric tables: grouped
// volume and fee aggregates, unit price distributions, time-bucketed
// counts, whale and outlier flags, rolling risk ratios, counterparty
// and session summaries. Metrics compute independently; a failing
// metric records a diagnostic and the rest proceed.
package analytics
