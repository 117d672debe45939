package dataprocessing

import (
	"strings"

	"p2pulse/internal/config"
	"p2pulse/pkg/contracts/domain"
)

// StatusClassifier maps raw exchange status strings onto canonical
// buckets. Buckets are evaluated in configuration order and the first
// match wins; anything unmatched is classified unknown.
type StatusClassifier struct {
	buckets []statusBucket
}

type statusBucket struct {
	class   domain.StatusClass
	matches map[string]struct{}
}

// NewStatusClassifier builds a classifier from the ordered bucket list.
// Matching is case-insensitive on trimmed values.
func NewStatusClassifier(buckets []config.StatusBucket) *StatusClassifier {
	c := &StatusClassifier{buckets: make([]statusBucket, 0, len(buckets))}
	for _, b := range buckets {
		sb := statusBucket{
			class:   domain.StatusClass(b.Tag),
			matches: make(map[string]struct{}, len(b.Matches)),
		}
		for _, m := range b.Matches {
			sb.matches[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
		}
		c.buckets = append(c.buckets, sb)
	}
	return c
}

// Classify returns the bucket for a raw status string.
func (c *StatusClassifier) Classify(raw string) domain.StatusClass {
	key := strings.ToLower(strings.TrimSpace(raw))
	for _, b := range c.buckets {
		if _, ok := b.matches[key]; ok {
			return b.class
		}
	}
	return domain.StatusUnknown
}

// ClassifyAll stamps the status class on every record in place.
func (c *StatusClassifier) ClassifyAll(txs []domain.Transaction) {
	for i := range txs {
		txs[i].StatusClass = c.Classify(txs[i].RawStatus)
	}
}
