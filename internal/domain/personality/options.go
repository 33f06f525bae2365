package personality

import "github.com/okian/spendlens/pkg/logger"

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRules replaces the fallback rules.
func WithRules(rules []Rule) Option {
	return func(c *Classifier) {
		if len(rules) > 0 {
			c.rules = rules
		}
	}
}

// WithClusterArchetypes sets the cluster index to archetype table.
// Indices past the end, and unknown ids, map to Balanced.
func WithClusterArchetypes(ids []string) Option {
	return func(c *Classifier) {
		if len(ids) > 0 {
			c.clusterMap = append([]string(nil), ids...)
		}
	}
}
