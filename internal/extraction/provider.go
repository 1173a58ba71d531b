package extraction

import (
	"strings"

	"certguard/internal/credential/models"
)

// Provider reads a document by matching its file name against priority rules.
type Provider struct {
	rules    []Rule
	fallback Fallback
}

type Option func(*Provider)

// WithFallback replaces the default degraded fallback.
func WithFallback(f Fallback) Option {
	return func(p *Provider) {
		if f != nil {
			p.fallback = f
		}
	}
}

func NewProvider(rules []Rule, opts ...Option) *Provider {
	p := &Provider{
		rules:    make([]Rule, len(rules)),
		fallback: Degraded{},
	}
	for i, rule := range rules {
		kws := make([]string, len(rule.Keywords))
		for j, kw := range rule.Keywords {
			kws[j] = strings.ToLower(kw)
		}
		rule.Keywords = kws
		p.rules[i] = rule
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extract never fails: when no rule matches, the fallback decides.
func (p *Provider) Extract(doc Document, view models.RecordView) Result {
	name := strings.ToLower(doc.Name)
	for _, rule := range p.rules {
		if rule.Matches(name) {
			res := rule.Result
			res.Rule = rule.Name
			return res
		}
	}
	return p.fallback.Fallback(doc, view)
}

// Rules returns the active rule set in priority order.
func (p *Provider) Rules() []Rule {
	out := make([]Rule, len(p.rules))
	copy(out, p.rules)
	return out
}

// FallbackName reports the configured fallback strategy.
func (p *Provider) FallbackName() string {
	return p.fallback.Name()
}
