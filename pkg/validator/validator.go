package validator

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Policy selects how strictly a submitted URL is checked.
type Policy string

const (
	// PolicySyntactic only checks the shape of the URL against urlPattern.
	PolicySyntactic Policy = "syntactic"

	// PolicyResolvable additionally requires the host to resolve in DNS.
	PolicyResolvable Policy = "resolvable"
)

// urlPattern accepts http(s) URLs with a dotted host, a 2-6 letter TLD,
// an optional port and an optional path.
var urlPattern = regexp.MustCompile(`^(https?:\/\/)([a-zA-Z0-9-]+\.)+[a-zA-Z]{2,6}(:[0-9]{1,5})?(\/.*)?$`)

// HostResolver looks up the addresses of a host.
// *net.Resolver satisfies it; tests substitute a fake.
type HostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Validator checks candidate URLs according to a Policy.
// It keeps no state between calls and is safe for concurrent use.
type Validator struct {
	policy   Policy
	resolver HostResolver
	timeout  time.Duration
}

// Option customises a Validator.
type Option func(*Validator)

// WithResolver replaces the DNS resolver used by PolicyResolvable.
func WithResolver(resolver HostResolver) Option {
	return func(v *Validator) {
		v.resolver = resolver
	}
}

// WithTimeout bounds each host lookup.
func WithTimeout(timeout time.Duration) Option {
	return func(v *Validator) {
		v.timeout = timeout
	}
}

// New creates a Validator for the given policy.
func New(policy Policy, opts ...Option) (*Validator, error) {
	switch policy {
	case PolicySyntactic, PolicyResolvable:
	case "":
		policy = PolicySyntactic
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}

	v := &Validator{
		policy:   policy,
		resolver: net.DefaultResolver,
		timeout:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(v)
	}

	return v, nil
}

// Policy reports the policy this validator enforces.
func (v *Validator) Policy() Policy {
	return v.policy
}

// Validate returns nil if the candidate is acceptable under the configured policy.
// Every rejection wraps ErrInvalidURL.
func (v *Validator) Validate(ctx context.Context, candidate string) error {
	if err := ValidateURL(candidate); err != nil {
		return err
	}

	if v.policy != PolicyResolvable {
		return nil
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	// Any resolver failure, including the timeout, counts as invalid input
	addrs, err := v.resolver.LookupHost(lookupCtx, parsed.Hostname())
	if err != nil || len(addrs) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidURL, ErrUnresolvable)
	}

	return nil
}

// ValidateURL checks a URL against the syntactic rules only.
func ValidateURL(candidate string) error {
	if strings.TrimSpace(candidate) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidURL, ErrEmptyURL)
	}

	if !urlPattern.MatchString(candidate) {
		return ErrInvalidURL
	}

	return nil
}

// IsValidURL is the boolean form of ValidateURL.
func IsValidURL(candidate string) bool {
	return ValidateURL(candidate) == nil
}
