package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coreason/retrieval-engine/o11y"
	"github.com/coreason/retrieval-engine/scout"
)

// ContentFetcherRole grants PermFetchContent to any subject assigned it via
// RBACPolicy.AssignRole. DefaultFetchPolicy registers it on an internal
// RBACPolicy that it does not return, so no subject is assigned it there.
const ContentFetcherRole = "content-fetcher"

// DefaultFetchPolicy builds the out-of-the-box fetch authorization policy:
// an allow-all ABACPolicy (so a fresh deployment with no identity provider
// configured still serves JIT fetches) composed via AllowIfAny with an
// RBACPolicy pre-registering ContentFetcherRole. Because the ABAC leg allows
// every request, the composite allows every fetch, and since the RBACPolicy
// is not returned, roles cannot be assigned on it afterwards. The composite
// is wrapped with audit logging and a denial counter.
//
// Deployments with a real identity provider should replace the ABAC rule
// with deny-by-default conditions, or drop the ABAC leg entirely and assign
// ContentFetcherRole to known subjects.
func DefaultFetchPolicy(logger *slog.Logger) Policy {
	abacPolicy := NewABACPolicy("default-fetch-abac")
	_ = abacPolicy.AddRule(Rule{Name: "allow-all", Effect: EffectAllow, Priority: 0})

	rbacPolicy := NewRBACPolicy("default-fetch-rbac")
	_ = rbacPolicy.AddRole(Role{Name: ContentFetcherRole, Permissions: []Permission{PermFetchContent}})

	composite := NewCompositePolicy("default-fetch-policy", AllowIfAny, abacPolicy, rbacPolicy)

	hooks := Hooks{
		OnDeny: func(ctx context.Context, subject string, permission Permission, resource string) {
			o11y.Counter(ctx, "auth.fetch.denied", 1)
		},
	}

	return ApplyMiddleware(composite, WithHooks(hooks), WithAudit(logger))
}

// SubjectFunc extracts the requesting subject's identity from a
// SearchRequest's opaque user_context, for use as Authorize's subject
// argument.
type SubjectFunc func(userContext any) string

// ResourceFunc derives the resource string Authorize checks against from a
// hit's source_pointer.
type ResourceFunc func(sourcePointer map[string]any) string

// DefaultResourceOf reads sourcePointer["doc_id"], falling back to
// "unknown" when absent or not a string.
func DefaultResourceOf(sourcePointer map[string]any) string {
	if v, ok := sourcePointer["doc_id"].(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// ACLsFromSourcePointer extracts the identity tokens scout attaches under
// "acls" when the originating Hit carries ACLs (see
// scout.sourcePointerWithACLs).
func ACLsFromSourcePointer(sourcePointer map[string]any) []string {
	acls, _ := sourcePointer["acls"].([]string)
	return acls
}

// GuardFetcher wraps fetch so every just-in-time content fetch is gated
// twice: first against the originating Hit's ACLs, when present, then
// against policy's PermFetchContent decision for the request's subject
// (derived via subjectOf) and the hit's resource (derived via resourceOf).
// A denied or errored check short-circuits the fetch.
func GuardFetcher(policy Policy, subjectOf SubjectFunc, resourceOf ResourceFunc, fetch scout.FetcherHook) scout.FetcherHook {
	return func(ctx context.Context, sourcePointer map[string]any, userContext any) (*string, error) {
		subject := subjectOf(userContext)
		resource := resourceOf(sourcePointer)

		if acls := ACLsFromSourcePointer(sourcePointer); len(acls) > 0 && !containsSubject(acls, subject) {
			return nil, fmt.Errorf("auth: subject %q is not in the ACL for %q", subject, resource)
		}

		allowed, err := policy.Authorize(ctx, subject, PermFetchContent, resource)
		if err != nil {
			return nil, fmt.Errorf("auth: fetch authorization for %q: %w", resource, err)
		}
		if !allowed {
			return nil, fmt.Errorf("auth: subject %q not authorized to fetch %q", subject, resource)
		}

		return fetch(ctx, sourcePointer, userContext)
	}
}

func containsSubject(acls []string, subject string) bool {
	for _, a := range acls {
		if a == subject {
			return true
		}
	}
	return false
}
