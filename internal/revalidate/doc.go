// Package revalidate coordinates on-demand cache invalidation.
//
// A revalidation request names the request paths whose rendered output
// must be regenerated, or names nothing to regenerate every route. Paths
// are strictly validated before they touch the route table: each segment
// must match a conservative allow-list, so traversal sequences and shell
// metacharacters never reach the resolver. A batch bumps the shared
// invalidation epoch exactly once, and only one batch runs at a time.
package revalidate
