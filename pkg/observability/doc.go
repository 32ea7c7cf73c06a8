/*
Package observability turns engine lifecycle hooks into logs and Prometheus metrics.

Both helpers return a domain.LifecycleHooks value; combine them with
LifecycleHooks.Combine and pass the result to the wizard with WithLifecycleHooks.
*/
package observability
