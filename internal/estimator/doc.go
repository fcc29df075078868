// Package estimator composes normalization, the cache, the external packing
// service and the local fallback into a single shipping box decision.
package estimator
