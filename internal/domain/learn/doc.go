// Package learn holds the small numeric learners behind personality typing
// and outlier scoring: a standard scaler, PCA, k-means and an isolation
// forest. Every fitted model is a plain struct that encodes to JSON, and
// fitting is deterministic for a fixed seed.
package learn
