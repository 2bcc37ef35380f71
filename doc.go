// Package vehicleinsurance predicts whether an existing health insurance
// customer will also buy vehicle insurance.
//
// A fixed feature chain (gender mapping, standard and min-max scaling,
// one-hot encoding, column clean-up) feeds a random forest. The fitted chain
// is persisted as a single compressed artifact per version and served by a
// validating prediction orchestrator.
//
// Layout:
//
//	cmd/vehicleinsurance   CLI: train, serve, predict, version
//	cmd/profile            pprof harness for fitting and scoring
//	internal/api           HTTP service (chi)
//	internal/dataset       CSV loading and type inference
//	internal/training      split, fit, score and persist
//	pkg/features           chain stages
//	pkg/model              decision tree and random forest
//	pkg/pipeline           the transformer chain and its codec
//	pkg/validation         input schema and coercion
//	pkg/predict            prediction orchestrator
//	pkg/artifact           versioned artifact store (local, S3, GCS)
//	pkg/compression        artifact compression
package vehicleinsurance
