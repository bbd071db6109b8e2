// Package lblaug converts per-image object annotations (bounding boxes,
// keypoints) between user-facing coordinate formats and the canonical
// pixel-space representation consumed by geometric augmentation pipelines,
// keeping auxiliary label fields (class ids, scores, ...) attached to the
// rows they describe while coordinates are transformed.
package lblaug
