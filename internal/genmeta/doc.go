// Package genmeta extracts and decomposes generation metadata blocks.
//
// Extract cleans a decoded candidate, locates the generation block by its
// anchor keywords and validates it against the settings grammar
// ("Steps: N, Sampler: name"). Split breaks a flattened block into
// positive prompt, negative prompt, settings and model. A Reducer strips an
// ordered list of boilerplate fragments from the positive prompt to surface
// its distinguishing terms. Parse and FromBlobs chain the three into a
// Record, which is either fully populated or fully sentinel.
package genmeta
