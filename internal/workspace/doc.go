// Package workspace owns the conversion destination directory.
//
// Prepare creates the pre_data, post_data and diff_data subfolders,
// ArtifactPath names every artifact file, and Lock takes an exclusive flock
// so two conversions never write into the same destination at once.
// CleanStale removes temporary files left behind by interrupted runs.
package workspace
