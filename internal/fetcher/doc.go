// Package fetcher supervises the external download tool for one user's library.
//
// # Invocation
//
// [BuildArgs] turns [Options] into the tool's command line: audio-only extraction of the best
// available stream, transcoding to a fixed lossy format and bitrate, embedded artwork and tags,
// resumable partial files and an "{artist or uploader} - {title}" output name rooted at the
// user's directory.
//
// # Output classification
//
// Both output streams are read line by line while the process runs (carriage returns count as
// line breaks). Each line becomes an [Event] through [Classify]:
//
//   - [PlaylistStarted]: the tool announced how many items the source holds
//   - [ItemDownloaded]: a new audio file was written
//   - [ItemSkipped]: the tool found the file already present
//   - [PlaylistFinished]: the tool reached the end of a playlist
//   - [Unclassified]: anything else
//
// The patterns follow the tool's human-readable output, which is not a stable interface.
// The tool's own "already downloaded" check is independent of the track store's dedup key;
// a file deleted from disk may be skipped upstream and never re-imported.
//
// # Supervision
//
// [Executor.Fetch] enforces a wall-clock timeout. On expiry the process is killed and
// [shared.ErrFetchTimeout] is returned. A non-zero exit yields an [*ExitError] carrying the
// tail of stderr, which matches [shared.ErrFetchFailed] under errors.Is.
package fetcher
