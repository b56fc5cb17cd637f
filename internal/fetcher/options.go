package fetcher

import (
	"path/filepath"
	"time"

	"github.com/desertthunder/soundsync/internal/shared"
)

const (
	DefaultBinary         = "yt-dlp"
	DefaultAudioFormat    = "mp3"
	DefaultAudioQuality   = "128K"
	DefaultOutputTemplate = "%(artist,uploader)s - %(title)s.%(ext)s"
)

// Options is the fixed invocation policy for the fetch tool.
type Options struct {
	Binary         string
	AudioFormat    string
	AudioQuality   string
	OutputTemplate string
	Timeout        time.Duration
	ExtraArgs      []string
}

// OptionsFromConfig builds [Options] from the [fetcher] config section.
func OptionsFromConfig(c shared.FetcherConfig) Options {
	return Options{
		Binary:         c.Binary,
		AudioFormat:    c.AudioFormat,
		AudioQuality:   c.AudioQuality,
		OutputTemplate: c.OutputTemplate,
		Timeout:        c.FetchTimeout(),
		ExtraArgs:      c.ExtraArgs,
	}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.Binary == "" {
		o.Binary = DefaultBinary
	}
	if o.AudioFormat == "" {
		o.AudioFormat = DefaultAudioFormat
	}
	if o.AudioQuality == "" {
		o.AudioQuality = DefaultAudioQuality
	}
	if o.OutputTemplate == "" {
		o.OutputTemplate = DefaultOutputTemplate
	}
	if o.Timeout <= 0 {
		o.Timeout = shared.DefaultFetchTimeout
	}
	return o
}

// BuildArgs returns the argument list for fetching url into dir.
//
// The url always comes last, after "--", so a value starting with a dash is never read as a flag.
func BuildArgs(o Options, dir, url string) []string {
	o = o.withDefaults()

	args := []string{
		"-x",
		"-f", "bestaudio",
		"--audio-format", o.AudioFormat,
		"--audio-quality", o.AudioQuality,
		"--embed-thumbnail",
		"--embed-metadata",
		"--continue",
		"--newline",
		"-o", filepath.Join(dir, o.OutputTemplate),
	}
	args = append(args, o.ExtraArgs...)
	return append(args, "--", url)
}
