package scanner

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// StreamInfo holds technical audio information computed by ffprobe.
type StreamInfo struct {
	Duration      float64
	Bitrate       int // kbps
	SampleRate    int // Hz
	Channels      int
	BitsPerSample int
	Codec         string
}

var (
	ffprobeMu        sync.Mutex
	ffprobeAvailable *bool
	ffprobeCheckedAt time.Time
)

const ffprobeCheckInterval = 5 * time.Minute

// ffprobeReady reports whether the ffprobe binary is on PATH. The
// lookup is cached so a scan does not hit the filesystem per file.
func ffprobeReady() bool {
	ffprobeMu.Lock()
	defer ffprobeMu.Unlock()

	if ffprobeAvailable != nil && time.Since(ffprobeCheckedAt) < ffprobeCheckInterval {
		return *ffprobeAvailable
	}

	_, err := exec.LookPath("ffprobe")
	available := err == nil
	ffprobeAvailable = &available
	ffprobeCheckedAt = time.Now()
	return available
}

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
}

type ffprobeStream struct {
	CodecName     string `json:"codec_name"`
	CodecType     string `json:"codec_type"`
	SampleRate    string `json:"sample_rate"`
	Channels      int    `json:"channels"`
	BitsPerSample int    `json:"bits_per_sample"`
	Duration      string `json:"duration"`
	BitRate       string `json:"bit_rate"`
}

// probeStreamInfo runs ffprobe against the file and extracts the first
// audio stream's technical fields.
func probeStreamInfo(path string) (*StreamInfo, error) {
	cmd := exec.Command("ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var probed ffprobeOutput
	if err := json.Unmarshal(output, &probed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output for %s: %w", path, err)
	}

	var audio *ffprobeStream
	for i := range probed.Streams {
		if probed.Streams[i].CodecType == "audio" {
			audio = &probed.Streams[i]
			break
		}
	}
	if audio == nil {
		return nil, fmt.Errorf("no audio stream in %s", path)
	}

	info := &StreamInfo{
		Codec:         audio.CodecName,
		Channels:      audio.Channels,
		BitsPerSample: audio.BitsPerSample,
	}

	if rate, err := strconv.Atoi(audio.SampleRate); err == nil {
		info.SampleRate = rate
	}

	// Stream-level values win; the container format is the fallback.
	if dur, err := strconv.ParseFloat(audio.Duration, 64); err == nil && dur > 0 {
		info.Duration = dur
	} else if dur, err := strconv.ParseFloat(probed.Format.Duration, 64); err == nil {
		info.Duration = dur
	}

	bitrate := audio.BitRate
	if bitrate == "" {
		bitrate = probed.Format.BitRate
	}
	if bps, err := strconv.Atoi(bitrate); err == nil && bps > 0 {
		info.Bitrate = bps / 1000
	}

	return info, nil
}
