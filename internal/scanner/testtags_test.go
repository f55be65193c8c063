package scanner

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// id3Frame builds one ID3v2.3 frame with a plain big-endian size.
func id3Frame(id string, payload []byte) []byte {
	frame := make([]byte, 10+len(payload))
	copy(frame, id)
	binary.BigEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[10:], payload)
	return frame
}

// textFrame builds a latin-1 text information frame.
func textFrame(id, value string) []byte {
	payload := append([]byte{0x00}, []byte(value)...)
	return id3Frame(id, payload)
}

// lyricsFrame builds an unsynchronized-lyrics frame with an empty
// description.
func lyricsFrame(text string) []byte {
	payload := []byte{0x00}
	payload = append(payload, []byte("eng")...)
	payload = append(payload, 0x00)
	payload = append(payload, []byte(text)...)
	return id3Frame("USLT", payload)
}

// syncsafe encodes a size in the 7-bits-per-byte ID3 header form.
func syncsafe(size int) []byte {
	return []byte{
		byte(size >> 21 & 0x7F),
		byte(size >> 14 & 0x7F),
		byte(size >> 7 & 0x7F),
		byte(size & 0x7F),
	}
}

// writeTaggedFile writes a minimal MP3 consisting of an ID3v2.3 tag and
// some filler bytes. The frames map holds text frames by ID; lyrics, if
// non-empty, is embedded as a USLT frame.
func writeTaggedFile(t *testing.T, dir, name string, frames map[string]string, lyrics string) string {
	t.Helper()

	var body []byte
	for id, value := range frames {
		body = append(body, textFrame(id, value)...)
	}
	if lyrics != "" {
		body = append(body, lyricsFrame(lyrics)...)
	}

	header := append([]byte("ID3"), 0x03, 0x00, 0x00)
	header = append(header, syncsafe(len(body))...)

	data := append(header, body...)
	data = append(data, make([]byte, 64)...) // stand-in for audio frames

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// writeCorruptFile writes bytes no tag parser accepts.
func writeCorruptFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("not an audio file at all"), 0o644))
	return path
}
