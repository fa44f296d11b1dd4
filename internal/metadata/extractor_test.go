package metadata

import (
	"bytes"
	"context"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeWAV writes a silent mono 16-bit file of the given number of samples.
func writeWAV(t *testing.T, path string, sampleRate, samples int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create wav: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, samples),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("Failed to write samples: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Failed to finalize wav: %v", err)
	}
}

// writeM4A writes the minimal atoms needed to read the movie duration.
func writeM4A(t *testing.T, path string, timescale, units uint32) {
	t.Helper()

	var mvhd bytes.Buffer
	mvhd.Write([]byte{0, 0, 0, 0}) // version 0, flags
	binary.Write(&mvhd, binary.BigEndian, uint32(0))
	binary.Write(&mvhd, binary.BigEndian, uint32(0))
	binary.Write(&mvhd, binary.BigEndian, timescale)
	binary.Write(&mvhd, binary.BigEndian, units)
	mvhd.Write(make([]byte, 80))

	atom := func(name string, body []byte) []byte {
		var b bytes.Buffer
		binary.Write(&b, binary.BigEndian, uint32(len(body)+8))
		b.WriteString(name)
		b.Write(body)
		return b.Bytes()
	}

	var file bytes.Buffer
	file.Write(atom("ftyp", []byte("M4A \x00\x00\x00\x00")))
	file.Write(atom("free", make([]byte, 12)))
	file.Write(atom("moov", append(atom("iods", make([]byte, 4)), atom("mvhd", mvhd.Bytes())...)))

	if err := os.WriteFile(path, file.Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write m4a: %v", err)
	}
}

func TestProbeFile(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(nil, nil)

	tests := []struct {
		name     string
		write    func(path string)
		file     string
		expected int
	}{
		{"wav whole seconds", func(p string) { writeWAV(t, p, 8000, 8000*3) }, "three.wav", 3},
		{"wav rounds up", func(p string) { writeWAV(t, p, 8000, 20800) }, "rounded.wav", 3},
		{"wav rounds down", func(p string) { writeWAV(t, p, 8000, 19000) }, "down.wav", 2},
		{"m4a", func(p string) { writeM4A(t, p, 1000, 185400) }, "track.m4a", 185},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			tt.write(path)

			got, err := e.ProbeFile(path)
			if err != nil {
				t.Fatalf("Failed to probe: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %d seconds, got %d", tt.expected, got)
			}
		})
	}
}

func TestProbeFileErrors(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(nil, nil)

	unsupported := filepath.Join(dir, "notes.txt")
	os.WriteFile(unsupported, []byte("hello"), 0644)
	if _, err := e.ProbeFile(unsupported); err == nil {
		t.Error("Expected error for unsupported format")
	}

	corrupt := filepath.Join(dir, "corrupt.wav")
	os.WriteFile(corrupt, []byte("not a wav"), 0644)
	if _, err := e.ProbeFile(corrupt); err == nil {
		t.Error("Expected error for corrupt wav")
	}

	if _, err := e.ProbeFile(filepath.Join(dir, "missing.flac")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestProbeURL(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "remote.wav")
	writeWAV(t, source, 8000, 8000*5)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/media/remote.wav" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, source)
	}))
	defer srv.Close()

	e := NewExtractor(nil, nil)

	got, err := e.ProbeURL(context.Background(), srv.URL+"/media/remote.wav")
	if err != nil {
		t.Fatalf("Failed to probe URL: %v", err)
	}
	if got != 5 {
		t.Errorf("Expected 5 seconds, got %d", got)
	}

	if _, err := e.ProbeURL(context.Background(), srv.URL+"/missing.wav"); err == nil {
		t.Error("Expected error for 404")
	}
}

func TestReadTagsFallsBackToFilename(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Morning Song.wav")
	writeWAV(t, path, 8000, 800)

	tags, err := NewExtractor(nil, nil).ReadTags(path)
	if err != nil {
		t.Fatalf("Failed to read tags: %v", err)
	}
	if tags.Title != "Morning Song" {
		t.Errorf("Expected title from filename, got %q", tags.Title)
	}
	if tags.Artist != "Unknown Artist" {
		t.Errorf("Expected Unknown Artist, got %q", tags.Artist)
	}
	if tags.Picture != nil {
		t.Error("Expected no picture")
	}
}

func TestImageMIMEType(t *testing.T) {
	tests := map[string][]byte{
		"image/jpeg":               {0xFF, 0xD8, 0xFF, 0xE0},
		"image/png":                {0x89, 0x50, 0x4E, 0x47, 0x0D},
		"image/gif":                []byte("GIF89a"),
		"application/octet-stream": {0x00, 0x01},
	}
	for expected, data := range tests {
		if got := ImageMIMEType(data); got != expected {
			t.Errorf("Expected %s, got %s", expected, got)
		}
	}
}

func TestIsAudioFileAndContentType(t *testing.T) {
	e := NewExtractor([]string{".mp3", ".flac"}, nil)
	if !e.IsAudioFile("/music/a.MP3") {
		t.Error("Expected .MP3 to be an audio file")
	}
	if e.IsAudioFile("/music/a.wav") {
		t.Error("Expected .wav to be rejected by a restricted extractor")
	}
	if ContentType("x.flac") != "audio/flac" || ContentType("x.bin") != "application/octet-stream" {
		t.Error("Unexpected content type mapping")
	}
}
