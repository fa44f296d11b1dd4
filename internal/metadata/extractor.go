package metadata

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cadenza/internal/catalog"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"
)

// DefaultFormats are the audio extensions the extractor understands
var DefaultFormats = []string{".mp3", ".flac", ".wav", ".m4a"}

// Tags is the subset of embedded metadata the importer uses
type Tags struct {
	Title   string
	Artist  string
	Album   string
	Picture *Picture
}

// Picture is embedded cover art
type Picture struct {
	Data     []byte
	MIMEType string
	Ext      string
}

// Extractor derives durations and tags from audio files
type Extractor struct {
	supportedFormats []string
	logger           *logrus.Logger
	client           *http.Client
	maxDownload      int64
}

var _ catalog.DurationProber = (*Extractor)(nil)

// NewExtractor creates a new metadata extractor
func NewExtractor(supportedFormats []string, logger *logrus.Logger) *Extractor {
	if len(supportedFormats) == 0 {
		supportedFormats = DefaultFormats
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Extractor{
		supportedFormats: supportedFormats,
		logger:           logger,
		client:           &http.Client{Timeout: 60 * time.Second},
		maxDownload:      100 * 1024 * 1024,
	}
}

// ProbeFile returns the duration of a local audio file in whole seconds
func (e *Extractor) ProbeFile(filePath string) (int, error) {
	startTime := time.Now()

	seconds, err := e.calculateDuration(filePath)
	if err != nil {
		return 0, err
	}

	e.logger.WithFields(logrus.Fields{
		"filePath":       filePath,
		"duration":       seconds,
		"processingTime": time.Since(startTime),
	}).Debug("Calculated duration")

	return int(math.Round(seconds)), nil
}

// ProbeURL downloads a remote audio file to a temporary file and probes it
func (e *Extractor) ProbeURL(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("failed to fetch audio: status %d", resp.StatusCode)
	}

	ext := strings.ToLower(path.Ext(req.URL.Path))
	tmp, err := os.CreateTemp("", "cadenza-probe-*"+ext)
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, io.LimitReader(resp.Body, e.maxDownload))
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to download audio: %w", err)
	}

	return e.ProbeFile(tmp.Name())
}

// ReadTags reads embedded tags, falling back to the file name for the title
// and "Unknown Artist" for the artist.
func (e *Extractor) ReadTags(filePath string) (*Tags, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	name := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	tags := &Tags{Title: name, Artist: "Unknown Artist"}

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"filePath": filePath,
			"error":    err.Error(),
		}).Debug("No readable tags, using filename")
		return tags, nil
	}

	if title := strings.TrimSpace(metadata.Title()); title != "" {
		tags.Title = title
	}
	if artist := strings.TrimSpace(metadata.Artist()); artist != "" {
		tags.Artist = artist
	}
	tags.Album = strings.TrimSpace(metadata.Album())

	if picture := metadata.Picture(); picture != nil && len(picture.Data) > 0 {
		mimeType := picture.MIMEType
		if mimeType == "" {
			mimeType = ImageMIMEType(picture.Data)
		}
		tags.Picture = &Picture{
			Data:     picture.Data,
			MIMEType: mimeType,
			Ext:      imageExt(mimeType, picture.Ext),
		}
	}

	return tags, nil
}

// calculateDuration calculates the duration of an audio file in seconds
func (e *Extractor) calculateDuration(filePath string) (float64, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".mp3":
		return e.durationMP3(filePath)
	case ".flac":
		return durationFLAC(filePath)
	case ".wav":
		return durationWAV(filePath)
	case ".m4a":
		return durationM4A(filePath)
	default:
		return 0, fmt.Errorf("unsupported format: %s", ext)
	}
}

// MP3 duration using frame decoding; fallback to average bitrate estimation only if frames fail entirely.
func (e *Extractor) durationMP3(filePath string) (float64, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				e.logger.WithField("filePath", filePath).Debug("No decodable mp3 frames, estimating from size")
				return estimateFromFileSize(f, 192000) // assume 192 kbps
			}
			break
		}
		total += fr.Duration()
		frames++
	}
	if frames == 0 {
		return 0, fmt.Errorf("no mp3 frames")
	}
	return total.Seconds(), nil
}

// FLAC duration via STREAMINFO metadata block
func durationFLAC(filePath string) (float64, error) {
	stream, err := flac.ParseFile(filePath)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	si := stream.Info
	if si.NSamples == 0 || si.SampleRate == 0 {
		return 0, fmt.Errorf("flac stream missing sample info")
	}
	return float64(si.NSamples) / float64(si.SampleRate), nil
}

// WAV duration from the header and the PCM byte count
func durationWAV(filePath string) (float64, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("invalid wav file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return 0, fmt.Errorf("invalid wav header")
	}

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	const headerSize = 44
	pcmBytes := st.Size() - headerSize
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	frameSize := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if frameSize <= 0 {
		return 0, fmt.Errorf("invalid sample frame size")
	}
	return float64(pcmBytes/frameSize) / float64(dec.SampleRate), nil
}

// M4A duration from the timescale and duration of the moov/mvhd atom.
func durationM4A(filePath string) (float64, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	moovSize, err := seekAtom(f, "moov", -1)
	if err != nil {
		return 0, err
	}
	if _, err := seekAtom(f, "mvhd", moovSize); err != nil {
		return 0, err
	}

	var version [1]byte
	if _, err := io.ReadFull(f, version[:]); err != nil {
		return 0, err
	}
	skip := int64(3 + 4 + 4) // flags, creation and modification times
	if version[0] == 1 {
		skip = 3 + 8 + 8
	}
	if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
		return 0, err
	}

	var timescale uint32
	if err := binary.Read(f, binary.BigEndian, &timescale); err != nil {
		return 0, err
	}
	var units uint64
	if version[0] == 1 {
		err = binary.Read(f, binary.BigEndian, &units)
	} else {
		var units32 uint32
		err = binary.Read(f, binary.BigEndian, &units32)
		units = uint64(units32)
	}
	if err != nil {
		return 0, err
	}
	if timescale == 0 {
		return 0, fmt.Errorf("invalid timescale")
	}
	return float64(units) / float64(timescale), nil
}

// seekAtom advances r past the header of the next atom named name within
// limit bytes (negative for unbounded) and returns that atom's body size.
func seekAtom(r io.ReadSeeker, name string, limit int64) (int64, error) {
	for read := int64(0); limit < 0 || read < limit; {
		var head [8]byte
		if _, err := io.ReadFull(r, head[:]); err != nil {
			return 0, fmt.Errorf("%s atom not found: %w", name, err)
		}
		size := int64(binary.BigEndian.Uint32(head[0:4]))
		if size < 8 {
			return 0, fmt.Errorf("invalid atom size")
		}
		if string(head[4:8]) == name {
			return size - 8, nil
		}
		if _, err := r.Seek(size-8, io.SeekCurrent); err != nil {
			return 0, err
		}
		read += size
	}
	return 0, fmt.Errorf("%s atom not found", name)
}

// estimateFromFileSize provides last-resort estimation if parsing fails.
func estimateFromFileSize(f *os.File, bitrate int) (float64, error) {
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if bitrate <= 0 {
		return 0, fmt.Errorf("invalid bitrate")
	}
	return float64(st.Size()*8) / float64(bitrate), nil
}

// ImageMIMEType guesses MIME type from image data
func ImageMIMEType(data []byte) string {
	if len(data) < 4 {
		return "application/octet-stream"
	}

	if data[0] == 0xFF && data[1] == 0xD8 {
		return "image/jpeg"
	}
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 {
		return "image/gif"
	}

	return "application/octet-stream"
}

func imageExt(mimeType, tagExt string) string {
	switch mimeType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	}
	if tagExt != "" {
		return "." + strings.TrimPrefix(strings.ToLower(tagExt), ".")
	}
	return ".jpg"
}

// IsAudioFile checks if a file is a supported audio format
func (e *Extractor) IsAudioFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, format := range e.supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// ContentType returns the MIME type for an audio file
func ContentType(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}
