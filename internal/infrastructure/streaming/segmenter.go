package streaming

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"streamqa/internal/core/domain"
	"streamqa/pkg/validation"

	"go.uber.org/zap"
)

const (
	ManifestName = "stream.m3u8"

	ManifestContentType = "application/vnd.apple.mpegurl"
	SegmentContentType  = "video/MP2T"

	segmentPrefix = "segment"
	segmentSuffix = ".ts"
)

// AssetKind tells the manifest apart from media segments.
type AssetKind int

const (
	AssetUnknown AssetKind = iota
	AssetManifest
	AssetSegment
)

// Segmenter serves a fixed VOD playlist and dummy TS segments.
type Segmenter struct {
	segmentCount    int
	segmentSize     int
	segmentDuration time.Duration
	manifest        string
	logger          *zap.SugaredLogger
}

// NewSegmenter creates a new segmenter
func NewSegmenter(count, size int, segmentDuration time.Duration, logger *zap.SugaredLogger) *Segmenter {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Segmenter{
		segmentCount:    count,
		segmentSize:     size,
		segmentDuration: segmentDuration,
		logger:          logger,
	}
	s.manifest = s.generatePlaylist()
	return s
}

// SegmentName returns the playlist entry for the 1-based segment index.
func SegmentName(index int) string {
	return fmt.Sprintf("%s%d%s", segmentPrefix, index, segmentSuffix)
}

// ParseAssetName classifies a request path element. Segment indices are
// returned as parsed; range checks belong to Segment. An index too large
// for int is still a segment and comes back as 0, which Segment rejects.
func ParseAssetName(name string) (AssetKind, int) {
	if name == ManifestName {
		return AssetManifest, 0
	}
	if !strings.HasPrefix(name, segmentPrefix) || !strings.HasSuffix(name, segmentSuffix) {
		return AssetUnknown, 0
	}

	digits := strings.TrimSuffix(strings.TrimPrefix(name, segmentPrefix), segmentSuffix)
	if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return AssetUnknown, 0
	}
	index, err := strconv.Atoi(digits)
	if err != nil {
		return AssetSegment, 0
	}
	return AssetSegment, index
}

// generatePlaylist generates the HLS playlist (M3U8)
func (s *Segmenter) generatePlaylist() string {
	var b strings.Builder

	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", int(s.segmentDuration.Seconds()))
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")

	for i := 1; i <= s.segmentCount; i++ {
		fmt.Fprintf(&b, "#EXTINF:%.1f,\n", s.segmentDuration.Seconds())
		fmt.Fprintf(&b, "%s\n", SegmentName(i))
	}

	b.WriteString("#EXT-X-ENDLIST\n")
	return b.String()
}

func (s *Segmenter) Manifest() string {
	return s.manifest
}

// Segment returns the dummy payload for a 1-based index.
func (s *Segmenter) Segment(index int) ([]byte, error) {
	if err := validation.ValidateSegmentIndex(index, s.segmentCount); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSegmentNotFound, err)
	}

	s.logger.Debugw("serving segment", "index", index, "size", s.segmentSize)
	return make([]byte, s.segmentSize), nil
}

func (s *Segmenter) SegmentCount() int {
	return s.segmentCount
}
