package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// QualityUnknown is the sentinel label for formats without a resolvable
// vertical resolution. It sorts below every numeric quality.
const QualityUnknown = "Unknown"

// DefaultPremiumCutoff is the vertical resolution above which a format
// variant is flagged premium (720 means 1080p and up are premium).
const DefaultPremiumCutoff = 720

// Metadata is the normalized extraction result attached to a ready job.
type Metadata struct {
	Title     string          `json:"title"`
	Duration  float64         `json:"duration"`
	Thumbnail string          `json:"thumbnail"`
	ViewCount int64           `json:"view_count"`
	Uploader  string          `json:"uploader"`
	Platform  string          `json:"platform"`
	Formats   []FormatVariant `json:"formats"`
}

// FormatVariant is one downloadable rendition of the resolved media.
type FormatVariant struct {
	FormatID  string `json:"formatId"`
	Quality   string `json:"quality"`
	FileSize  int64  `json:"filesize"`
	URL       string `json:"url"`
	IsPremium bool   `json:"isPremium"`
}

// RawMetadata mirrors the single-JSON dump produced by the external
// extractor. Every field is optional upstream; normalization supplies
// defaults instead of failing.
type RawMetadata struct {
	Title     string      `json:"title"`
	Duration  float64     `json:"duration"`
	Thumbnail string      `json:"thumbnail"`
	ViewCount int64       `json:"view_count"`
	Uploader  string      `json:"uploader"`
	Extractor string      `json:"extractor"`
	Formats   []RawFormat `json:"formats"`
}

type RawFormat struct {
	FormatID string `json:"format_id"`
	Ext      string `json:"ext"`
	ACodec   string `json:"acodec"`
	VCodec   string `json:"vcodec"`
	Height   int    `json:"height"`
	// Sizes come back as floats for some extractors.
	FileSize       float64 `json:"filesize"`
	FileSizeApprox float64 `json:"filesize_approx"`
	URL            string  `json:"url"`
}

// Normalize turns raw extractor output into the metadata served to clients.
// Only muxed mp4 formats (audio and video tracks both present) survive;
// duplicates by quality collapse to the first occurrence and the result is
// ordered by descending quality. Missing upstream fields degrade to
// defaults.
func Normalize(raw *RawMetadata, premiumCutoff int) *Metadata {
	if premiumCutoff <= 0 {
		premiumCutoff = DefaultPremiumCutoff
	}

	var formats []FormatVariant
	for _, f := range raw.Formats {
		if !f.isDownloadable() {
			continue
		}
		size := f.FileSize
		if size == 0 {
			size = f.FileSizeApprox
		}
		formats = append(formats, FormatVariant{
			FormatID:  f.FormatID,
			Quality:   QualityLabel(f.Height),
			FileSize:  int64(size),
			URL:       f.URL,
			IsPremium: f.Height > premiumCutoff,
		})
	}

	meta := &Metadata{
		Title:     raw.Title,
		Duration:  raw.Duration,
		Thumbnail: raw.Thumbnail,
		ViewCount: raw.ViewCount,
		Uploader:  raw.Uploader,
		Platform:  raw.Extractor,
		Formats:   NormalizeFormats(formats),
	}
	if meta.Title == "" {
		meta.Title = "Unknown Title"
	}
	if meta.Uploader == "" {
		meta.Uploader = "Unknown"
	}
	if meta.Platform == "" {
		meta.Platform = "web"
	}
	return meta
}

// isDownloadable keeps only variants carrying both an audio and a video
// track in the target delivery container.
func (f *RawFormat) isDownloadable() bool {
	return f.Ext == "mp4" && f.ACodec != "none" && f.VCodec != "none"
}

// QualityLabel derives the height-based quality label, e.g. 1080 -> "1080p".
func QualityLabel(height int) string {
	if height <= 0 {
		return QualityUnknown
	}
	return fmt.Sprintf("%dp", height)
}

// NormalizeFormats de-duplicates variants by quality (first occurrence
// wins) and sorts the survivors by descending numeric quality, with the
// unknown sentinel last. Applying it twice yields the same list.
func NormalizeFormats(formats []FormatVariant) []FormatVariant {
	seen := make(map[string]bool, len(formats))
	unique := make([]FormatVariant, 0, len(formats))
	for _, f := range formats {
		if seen[f.Quality] {
			continue
		}
		seen[f.Quality] = true
		unique = append(unique, f)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return qualityRank(unique[i].Quality) > qualityRank(unique[j].Quality)
	})
	return unique
}

// qualityRank maps a quality label to its sortable height. Unknown ranks
// below any real resolution.
func qualityRank(quality string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(quality, "p"))
	if err != nil {
		return -1
	}
	return n
}
