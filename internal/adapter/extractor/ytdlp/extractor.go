// Package ytdlp invokes the yt-dlp binary in metadata-only mode. No media
// bytes are transferred; the tool dumps a single JSON document describing
// the video and its format descriptors.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/okhta/vidlink/internal/domain"
	"github.com/okhta/vidlink/internal/port"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type Extractor struct {
	binaryPath  string
	cookiesFile string
	timeout     time.Duration
}

// NewExtractor creates an extractor that shells out to binaryPath.
// cookiesFile may be empty. Every Extract call is bounded by timeout.
func NewExtractor(binaryPath, cookiesFile string, timeout time.Duration) *Extractor {
	if binaryPath == "" {
		binaryPath = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Extractor{
		binaryPath:  binaryPath,
		cookiesFile: cookiesFile,
		timeout:     timeout,
	}
}

func (e *Extractor) Extract(ctx context.Context, sourceURL string) (*domain.RawMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := []string{
		"--dump-single-json",
		"--no-warnings",
		"--no-playlist",
		"--force-ipv4",
		"--user-agent", userAgent,
	}
	if e.cookiesFile != "" {
		args = append(args, "--cookies", e.cookiesFile)
	}
	args = append(args, sourceURL)

	cmd := exec.CommandContext(ctx, e.binaryPath, args...)
	// Killing yt-dlp leaves any subprocess it spawned holding our pipes.
	// Without a wait delay Run would block until that orphan exits too.
	cmd.WaitDelay = 2 * time.Second

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("extraction timed out after %s", e.timeout)
		}
		if msg := firstStderrLine(stderr.String()); msg != "" {
			return nil, fmt.Errorf("extractor failed: %s", msg)
		}
		return nil, fmt.Errorf("extractor failed: %w", err)
	}

	raw, err := ParseDump(out.Bytes())
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// ParseDump decodes a --dump-single-json document.
func ParseDump(data []byte) (*domain.RawMetadata, error) {
	var raw domain.RawMetadata
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed extractor output: %w", err)
	}
	return &raw, nil
}

// firstStderrLine picks the first non-empty stderr line as the diagnostic.
// yt-dlp prefixes real failures with "ERROR:"; prefer such a line if any.
func firstStderrLine(stderr string) string {
	lines := strings.Split(stderr, "\n")
	first := ""
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "ERROR:") {
			return line
		}
		if first == "" {
			first = line
		}
	}
	return first
}

var _ port.Extractor = (*Extractor)(nil)
