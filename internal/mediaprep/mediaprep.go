// Package mediaprep turns stored media locators into byte buffers that
// satisfy a target network's binary constraints. It is a pure transform:
// nothing here touches local state.
package mediaprep

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/image/draw"

	"github.com/unipost/unipost-api/pkg/errs"
)

// BlueskyMaxImageBytes is the hard per-image cap Bluesky enforces on blobs.
const BlueskyMaxImageBytes = 1_000_000

const (
	maxWidth     = 2048
	startQuality = 85
	qualityStep  = 10
	minQuality   = 30
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// ResolveURL absolutizes an app-relative media locator against the app base
// URL. Absolute locators pass through untouched.
func ResolveURL(appBaseURL, location string) string {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return location
	}
	base := strings.TrimSuffix(appBaseURL, "/")
	if !strings.HasPrefix(location, "/") {
		location = "/" + location
	}
	return base + location
}

// Fetch downloads the media bytes and reports the response content type.
func Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("error creating request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, "", errs.Wrap(err, errs.CodeTimeout, "could not download media")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", errs.Newf(errs.CodeRemoteRejected, "media download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("error reading media body: %w", err)
	}

	return data, resp.Header.Get("Content-Type"), nil
}

// Compress re-encodes an image until it fits maxBytes. Images wider than
// 2048px are first downscaled to 2048 preserving aspect ratio. PNG inputs get
// one lossless attempt before falling to the JPEG quality ladder (85, then
// -10 per step). Below quality 30 the function fails instead of returning an
// oversized or destroyed image. The returned mime reflects the encoding
// actually used.
func Compress(data []byte, mime string, maxBytes int) ([]byte, string, error) {
	if len(data) <= maxBytes {
		return data, mime, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errs.Wrap(err, errs.CodeUnsupportedContent, "could not decode image for compression")
	}

	img = downscale(img)

	if strings.Contains(strings.ToLower(mime), "png") {
		var buf bytes.Buffer
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err == nil && buf.Len() <= maxBytes {
			return buf.Bytes(), "image/png", nil
		}
	}

	for quality := startQuality; quality >= minQuality; quality -= qualityStep {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, "", fmt.Errorf("error encoding image at quality %d: %w", quality, err)
		}
		if buf.Len() <= maxBytes {
			return buf.Bytes(), "image/jpeg", nil
		}
	}

	return nil, "", errs.Newf(errs.CodeValidation,
		"cannot compress image below %d bytes without destroying it", maxBytes)
}

func downscale(img image.Image) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= maxWidth {
		return img
	}

	height := bounds.Dy() * maxWidth / bounds.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
