// Package transcode talks to the external video transcoding service: it
// creates direct uploads, reads back upload and asset state, builds public
// image and transcript URLs, and verifies callback signatures.
package transcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sougata-github/next-play/internal/config"
)

type Client struct {
	apiBaseURL   string
	imageBaseURL string
	trackBaseURL string
	tokenID      string
	tokenSecret  string
	http         *http.Client
}

func NewClient(cfg config.TranscodeConfig) *Client {
	return &Client{
		apiBaseURL:   cfg.APIBaseURL,
		imageBaseURL: cfg.ImageBaseURL,
		trackBaseURL: cfg.TrackBaseURL,
		tokenID:      cfg.TokenID,
		tokenSecret:  cfg.TokenSecret,
		http:         &http.Client{Timeout: 30 * time.Second},
	}
}

// Upload is a direct upload slot created for the browser to PUT the file to.
type Upload struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Status  string `json:"status"`
	AssetID string `json:"asset_id"`
}

// Asset mirrors the fields of the service's asset resource we care about.
// Playback ids arrive as objects, the same shape the webhook delivers.
type Asset struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	Duration    float64 `json:"duration"`
	PlaybackIDs []struct {
		ID string `json:"id"`
	} `json:"playback_ids"`
	UploadID string `json:"upload_id"`
}

type uploadRequest struct {
	CORSOrigin string `json:"cors_origin"`
	Playback   string `json:"playback_policy"`
	Subtitles  bool   `json:"generate_subtitles"`
}

// CreateUpload reserves a direct upload slot with automatic subtitle
// generation enabled.
func (c *Client) CreateUpload(ctx context.Context, corsOrigin string) (*Upload, error) {
	body, err := json.Marshal(uploadRequest{
		CORSOrigin: corsOrigin,
		Playback:   "public",
		Subtitles:  true,
	})
	if err != nil {
		return nil, err
	}
	var out Upload
	if err := c.do(ctx, http.MethodPost, "/video/v1/uploads", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetUpload(ctx context.Context, uploadID string) (*Upload, error) {
	var out Upload
	if err := c.do(ctx, http.MethodGet, "/video/v1/uploads/"+uploadID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetAsset(ctx context.Context, assetID string) (*Asset, error) {
	var out Asset
	if err := c.do(ctx, http.MethodGet, "/video/v1/assets/"+assetID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteAsset(ctx context.Context, assetID string) error {
	return c.do(ctx, http.MethodDelete, "/video/v1/assets/"+assetID, nil, nil)
}

// ThumbnailURL is the service's generated still for a playback id.
func (c *Client) ThumbnailURL(playbackID string) string {
	return fmt.Sprintf("%s/%s/thumbnail.jpg", c.imageBaseURL, playbackID)
}

// PreviewURL is the service's animated preview for a playback id.
func (c *Client) PreviewURL(playbackID string) string {
	return fmt.Sprintf("%s/%s/animated.gif", c.imageBaseURL, playbackID)
}

// TranscriptURL is the plain-text subtitle track for a playback id.
func (c *Client) TranscriptURL(playbackID, trackID string) string {
	return fmt.Sprintf("%s/%s/text/%s.txt", c.trackBaseURL, playbackID, trackID)
}

// FetchTranscript downloads the subtitle text for a finished track.
func (c *Client) FetchTranscript(ctx context.Context, playbackID, trackID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.TranscriptURL(playbackID, trackID), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcode: transcript fetch returned %d", resp.StatusCode)
	}
	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

func (c *Client) do(ctx context.Context, method, path string, body *bytes.Reader, out interface{}) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.apiBaseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.apiBaseURL+path, nil)
	}
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.tokenID, c.tokenSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("transcode: %s %s returned %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	// The service wraps resources in a data envelope.
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return err
	}
	return json.Unmarshal(envelope.Data, out)
}
