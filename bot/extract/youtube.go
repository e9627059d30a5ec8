package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// YouTube Innertube player endpoint, queried with the ANDROID client identity.

const (
	DefaultInnertubeURL = "https://www.youtube.com/youtubei/v1/player"
	androidVersion      = "20.10.38"
	androidSDKVersion   = 30
	androidUserAgent    = "com.google.android.youtube/" + androidVersion + " (Linux; U; Android 11) gzip"
	maxPlayerBody       = 3 * 1024 * 1024
)

type playerRequest struct {
	VideoID        string        `json:"videoId"`
	Context        playerContext `json:"context"`
	RacyCheckOk    bool          `json:"racyCheckOk"`
	ContentCheckOk bool          `json:"contentCheckOk"`
}

type playerContext struct {
	Client playerClient `json:"client"`
}

type playerClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

type playerResponse struct {
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	VideoDetails *struct {
		VideoID  string   `json:"videoId"`
		Title    string   `json:"title"`
		Keywords []string `json:"keywords"`
	} `json:"videoDetails"`
}

// SourceError is a failure reported by the video platform, with its own wording.
type SourceError struct {
	Status string
	Reason string
}

func (e *SourceError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return "video is not playable (" + e.Status + ")"
}

// InnertubeSource reads title and keywords from YouTube's player endpoint.
type InnertubeSource struct {
	endpoint string
	client   *http.Client
}

// NewInnertubeSource returns a Source backed by endpoint. Empty values select defaults.
func NewInnertubeSource(endpoint string, client *http.Client) *InnertubeSource {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultInnertubeURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &InnertubeSource{endpoint: endpoint, client: client}
}

// Fetch implements Source. address must be a canonical watch URL.
func (s *InnertubeSource) Fetch(ctx context.Context, address string) (Metadata, error) {
	videoID, err := videoIDFrom(address)
	if err != nil {
		return Metadata{}, err
	}

	body, err := json.Marshal(playerRequest{
		VideoID: videoID,
		Context: playerContext{Client: playerClient{
			ClientName:        "ANDROID",
			ClientVersion:     androidVersion,
			AndroidSdkVersion: androidSDKVersion,
			Hl:                "en",
			Gl:                "US",
		}},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return Metadata{}, fmt.Errorf("encode player request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"?prettyPrint=false", bytes.NewReader(body))
	if err != nil {
		return Metadata{}, fmt.Errorf("build player request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", androidUserAgent)
	req.Header.Set("X-Youtube-Client-Name", "3")
	req.Header.Set("X-Youtube-Client-Version", androidVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return Metadata{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Metadata{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPlayerBody))
	if err != nil {
		return Metadata{}, fmt.Errorf("read player response: %w", err)
	}

	var pr playerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return Metadata{}, fmt.Errorf("malformed player response: %w", err)
	}
	// Playability only covers streaming. Age-restricted, upcoming and sign-in gated
	// videos still carry their details.
	if d := pr.VideoDetails; d != nil && strings.TrimSpace(d.Title) != "" {
		return Metadata{Title: d.Title, Tags: d.Keywords}, nil
	}
	if ps := pr.PlayabilityStatus; ps != nil && ps.Status != "" && ps.Status != "OK" {
		return Metadata{}, &SourceError{Status: ps.Status, Reason: ps.Reason}
	}
	if pr.VideoDetails == nil {
		return Metadata{}, &SourceError{Status: "MISSING_DETAILS", Reason: "video details are missing from the response"}
	}
	return Metadata{
		Title: pr.VideoDetails.Title,
		Tags:  pr.VideoDetails.Keywords,
	}, nil
}

func videoIDFrom(address string) (string, error) {
	u, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("parse address: %w", err)
	}
	id := u.Query().Get("v")
	if id == "" {
		return "", fmt.Errorf("address %q has no video id", address)
	}
	return id, nil
}
