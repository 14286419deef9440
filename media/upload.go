// Package media drives Twitter's chunked media upload sequence: INIT,
// repeated APPEND, FINALIZE, and STATUS polling for attachments whose
// processing is asynchronous (video, GIF). The resulting media id is
// meant to be attached to a CreateTweet mutation's variables.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/url"
	"strconv"
	"time"

	"github.com/xactions-go/core/internal/xerrors"
	"github.com/xactions-go/core/xclient"
)

// Kind classifies the attachment being uploaded; INIT's media_type and
// media_category are both derived from it.
type Kind int

const (
	Image Kind = iota
	GIF
	Video
)

func (k Kind) mimeType() string {
	switch k {
	case GIF:
		return "image/gif"
	case Video:
		return "video/mp4"
	default:
		return "image/jpeg"
	}
}

func (k Kind) category() string {
	switch k {
	case GIF:
		return "tweet_gif"
	case Video:
		return "tweet_video"
	default:
		return "tweet_image"
	}
}

// chunkSize bounds a single APPEND segment. Twitter accepts up to 5 MiB per
// chunk; 1 MiB keeps any one APPEND request from tying up a worker-pool
// slot for too long on a slow connection.
const chunkSize = 1 << 20

// maxPollInterval bounds how long Uploader waits between STATUS polls even
// when the server's check_after_secs is absent or unreasonably large.
const maxPollInterval = 5 * time.Second

// Uploader drives the INIT/APPEND/FINALIZE/STATUS sequence against a
// single xclient.Client. A Client is already authenticated (cookies + CSRF
// cached) by the time it reaches Uploader; media upload reuses the same
// authenticated header set as every other REST call.
type Uploader struct {
	client *xclient.Client
}

// NewUploader wraps c.
func NewUploader(c *xclient.Client) *Uploader {
	return &Uploader{client: c}
}

// Upload runs INIT, chunked APPEND, FINALIZE, and (when the server reports
// async processing) STATUS polling to completion, returning the resulting
// media id string ready to attach to a tweet.
func (u *Uploader) Upload(ctx context.Context, data []byte, kind Kind) (string, error) {
	mediaID, err := u.init(ctx, len(data), kind)
	if err != nil {
		return "", err
	}
	if err := u.appendChunks(ctx, mediaID, data); err != nil {
		return "", err
	}
	processing, err := u.finalize(ctx, mediaID)
	if err != nil {
		return "", err
	}
	if processing == nil {
		return mediaID, nil
	}
	if err := u.awaitProcessing(ctx, mediaID, *processing); err != nil {
		return "", err
	}
	return mediaID, nil
}

type initResponse struct {
	MediaIDString string `json:"media_id_string"`
}

func (u *Uploader) init(ctx context.Context, totalBytes int, kind Kind) (string, error) {
	form := url.Values{}
	form.Set("command", "INIT")
	form.Set("total_bytes", strconv.Itoa(totalBytes))
	form.Set("media_type", kind.mimeType())
	form.Set("media_category", kind.category())

	body, err := u.send(ctx, "POST", "application/x-www-form-urlencoded", []byte(form.Encode()))
	if err != nil {
		return "", err
	}
	var resp initResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", xerrors.Wrap(xerrors.Corrupted, err, "media: decode INIT response")
	}
	if resp.MediaIDString == "" {
		return "", xerrors.New(xerrors.Corrupted, "media: INIT response missing media_id_string")
	}
	return resp.MediaIDString, nil
}

// appendChunks uploads data as a sequence of multipart/form-data APPEND
// requests, each carrying the next chunkSize-sized slice under an
// incrementing segment_index.
func (u *Uploader) appendChunks(ctx context.Context, mediaID string, data []byte) error {
	for segment, offset := 0, 0; offset < len(data); segment, offset = segment+1, offset+chunkSize {
		end := offset + chunkSize
		if end > len(data) {
			end = len(data)
		}

		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		if err := w.WriteField("command", "APPEND"); err != nil {
			return xerrors.Wrap(xerrors.InvalidArgument, err, "media: write APPEND command field")
		}
		if err := w.WriteField("media_id", mediaID); err != nil {
			return xerrors.Wrap(xerrors.InvalidArgument, err, "media: write APPEND media_id field")
		}
		if err := w.WriteField("segment_index", strconv.Itoa(segment)); err != nil {
			return xerrors.Wrap(xerrors.InvalidArgument, err, "media: write APPEND segment_index field")
		}
		part, err := w.CreateFormFile("media", "chunk")
		if err != nil {
			return xerrors.Wrap(xerrors.InvalidArgument, err, "media: create APPEND chunk part")
		}
		if _, err := part.Write(data[offset:end]); err != nil {
			return xerrors.Wrap(xerrors.InvalidArgument, err, "media: write APPEND chunk bytes")
		}
		if err := w.Close(); err != nil {
			return xerrors.Wrap(xerrors.InvalidArgument, err, "media: close APPEND multipart writer")
		}

		if _, err := u.send(ctx, "POST", w.FormDataContentType(), buf.Bytes()); err != nil {
			return xerrors.Wrap(xerrors.Network, err, "media: APPEND segment %d", segment)
		}
	}
	return nil
}

type finalizeResponse struct {
	ProcessingInfo *processingInfo `json:"processing_info"`
}

type processingInfo struct {
	State          string `json:"state"`
	CheckAfterSecs int    `json:"check_after_secs"`
}

// finalize returns the server's processing_info when the upload needs
// async processing (video/GIF transcoding), or nil when the media is ready
// immediately (the common case for still images).
func (u *Uploader) finalize(ctx context.Context, mediaID string) (*processingInfo, error) {
	form := url.Values{}
	form.Set("command", "FINALIZE")
	form.Set("media_id", mediaID)

	body, err := u.send(ctx, "POST", "application/x-www-form-urlencoded", []byte(form.Encode()))
	if err != nil {
		return nil, err
	}
	var resp finalizeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, xerrors.Wrap(xerrors.Corrupted, err, "media: decode FINALIZE response")
	}
	return resp.ProcessingInfo, nil
}

type statusResponse struct {
	ProcessingInfo processingInfo `json:"processing_info"`
}

// awaitProcessing polls STATUS until the server reports "succeeded",
// "failed", or the context is cancelled, sleeping check_after_secs (capped
// at maxPollInterval) between polls.
func (u *Uploader) awaitProcessing(ctx context.Context, mediaID string, first processingInfo) error {
	info := first
	for {
		switch info.State {
		case "succeeded":
			return nil
		case "failed":
			return xerrors.New(xerrors.TwitterApi, "media: processing failed for media id %s", mediaID)
		}

		wait := time.Duration(info.CheckAfterSecs) * time.Second
		if wait <= 0 || wait > maxPollInterval {
			wait = maxPollInterval
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return xerrors.Wrap(xerrors.Timeout, ctx.Err(), "media: cancelled awaiting processing for %s", mediaID)
		}

		q := url.Values{}
		q.Set("command", "STATUS")
		q.Set("media_id", mediaID)
		body, err := u.sendQuery(ctx, q)
		if err != nil {
			return err
		}
		var resp statusResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return xerrors.Wrap(xerrors.Corrupted, err, "media: decode STATUS response")
		}
		info = resp.ProcessingInfo
	}
}

// send issues an authenticated POST to the upload endpoint with the given
// body and content type, bypassing xclient.Client.REST since that method
// hardcodes application/json (unsuitable for form-urlencoded INIT/FINALIZE
// and multipart APPEND bodies).
func (u *Uploader) send(ctx context.Context, method, contentType string, body []byte) ([]byte, error) {
	headers, err := u.client.Auth.Headers(true, "")
	if err != nil {
		return nil, err
	}
	headers["Content-Type"] = contentType
	resp, err := u.client.Request(ctx, xclient.Envelope{
		Method:     method,
		URL:        "https://upload.x.com/1.1/media/upload.json",
		Headers:    headers,
		Body:       body,
		Idempotent: false,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// sendQuery issues an authenticated, idempotent GET against the upload
// endpoint with q as the query string; used for STATUS polling.
func (u *Uploader) sendQuery(ctx context.Context, q url.Values) ([]byte, error) {
	headers, err := u.client.Auth.Headers(true, "")
	if err != nil {
		return nil, err
	}
	delete(headers, "Content-Type")
	resp, err := u.client.Request(ctx, xclient.Envelope{
		Method:     "GET",
		URL:        fmt.Sprintf("https://upload.x.com/1.1/media/upload.json?%s", q.Encode()),
		Headers:    headers,
		Idempotent: true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
