package service

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// AssetConfig configures the Cloudinary-compatible image host
type AssetConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadPreset string
	Folder       string
	BaseURL      string
	Placeholder  string
	Timeout      time.Duration
}

// AssetUploader pushes product images to the asset host
type AssetUploader struct {
	cfg    AssetConfig
	client *http.Client
	now    func() time.Time
	logger *zap.Logger
}

// NewAssetUploader creates an uploader with a bounded request timeout
func NewAssetUploader(cfg AssetConfig) *AssetUploader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cloudinary.com/v1_1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &AssetUploader{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
		logger: util.GetLogger(),
	}
}

// Upload stores content and returns its public URL. Without a configured
// host, or without any way to authenticate, the placeholder URL is
// returned and nothing is sent.
func (u *AssetUploader) Upload(ctx context.Context, filename, contentType string, content []byte) (string, error) {
	ctx, span := util.StartSpan(ctx, "AssetUploader.Upload")
	defer span.End()

	if len(content) == 0 {
		return "", fmt.Errorf("%w: image file is empty", models.ErrValidation)
	}
	if u.cfg.CloudName == "" {
		util.AssetUploadsTotal.WithLabelValues("placeholder").Inc()
		return u.cfg.Placeholder, nil
	}

	fields := map[string]string{}
	if u.cfg.Folder != "" {
		fields["folder"] = u.cfg.Folder
	}
	if u.cfg.UploadPreset != "" {
		fields["upload_preset"] = u.cfg.UploadPreset
	} else {
		if u.cfg.APIKey == "" || u.cfg.APISecret == "" {
			util.AssetUploadsTotal.WithLabelValues("placeholder").Inc()
			return u.cfg.Placeholder, nil
		}
		timestamp := strconv.FormatInt(u.now().Unix(), 10)
		fields["timestamp"] = timestamp
		fields["api_key"] = u.cfg.APIKey
		fields["signature"] = u.sign(timestamp)
	}

	body, formType, err := multipartBody(fields, filename, contentType, content)
	if err != nil {
		return "", util.RecordError(span, err)
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", u.cfg.BaseURL, u.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", util.RecordError(span, err)
	}
	req.Header.Set("Content-Type", formType)

	started := time.Now()
	resp, err := u.client.Do(req)
	util.AssetUploadLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		util.AssetUploadsTotal.WithLabelValues("failed").Inc()
		return "", util.RecordError(span, fmt.Errorf("%w: image upload: %v", models.ErrUpstream, err))
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		util.AssetUploadsTotal.WithLabelValues("failed").Inc()
		u.logger.Error("Image upload rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(raw)))
		return "", util.RecordError(span, fmt.Errorf("%w: image host returned %d", models.ErrUpstream, resp.StatusCode))
	}

	var result struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		util.AssetUploadsTotal.WithLabelValues("failed").Inc()
		return "", util.RecordError(span, fmt.Errorf("%w: decode upload response: %v", models.ErrUpstream, err))
	}

	util.AssetUploadsTotal.WithLabelValues("ok").Inc()
	switch {
	case result.SecureURL != "":
		return result.SecureURL, nil
	case result.URL != "":
		return result.URL, nil
	default:
		return u.cfg.Placeholder, nil
	}
}

// sign builds the signature over the signed parameters in name order
func (u *AssetUploader) sign(timestamp string) string {
	var base string
	if u.cfg.Folder != "" {
		base = "folder=" + u.cfg.Folder + "&"
	}
	base += "timestamp=" + timestamp + u.cfg.APISecret
	sum := sha1.Sum([]byte(base))
	return hex.EncodeToString(sum[:])
}

func multipartBody(fields map[string]string, filename, contentType string, content []byte) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	if filename == "" {
		filename = "product.jpg"
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
