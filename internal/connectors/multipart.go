package connectors

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
)

// newMultipartRequest собирает form-data с текстовыми полями и одним JPEG-файлом.
func (c *Client) newMultipartRequest(ctx context.Context, method, path string, cred auth.Credential, fields map[string]string, fileField, fileName string, content []byte) (*http.Request, error) {
	if len(content) == 0 {
		return nil, domain.Fail("image is empty")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, &domain.Failure{Message: fmt.Sprintf("encode form: %v", err), Cause: err}
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fileField, fileName))
	h.Set("Content-Type", "image/jpeg")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, &domain.Failure{Message: fmt.Sprintf("encode form: %v", err), Cause: err}
	}
	if _, err := part.Write(content); err != nil {
		return nil, &domain.Failure{Message: fmt.Sprintf("encode form: %v", err), Cause: err}
	}
	if err := mw.Close(); err != nil {
		return nil, &domain.Failure{Message: fmt.Sprintf("encode form: %v", err), Cause: err}
	}

	req, err := c.newRequest(ctx, method, path, cred, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

// doNoEnvelope - для эндпоинтов, где важен только HTTP-статус.
func (c *Client) doNoEnvelope(req *http.Request) error {
	resp, err := c.doer.Do(req)
	if err != nil {
		return &domain.Failure{Message: connectionMessage(err), Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		return &domain.Failure{
			Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
			Status:  resp.StatusCode,
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
