package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/pkg/domain"
)

// MaxUploadBytes bounds a multipart request carrying audio.
const MaxUploadBytes = 32 << 20

// inputBody is the JSON shape of POST /next, /validate and /submit.
type inputBody struct {
	Values domain.Fields `json:"values"`
	Branch string        `json:"branch,omitempty"`
}

// decodeInput reads a JSON body, or a multipart form whose "values" part holds the
// JSON values, an optional "branch" part, and one file part per audio field.
func decodeInput(r *http.Request) (intake.Input, error) {
	var in intake.Input
	if r.Body == nil || r.ContentLength == 0 {
		return in, nil
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return decodeMultipart(r)
	}

	var body inputBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return in, nil
		}
		return in, fmt.Errorf("invalid request body: %w", err)
	}
	in.Values = body.Values
	in.Branch = domain.Branch(body.Branch)
	return in, validBranch(in.Branch)
}

func decodeMultipart(r *http.Request) (intake.Input, error) {
	var in intake.Input
	r.Body = http.MaxBytesReader(nil, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		return in, fmt.Errorf("invalid multipart body: %w", err)
	}
	form := r.MultipartForm
	if raw := form.Value["values"]; len(raw) > 0 && raw[0] != "" {
		if err := json.Unmarshal([]byte(raw[0]), &in.Values); err != nil {
			return in, fmt.Errorf("invalid values part: %w", err)
		}
	}
	if b := form.Value["branch"]; len(b) > 0 {
		in.Branch = domain.Branch(b[0])
	}
	for field, headers := range form.File {
		if len(headers) == 0 {
			continue
		}
		h := headers[0]
		f, err := h.Open()
		if err != nil {
			return in, fmt.Errorf("failed to open %s: %w", field, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return in, fmt.Errorf("failed to read %s: %w", field, err)
		}
		if in.Files == nil {
			in.Files = make(map[string]domain.Attachment)
		}
		in.Files[field] = domain.Attachment{
			Field:       field,
			Filename:    h.Filename,
			ContentType: h.Header.Get("Content-Type"),
			Data:        data,
		}
	}
	return in, validBranch(in.Branch)
}

func validBranch(b domain.Branch) error {
	if b != "" && !b.Valid() {
		return fmt.Errorf("unknown branch %q", b)
	}
	return nil
}
