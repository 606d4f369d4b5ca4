package curling

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid"
)

type formPart struct {
	name  string
	value string
	path  string
}

func (p formPart) isFile() bool { return p.path != "" }

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// checkFormParts makes sure every file part is still readable.
func checkFormParts(parts []formPart) error {
	for _, p := range parts {
		if !p.isFile() {
			continue
		}
		if err := checkFormFile(p.path); err != nil {
			return err
		}
	}
	return nil
}

func checkFormFile(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMultipart, err)
	}
	if fi.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrMultipart, path)
	}
	return nil
}

func newBoundary() string {
	return "curling-" + uuid.Must(uuid.NewV4()).String()
}

// newMultipartBody streams parts as multipart/form-data. Files are opened
// when their part is written, so the body can be rebuilt for each attempt.
func newMultipartBody(parts []formPart, boundary string) (io.ReadCloser, string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	if err := mw.SetBoundary(boundary); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMultipart, err)
	}

	go func() {
		pw.CloseWithError(writeParts(mw, parts))
	}()

	return pr, mw.FormDataContentType(), nil
}

func writeParts(mw *multipart.Writer, parts []formPart) error {
	for _, p := range parts {
		if !p.isFile() {
			if err := mw.WriteField(p.name, p.value); err != nil {
				return err
			}
			continue
		}
		if err := writeFilePart(mw, p); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeFilePart(mw *multipart.Writer, p formPart) error {
	f, err := os.Open(p.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMultipart, err)
	}
	defer f.Close()

	filename := filepath.Base(p.path)
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(p.name), quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)

	w, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
