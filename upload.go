package postdesk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/eringen/postdesk/content"
)

const (
	maxImageWidth = 1600
	jpegQuality   = 82
	uploadsPrefix = "/uploads/"

	maxNameAttempts = 1000
)

// UploadError reports a rejected or failed image upload.
type UploadError struct {
	Reason string
	Err    error
	// Internal marks failures of the server rather than of the input.
	Internal bool
}

func (e *UploadError) Error() string {
	if e.Err != nil && !e.Internal {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *UploadError) Unwrap() error { return e.Err }

func (e *UploadError) status() int {
	if e.Internal {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// processImage decodes an image from src, resizes it down to maxImageWidth
// and encodes it as JPEG. The returned record has no filename yet.
func processImage(src io.Reader, originalName string) (Upload, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return Upload{}, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = maxImageWidth, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Upload{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return Upload{
		OriginalName: originalName,
		Width:        w,
		Height:       h,
		Size:         buf.Len(),
		UploadedAt:   time.Now().UTC(),
	}, buf.Bytes(), nil
}

// uploadBase is the URL-safe stem of a client file name.
func uploadBase(original string) string {
	base := content.Slugify(strings.TrimSuffix(original, filepath.Ext(original)))
	if base == "" {
		base = "image"
	}
	return base
}

// createUploadFile picks the first free name of the form base.jpg,
// base-2.jpg, ... that is neither on record nor on disk, and creates the
// file exclusively so concurrent uploads never share a name.
func (a *App) createUploadFile(ctx context.Context, base string) (string, *os.File, error) {
	for n := 1; n <= maxNameAttempts; n++ {
		name := base + ".jpg"
		if n > 1 {
			name = fmt.Sprintf("%s-%d.jpg", base, n)
		}
		taken, err := a.Store.UploadExists(ctx, name)
		if err != nil {
			return "", nil, err
		}
		if taken {
			continue
		}
		f, err := os.OpenFile(filepath.Join(a.Config.UploadDir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", nil, err
		}
		return name, f, nil
	}
	return "", nil, fmt.Errorf("no free file name for %q", base)
}

// storeUpload validates, re-encodes, writes and records an uploaded image.
func (a *App) storeUpload(ctx context.Context, file *multipart.FileHeader) (Upload, error) {
	if file.Size > a.Config.MaxUploadBytes {
		return Upload{}, &UploadError{Reason: fmt.Sprintf("file too large (max %d bytes)", a.Config.MaxUploadBytes)}
	}
	if ct := file.Header.Get(echo.HeaderContentType); !strings.HasPrefix(ct, "image/") {
		return Upload{}, &UploadError{Reason: "only image files are allowed"}
	}

	src, err := file.Open()
	if err != nil {
		return Upload{}, &UploadError{Reason: "read upload", Err: err, Internal: true}
	}
	defer src.Close()

	up, data, err := processImage(io.LimitReader(src, a.Config.MaxUploadBytes), file.Filename)
	if err != nil {
		return Upload{}, &UploadError{Reason: "invalid image", Err: err}
	}

	if err := os.MkdirAll(a.Config.UploadDir, 0o755); err != nil {
		return Upload{}, &UploadError{Reason: "create upload directory", Err: err, Internal: true}
	}
	name, f, err := a.createUploadFile(ctx, uploadBase(file.Filename))
	if err != nil {
		return Upload{}, &UploadError{Reason: "create image file", Err: err, Internal: true}
	}
	path := f.Name()
	_, werr := f.Write(data)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(path)
		return Upload{}, &UploadError{Reason: "write image", Err: werr, Internal: true}
	}

	up.Filename = name
	if err := a.Store.InsertUpload(ctx, up); err != nil {
		os.Remove(path)
		return Upload{}, &UploadError{Reason: "record image", Err: err, Internal: true}
	}
	a.Log.Info("image uploaded", zap.String("file", name), zap.Int("bytes", up.Size))
	return up, nil
}

// recordUpload counts the outcome of an upload attempt.
func (a *App) recordUpload(err error) {
	switch code, _ := statusFor(err); {
	case err == nil:
		a.metrics.uploaded("ok")
	case code >= http.StatusInternalServerError:
		a.metrics.uploaded("failed")
	default:
		a.metrics.uploaded("rejected")
	}
}

func (a *App) handleUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		err = &UploadError{Reason: "no image file provided"}
		a.recordUpload(err)
		return a.jsonError(c, err)
	}
	up, err := a.storeUpload(c.Request().Context(), file)
	a.recordUpload(err)
	if err != nil {
		return a.jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": up.URL()})
}
