package asset

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Prefix is the URL path template images are served under.
const Prefix = "/assets/"

const defaultMaxBytes = 10 << 20 // 10MB

// MaxPixels bounds the decoded size of an image. Headers are checked before
// any pixel data is decoded.
const MaxPixels = 64 << 20

var (
	ErrTooLarge       = errors.New("image exceeds size limit")
	ErrUnsupportedURL = errors.New("unsupported image url")
	ErrForbiddenHost  = errors.New("image host not allowed")
)

// Loader fetches background images from the template store, http(s) URLs or
// base64 data URIs and decodes PNG, JPEG, GIF and WebP.
type Loader struct {
	dir          string
	client       *http.Client
	maxBytes     int64
	maxSide      int
	allowPrivate bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithPrivateNetworks lets http(s) URLs reach loopback, private and
// link-local addresses.
func WithPrivateNetworks() Option {
	return func(l *Loader) { l.allowPrivate = true }
}

// NewLoader creates a loader reading Prefix URLs from dir. Images larger than
// maxSide on either axis are scaled down to fit; maxSide <= 0 disables that.
// Remote fetches refuse non-public addresses unless WithPrivateNetworks is
// given.
func NewLoader(dir string, maxBytes int64, maxSide int, opts ...Option) *Loader {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	l := &Loader{dir: dir, maxBytes: maxBytes, maxSide: maxSide}
	for _, opt := range opts {
		opt(l)
	}
	l.client = newClient(l.allowPrivate)
	return l
}

// newClient returns an http client whose dialer checks every resolved
// address, redirects included. No proxy is used so the check sees the real
// peer.
func newClient(allowPrivate bool) *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	if !allowPrivate {
		dialer.Control = publicOnly
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &http.Client{Transport: transport}
}

// publicOnly is a net.Dialer Control hook rejecting addresses that are not
// publicly routable.
func publicOnly(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrForbiddenHost, address)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrForbiddenHost, address)
	}
	ip = ip.Unmap()
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() {
		slog.Warn("refused image fetch", "network", network, "address", address)
		return fmt.Errorf("%w: %s", ErrForbiddenHost, ip)
	}
	return nil
}

// Load fetches and decodes the image at rawURL.
func (l *Loader) Load(ctx context.Context, rawURL string) (image.Image, error) {
	rc, err := l.open(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, l.maxBytes)
	}

	return Decode(data, l.maxSide)
}

// Decode decodes a PNG, JPEG, GIF or WebP image and fits it to maxSide.
// Images whose header declares more than MaxPixels are refused undecoded.
func Decode(data []byte, maxSide int) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	slog.Debug("image decoded", "format", format, "width", b.Dx(), "height", b.Dy(), "bytes", len(data))
	return Fit(img, maxSide), nil
}

func (l *Loader) open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if strings.HasPrefix(rawURL, "data:") {
		data, err := decodeDataURI(rawURL)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	switch {
	case u.Scheme == "" && strings.HasPrefix(u.Path, Prefix):
		// Clean against a rooted path so ".." cannot leave the store.
		name := path.Clean("/" + strings.TrimPrefix(u.Path, Prefix))
		f, err := os.Open(filepath.Join(l.dir, filepath.FromSlash(name)))
		if err != nil {
			return nil, fmt.Errorf("open template: %w", err)
		}
		return f, nil
	case u.Scheme == "http" || u.Scheme == "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch image: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
		}
		return resp.Body, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, rawURL)
}

// decodeDataURI returns the payload of a base64 "data:" URI.
func decodeDataURI(raw string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("%w: data uri must be base64", ErrUnsupportedURL)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}
	return data, nil
}

// Fit scales img down so neither side exceeds maxSide, keeping the aspect
// ratio. Smaller images are returned as is.
func Fit(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return img
	}
	scale := float64(maxSide) / float64(max(w, h))
	dst := image.NewRGBA(image.Rect(0, 0, max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
