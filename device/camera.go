package device

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SnapshotCamera pulls single JPEG frames from an HTTP snapshot endpoint, the kind
// exposed by IP cameras and webcam bridges.
type SnapshotCamera struct {
	url string
	c   *http.Client
	log *logrus.Entry
}

func NewSnapshotCamera(url string, timeout time.Duration, log *logrus.Entry) *SnapshotCamera {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &SnapshotCamera{
		url: url,
		c:   &http.Client{Timeout: timeout},
		log: log.WithFields(logrus.Fields{"component": "device", "device": "camera"}),
	}
}

// Open probes the endpoint once so a missing camera fails at start.
func (s *SnapshotCamera) Open(ctx context.Context) error {
	if s.url == "" {
		return errors.New("camera: no snapshot url configured")
	}
	if _, err := s.Capture(ctx); err != nil {
		return err
	}
	s.log.WithField("url", s.url).Info("camera opened")
	return nil
}

func (s *SnapshotCamera) Capture(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "camera request")
	}
	resp, err := s.c.Do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrCaptureFailed, "camera: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(ErrCaptureFailed, "camera: %s", resp.Status)
	}
	frame, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(ErrCaptureFailed, "camera read: %v", err)
	}
	if len(frame) == 0 {
		return nil, errors.Wrap(ErrCaptureFailed, "camera: empty frame")
	}
	return frame, nil
}

func (s *SnapshotCamera) Close() error { return nil }
