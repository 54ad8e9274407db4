package extractor

import (
	"context"
	"io"
	"sync"

	"golang.org/x/sync/semaphore"
)

// limited bounds the number of concurrent extractor subprocesses
type limited struct {
	next Resolver
	sem  *semaphore.Weighted
}

// Limit wraps r so at most n subprocesses run at once. A download holds its
// slot until the stream is closed. n <= 0 returns r unchanged.
func Limit(r Resolver, n int) Resolver {
	if n <= 0 {
		return r
	}
	return &limited{next: r, sem: semaphore.NewWeighted(int64(n))}
}

func (l *limited) acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

func (l *limited) release() {
	l.sem.Release(1)
}

func (l *limited) FetchMetadata(ctx context.Context, url string) (*MediaInfo, error) {
	if err := l.acquire(ctx); err != nil {
		return nil, err
	}
	defer l.release()
	return l.next.FetchMetadata(ctx, url)
}

func (l *limited) OpenDownloadStream(ctx context.Context, url, formatID string) (io.ReadCloser, error) {
	if err := l.acquire(ctx); err != nil {
		return nil, err
	}
	stream, err := l.next.OpenDownloadStream(ctx, url, formatID)
	if err != nil {
		l.release()
		return nil, err
	}
	return &releasingStream{ReadCloser: stream, release: l.release}, nil
}

type releasingStream struct {
	io.ReadCloser
	release func()
	once    sync.Once
}

func (s *releasingStream) Close() error {
	err := s.ReadCloser.Close()
	s.once.Do(s.release)
	return err
}
