package telegram

import (
	"context"
	"fmt"
	"io"

	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"

	"github.com/dmitrijs2005/gophgram/internal/platform"
)

func (c *conn) Download(ctx context.Context, a *platform.Attachment) (io.ReadCloser, error) {
	loc, ok := a.Ref.(tg.InputFileLocationClass)
	if !ok || loc == nil {
		return nil, fmt.Errorf("telegram: attachment has no file location")
	}
	return stream(ctx, func(ctx context.Context, w io.Writer) error {
		_, err := downloader.NewDownloader().Download(c.api, loc).Stream(ctx, w)
		return translate(err)
	}), nil
}

// pipeStream is a lazy reader fed by a producer goroutine. Closing it cancels
// the producer and waits for it to stop.
type pipeStream struct {
	r      *io.PipeReader
	cancel context.CancelFunc
	done   chan struct{}
}

func stream(ctx context.Context, produce func(ctx context.Context, w io.Writer) error) *pipeStream {
	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	s := &pipeStream{r: pr, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(s.done)
		pw.CloseWithError(produce(ctx, pw))
	}()
	return s
}

func (s *pipeStream) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

func (s *pipeStream) Close() error {
	s.cancel()
	err := s.r.Close()
	<-s.done
	return err
}
