package io

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/OpenListTeam/wazero-hostio/common/bytespool"
	"go.uber.org/zap"
)

// Relay 在后台 goroutine 中把 reader 的数据拷贝到管道写端。
// 每写完一块以及源读完时都会触发 avail。
type Relay struct {
	src   io.Reader
	dst   io.WriteCloser
	avail *Event
	log   *zap.Logger

	done      chan struct{}
	finished  chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
}

// StartRelay 接管 dst 的所有权，但不接管 src。
func StartRelay(src io.Reader, dst io.WriteCloser, avail *Event, log *zap.Logger) *Relay {
	if log == nil {
		log = Logger()
	}
	r := &Relay{
		src:      src,
		dst:      dst,
		avail:    avail,
		log:      log,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Relay) run() {
	defer close(r.finished)
	defer r.avail.Set()
	defer r.closeDst()

	buf := bytespool.Get(DefaultBufferSize)
	defer bytespool.Put(buf)

	for {
		select {
		case <-r.done:
			return
		default:
		}

		n, err := r.src.Read(buf)
		if n > 0 {
			if _, werr := r.dst.Write(buf[:n]); werr != nil {
				if !errors.Is(werr, os.ErrClosed) {
					r.log.Warn("relay write failed", zap.Error(werr))
				}
				return
			}
			r.avail.Set()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.log.Warn("relay source failed", zap.Error(err))
			}
			return
		}
	}
}

func (r *Relay) closeDst() {
	r.closeOnce.Do(func() {
		r.closeErr = r.dst.Close()
	})
}

// Done is closed once the relay goroutine has exited.
func (r *Relay) Done() <-chan struct{} { return r.finished }

// Close 停止转发并关闭管道写端。阻塞在 src 读取上的 goroutine 会在本次读取返回后退出。
func (r *Relay) Close() error {
	r.stopOnce.Do(func() { close(r.done) })
	r.closeDst()
	if errors.Is(r.closeErr, os.ErrClosed) {
		return nil
	}
	return r.closeErr
}
