// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package logs

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/confighub/cub-explorer/internal/clierr"
	"github.com/confighub/cub-explorer/pkg/resource"
)

const (
	initialBackoff    = 250 * time.Millisecond
	maxBackoff        = 2 * time.Second
	scannerInitialBuf = 64 * 1024
	scannerMaxBuf     = 1024 * 1024
)

// watch streams one container until the session ends or the stream closes.
func (a *Aggregator) watch(s *session, r resource.Resource, container string) {
	defer a.wg.Done()
	defer a.taskDone(s.key)

	log := a.logger.With(
		zap.String("namespace", r.Namespace),
		zap.String("pod", r.Name),
		zap.String("container", container))
	color := Color(container)
	opts := a.opts.streamOptions()

	backoff := initialBackoff
	for {
		if s.ctx.Err() != nil {
			return
		}

		stream, err := a.streamer.StreamLogs(s.ctx, r.Context, r.Namespace, r.Name, container, opts)
		if err != nil {
			if s.ctx.Err() != nil || clierr.IsCanceled(err) {
				return
			}
			if isRetryable(err) {
				log.Debug("log stream unavailable yet; retrying", zap.Error(err), zap.Duration("backoff", backoff))
				a.metrics.RecordLogStreamRetry(s.ctx)
				if !sleep(s.ctx, backoff) {
					return
				}
				backoff = nextBackoff(backoff)
				continue
			}
			log.Warn("log stream failed", zap.String("class", clierr.ClassifyError(err)), zap.Error(err))
			a.push(s, Event{
				Container: container,
				Color:     color,
				Timestamp: a.now(),
				Message:   "log stream unavailable: " + err.Error(),
				Synthetic: true,
			})
			return
		}

		backoff = initialBackoff
		scanErr := a.scan(s, stream, container, color)
		_ = stream.Close()

		switch {
		case s.ctx.Err() != nil:
			return
		case scanErr != nil && isRetryable(scanErr):
			log.Debug("log stream ended transiently; retrying", zap.Error(scanErr), zap.Duration("backoff", backoff))
			a.metrics.RecordLogStreamRetry(s.ctx)
			if !sleep(s.ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
		case scanErr != nil:
			log.Warn("log stream read failed", zap.Error(scanErr))
			return
		default:
			log.Debug("log stream finished")
			return
		}
	}
}

// scan pushes every line of stream. Cancelling the session closes the
// stream so a blocked read returns.
func (a *Aggregator) scan(s *session, stream io.ReadCloser, container, color string) error {
	stop := context.AfterFunc(s.ctx, func() { _ = stream.Close() })
	defer stop()

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, scannerInitialBuf), scannerMaxBuf)
	for scanner.Scan() {
		ts, msg := parseLine(scanner.Text(), a.now)
		ev := Event{Container: container, Color: color, Timestamp: ts, Message: msg}
		if !a.push(s, ev) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// push delivers ev to the session queue. It reports false once the session
// has been cancelled; nothing is pushed after that.
func (a *Aggregator) push(s *session, ev Event) bool {
	if s.ctx.Err() != nil {
		return false
	}
	select {
	case s.queue <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// parseLine splits the RFC3339Nano prefix added by timestamps=true. Lines
// without one are stamped with the receive time.
func parseLine(line string, now func() time.Time) (time.Time, string) {
	prefix, rest, found := strings.Cut(line, " ")
	if found {
		if ts, err := time.Parse(time.RFC3339Nano, prefix); err == nil {
			return ts, rest
		}
	} else if ts, err := time.Parse(time.RFC3339Nano, prefix); err == nil {
		return ts, ""
	}
	return now(), line
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiStatus apierrors.APIStatus
	if errors.As(err, &apiStatus) && retryableMessage(apiStatus.Status().Message) {
		return true
	}
	return retryableMessage(err.Error())
}

// retryableMessage matches the apiserver's answer for containers that have
// not started, e.g. `container "app" in pod "web" is waiting to start:
// ContainerCreating`.
func retryableMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "is waiting to start") ||
		strings.Contains(msg, "containercreating") ||
		strings.Contains(msg, "podinitializing")
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
