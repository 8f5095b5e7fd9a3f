package client

import (
	"context"
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/momentics/wasync-go/api"
	"github.com/momentics/wasync-go/internal/dispatch"
	"github.com/momentics/wasync-go/protocol"
	"github.com/momentics/wasync-go/transport"
)

// write runs data through the encoder chain and dispatches it over the
// current transport's send path. An HTTP write timeout is recorded on the
// root future; the result is the root future's FinishOrThrowException.
func (s *Socket) write(req *protocol.Request, data interface{}) (interface{}, error) {
	encoded, err := dispatch.RunEncoders(req.Encoders, data)
	if err != nil {
		return nil, errors.Wrap(err, "client: encoder chain failed")
	}

	payload, err := toPayload(encoded)
	if err != nil {
		return nil, err
	}

	tr := s.currentTransport()
	if tr == nil {
		return nil, errors.New("client: write called before a transport is open")
	}

	if ws, ok := tr.(transport.WebSocketSender); ok {
		status := tr.Status()
		if status == api.StatusClose || status == api.StatusError {
			err := errors.Errorf("Invalid Socket Status %s", status)
			tr.Error(err)
			return nil, err
		}
		if err := sendWebSocket(ws, payload); err != nil {
			return nil, err
		}
		return s.rootFuture.FinishOrThrowException()
	}

	sender, ok := tr.(transport.HTTPSender)
	if !ok {
		return nil, errors.New("client: transport supports neither WebSocket nor HTTP send")
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if req.RequestTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, req.RequestTimeout)
		defer cancel()
	}

	body, err := sender.SendHTTP(ctx, req, payload)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.rootFuture.TimeoutException(err)
		} else {
			log.WithError(err).Warn("client: HTTP write failed")
		}
		return s.rootFuture.FinishOrThrowException()
	}

	if len(body) > 0 {
		s.pipeline.Deliver(api.EventMessage, string(body))
	}
	return s.rootFuture.FinishOrThrowException()
}

// toPayload maps data's runtime type to the tagged api.Payload both send
// paths consume.
func toPayload(v interface{}) (api.Payload, error) {
	switch vv := v.(type) {
	case string:
		return api.Payload{Kind: api.KindText, Text: vv}, nil
	case []byte:
		return api.Payload{Kind: api.KindBinary, Bytes: vv}, nil
	case api.ByteStream:
		buf, err := io.ReadAll(readerOf(vv.Reader))
		if err != nil {
			return api.Payload{}, errors.Wrap(err, "client: draining byte stream")
		}
		return api.Payload{Kind: api.KindBinary, Bytes: buf}, nil
	case api.CharStream:
		buf, err := io.ReadAll(readerOf(vv.Reader))
		if err != nil {
			return api.Payload{}, errors.Wrap(err, "client: draining char stream")
		}
		return api.Payload{Kind: api.KindText, Text: string(buf)}, nil
	default:
		return api.Payload{}, errors.Wrapf(api.ErrNoEncoder, "No Encoder for %v", v)
	}
}

func readerOf(r interface{ Read(p []byte) (int, error) }) io.Reader {
	return readerAdapter{r}
}

type readerAdapter struct {
	r interface {
		Read(p []byte) (int, error)
	}
}

func (a readerAdapter) Read(p []byte) (int, error) { return a.r.Read(p) }

func sendWebSocket(ws transport.WebSocketSender, p api.Payload) error {
	switch p.Kind {
	case api.KindText, api.KindCharStream:
		return ws.SendText(p.Text)
	case api.KindBinary, api.KindByteStream:
		return ws.SendBinary(p.Bytes)
	default:
		return errors.Wrapf(api.ErrNoEncoder, "No Encoder for payload kind %d", p.Kind)
	}
}
