package feed

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"

	"github.com/specialistvlad/nodular/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// ErrInvalidURL is returned by Dial for URLs without scheme or host.
var ErrInvalidURL = errors.New("invalid feed url")

// ClientOptions configures Dial.
type ClientOptions struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
}

// Client is a connected socket.io client implementing Emitter.
type Client struct {
	io *socket.Socket
}

// Dial connects to a socket.io server over websocket and waits until the
// connection is established, refused, or ctx is done.
func Dial(ctx context.Context, opts ClientOptions) (*Client, error) {
	logger := ctxlog.FromContext(ctx).With("url", opts.URL, "namespace", opts.Namespace)

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("%q: %w", opts.URL, ErrInvalidURL)
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	sockOpts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		sockOpts.SetPath(parsedURL.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sockOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	namespace := opts.Namespace
	if namespace == "" {
		namespace = "/"
	}

	manager := socket.NewManager(baseURL, sockOpts)
	io := manager.Socket(namespace, sockOpts)

	connected := make(chan error, 1)
	io.On(types.EventName("connect"), func(...any) {
		select {
		case connected <- nil:
		default:
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connected <- err:
		default:
		}
	})

	logger.Debug("Connecting feed client.")
	io.Connect()

	select {
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("timed out while waiting for feed connection: %w", ctx.Err())
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("feed connection failed: %w", err)
		}
	}

	logger.Info("Feed client connected.", "sid", io.Id())
	return &Client{io: io}, nil
}

// Emit sends event with payload to the server.
func (c *Client) Emit(event string, payload any) {
	c.io.Emit(event, payload)
}

// Close disconnects from the server.
func (c *Client) Close() {
	c.io.Disconnect()
}
