package valkey

import (
	"context"
	"fmt"
	"strings"
	"time"

	valkeylib "github.com/valkey-io/valkey-go"
)

const DefaultConnectTimeout = 5 * time.Second

type Config struct {
	Address        string
	Password       string
	DB             int
	KeyPrefix      string
	ConnectTimeout time.Duration
}

// Client wraps the valkey-go client with application-specific
// functionality: key prefixing, scheduler locks and event publishing.
type Client struct {
	inner     valkeylib.Client
	keyPrefix string
}

// NewClient creates a new Valkey client instance. The caller is
// responsible for calling Close() when done.
func NewClient(cfg Config) (*Client, error) {
	opts := valkeylib.ClientOption{
		InitAddress: []string{cfg.Address},
		SelectDB:    cfg.DB,
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	inner, err := valkeylib.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = DefaultConnectTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := inner.Do(ctx, inner.B().Ping().Build()).Error(); err != nil {
		inner.Close()
		return nil, fmt.Errorf("failed to ping valkey (timeout: %v): %w", timeout, err)
	}

	prefix := cfg.KeyPrefix
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}

	return &Client{inner: inner, keyPrefix: prefix}, nil
}

// Inner returns the underlying valkey-go client.
func (c *Client) Inner() valkeylib.Client {
	return c.inner
}

func (c *Client) Close() {
	if c.inner != nil {
		c.inner.Close()
	}
}

// Key constructs a prefixed key from the given parts.
// Example: Key("lock", "followup") -> "zapleads:lock:followup"
func (c *Client) Key(parts ...string) string {
	if len(parts) == 0 {
		return strings.TrimSuffix(c.keyPrefix, ":")
	}
	key := c.keyPrefix
	for i, p := range parts {
		key += p
		if i < len(parts)-1 {
			key += ":"
		}
	}
	return key
}

func (c *Client) Ping(ctx context.Context) error {
	return c.inner.Do(ctx, c.inner.B().Ping().Build()).Error()
}

// IsConnected tests if the connection is healthy (uses a short timeout).
func (c *Client) IsConnected() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return c.Ping(ctx) == nil
}

// AcquireLock takes a best-effort distributed lock (SET NX EX).
// Returns true when this instance holds the lock for the expiration
// window. Schedulers use it to keep ticks single-flight across
// replicas; nothing releases the lock early, the TTL is the release.
func (c *Client) AcquireLock(ctx context.Context, key string, expiration time.Duration) bool {
	full := c.Key("lock", key)
	res := c.inner.Do(ctx, c.inner.B().Set().Key(full).Value("1").Nx().Ex(expiration).Build())
	if err := res.Error(); err != nil {
		// Nil reply means the key already exists: someone else holds it.
		return false
	}
	return true
}

// PublishJSON publishes a payload on a prefixed channel.
func (c *Client) PublishJSON(ctx context.Context, channel string, payload string) error {
	full := c.Key(channel)
	return c.inner.Do(ctx, c.inner.B().Publish().Channel(full).Message(payload).Build()).Error()
}

// IsNil reports whether err is the valkey nil-reply error.
func IsNil(err error) bool {
	return valkeylib.IsValkeyNil(err)
}
