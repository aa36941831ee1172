package ipfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"go.uber.org/zap"
)

// ErrAllGatewaysExhausted means every configured source failed for a hash.
var ErrAllGatewaysExhausted = errors.New("ipfs: all gateways exhausted")

// Fetcher downloads content-addressed payloads. When a local node API is
// configured it is tried first; otherwise (or on failure) the public gateway
// list is walked in order. A per-gateway timeout applies uniformly and a
// timeout counts the same as a non-200 response for fallback purposes.
type Fetcher struct {
	node     *shell.Shell
	gateways []string
	client   *http.Client
	timeout  time.Duration
	logger   *zap.Logger
}

func NewFetcher(nodeAPI string, gateways []string, timeout time.Duration, logger *zap.Logger) *Fetcher {
	f := &Fetcher{
		gateways: gateways,
		client:   &http.Client{},
		timeout:  timeout,
		logger:   logger.With(zap.String("service", "ipfs_fetcher")),
	}
	if nodeAPI != "" {
		f.node = shell.NewShell(nodeAPI)
		f.node.SetTimeout(timeout)
	}
	return f
}

// Download returns the payload for an IPFS hash, falling back across all
// configured sources. No backoff between gateways; the recovery batch driver
// paces requests instead.
func (f *Fetcher) Download(ctx context.Context, hash string) ([]byte, error) {
	var lastErr error

	if f.node != nil {
		data, err := f.fromNode(hash)
		if err == nil {
			return data, nil
		}
		lastErr = err
		f.logger.Warn("local node fetch failed, trying gateways",
			zap.String("hash", hash), zap.Error(err))
	}

	for _, gateway := range f.gateways {
		data, err := f.fromGateway(ctx, gateway, hash)
		if err == nil {
			f.logger.Debug("gateway fetch succeeded",
				zap.String("gateway", gateway),
				zap.String("hash", hash),
				zap.Int("bytes", len(data)))
			return data, nil
		}
		lastErr = err
		f.logger.Warn("gateway fetch failed",
			zap.String("gateway", gateway),
			zap.String("hash", hash),
			zap.Error(err))
	}

	return nil, fmt.Errorf("%w: %s: %v", ErrAllGatewaysExhausted, hash, lastErr)
}

func (f *Fetcher) fromNode(hash string) ([]byte, error) {
	rc, err := f.node.Cat(hash)
	if err != nil {
		return nil, fmt.Errorf("node cat: %w", err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (f *Fetcher) fromGateway(ctx context.Context, gateway, hash string) ([]byte, error) {
	url := strings.TrimSuffix(gateway, "/") + "/" + hash

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
