// 包 fetch 封装 HTTP 客户端（上游代理/超时/重试/限速），用于抓取排行榜、详情与商店页面。
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/time/rate"
)

// 响应体读取上限，商店页面通常在 1~3 MiB。
const maxBodyBytes = 8 << 20

const defaultUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client 为带重试与限速的 HTTP 客户端。
type Client struct {
	http    *http.Client
	retry   int
	backoff time.Duration
	ua      string
	limiter *rate.Limiter
}

// Options 为客户端构造参数。
type Options struct {
	ProxyHTTP     string
	ProxyHTTPS    string
	Timeout       time.Duration
	Retry         int
	Backoff       time.Duration // 首次重试等待，之后指数增长
	UserAgent     string
	RatePerSecond float64 // 0 表示不限速
	Burst         int
}

// StatusError 表示上游返回了非 2xx 状态码。
type StatusError struct {
	Code   int
	Status string
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %s: %s", e.Status, e.URL)
}

// Retryable 仅对限流/超时/服务端错误等暂时性状态重试。
func (e *StatusError) Retryable() bool {
	switch e.Code {
	case 403, 408, 425, 429:
		return true
	}
	return e.Code >= 500
}

// New 创建客户端，支持 http/https 上游代理与基础超时配置。
func New(opts Options) (*Client, error) {
	var proxyHTTP, proxyHTTPS *url.URL
	var err error
	if opts.ProxyHTTP != "" {
		if proxyHTTP, err = url.Parse(opts.ProxyHTTP); err != nil {
			return nil, fmt.Errorf("parse http proxy: %w", err)
		}
	}
	if opts.ProxyHTTPS != "" {
		if proxyHTTPS, err = url.Parse(opts.ProxyHTTPS); err != nil {
			return nil, fmt.Errorf("parse https proxy: %w", err)
		}
	}
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && proxyHTTPS != nil {
				return proxyHTTPS, nil
			}
			if req.URL.Scheme == "http" && proxyHTTP != nil {
				return proxyHTTP, nil
			}
			return http.ProxyFromEnvironment(req)
		},
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConnsPerHost:   4,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if opts.Retry < 0 {
		opts.Retry = 0
	}
	c := &Client{
		http:    &http.Client{Transport: transport, Timeout: opts.Timeout},
		retry:   opts.Retry,
		backoff: opts.Backoff,
		ua:      opts.UserAgent,
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return c, nil
}

// userAgent 选择 UA：环境变量 MAM_UA > 构造参数 > 浏览器默认值。
func (c *Client) userAgent() string {
	if ua := os.Getenv("MAM_UA"); ua != "" {
		return ua
	}
	if c.ua != "" {
		return c.ua
	}
	return defaultUA
}

// Get 发起 GET 请求；仅对暂时性失败按指数退避重试 retry 次。
// accept 为空时不设置 Accept 头。调用方负责关闭响应体。
func (c *Client) Get(ctx context.Context, rawURL string, accept string) (*http.Response, error) {
	var lastErr error
	for i := 0; i <= c.retry; i++ {
		if i > 0 {
			wait := c.backoff * time.Duration(1<<(i-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent())
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		if accept != "" {
			req.Header.Set("Accept", accept)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			continue
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		resp.Body.Close()
		se := &StatusError{Code: resp.StatusCode, Status: resp.Status, URL: rawURL}
		if !se.Retryable() {
			return nil, se
		}
		lastErr = se
	}
	return nil, lastErr
}

// Read 请求并读取响应体（上限 8 MiB）。
func (c *Client) Read(ctx context.Context, rawURL string, accept string) ([]byte, error) {
	resp, err := c.Get(ctx, rawURL, accept)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", rawURL, err)
	}
	return b, nil
}
