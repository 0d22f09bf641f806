package server

import (
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rprusd/thumbhub/internal/config"
)

// Shared HTTP transport tunings，复用长连接并集中配置超时。
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   32,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// NewUpstreamClient 返回访问目录与缩略图接口的 http.Client。
// 不设置整体 Timeout：列表请求由 UpstreamTimeout 约束，单条下载由 FetchTimeout 约束，
// 这里只限制等待响应头的时间。proxy 非空时覆盖环境变量代理。
func NewUpstreamClient(cfg *config.Config, proxy *url.URL) *http.Client {
	headerTimeout := 30 * time.Second
	if cfg != nil && cfg.Global.UpstreamTimeout.DurationValue() > 0 {
		headerTimeout = cfg.Global.UpstreamTimeout.DurationValue()
	}

	transport := defaultTransport.Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}

	return &http.Client{Transport: transport}
}
